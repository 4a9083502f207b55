package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/agentflow/internal/agent"
	"github.com/rahul/agentflow/internal/gateway"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/rahul/agentflow/internal/queue"
	"github.com/rahul/agentflow/internal/store"
	"github.com/rahul/agentflow/pkg/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept requests from HTTP, Telegram and Discord and run them from a queue",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	observability.PrintBanner()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := store.NewHistoryStore(a.cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer history.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := newQueue(ctx, a.cfg.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	worker := agent.NewWorker(q, a.pool, history)
	gateways := []gateway.Gateway{
		gateway.NewHTTPGateway(a.cfg.HTTP.Address, q, history, a.promReg),
	}

	if tgCfg, ok := a.cfg.GetGatewayConfig(gateway.ChannelTelegram); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, q)
		if err != nil {
			return fmt.Errorf("telegram gateway: %w", err)
		}
		worker.AddMessenger(gateway.ChannelTelegram, tg)
		gateways = append(gateways, tg)
	}
	if dcCfg, ok := a.cfg.GetGatewayConfig(gateway.ChannelDiscord); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, q)
		if err != nil {
			return fmt.Errorf("discord gateway: %w", err)
		}
		worker.AddMessenger(gateway.ChannelDiscord, dc)
		gateways = append(gateways, dc)
	}

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("Worker stopped: %v", err)
		}
	}()

	for _, gw := range gateways {
		go func(gw gateway.Gateway) {
			if err := gw.Start(ctx); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}(gw)
	}

	// Live status line (1-second updates)
	if observability.IsTerminal() {
		go tick(ctx, time.Second, observability.PrintLiveStatus)
	}
	go tick(ctx, 30*time.Second, func() {
		observability.Heartbeat()
		a.logger.LogHeartbeat()
	})

	<-ctx.Done()

	for _, gw := range gateways {
		if err := gw.Stop(); err != nil {
			log.Printf("Error stopping gateway: %v", err)
		}
	}
	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] AGENTFLOW SHUT DOWN. GOODBYE.\033[0m")
	return nil
}

func newQueue(ctx context.Context, cfg config.QueueConfig) (queue.Queue, error) {
	switch cfg.Backend {
	case "redis":
		rq, err := queue.DialRedisQueue(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		return rq, nil
	default:
		return queue.NewMemoryQueue(cfg.Buffer), nil
	}
}

func tick(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
