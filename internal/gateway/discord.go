package gateway

import (
	"context"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const ChannelDiscord = "discord"

// DiscordGateway queues every non-bot message in channels the bot can read.
// Replies go to the originating channel id.
type DiscordGateway struct {
	Session *discordgo.Session
	Queue   Submitter
}

func NewDiscordGateway(token string, q Submitter) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	return &DiscordGateway{Session: s, Queue: q}, nil
}

func (dg *DiscordGateway) Start(ctx context.Context) error {
	remove := dg.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		dg.handle(ctx, s, m)
	})
	defer remove()

	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Printf("Discord gateway connected as %s", dg.Session.State.User.Username)

	<-ctx.Done()
	return nil
}

func (dg *DiscordGateway) handle(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || strings.TrimSpace(m.Content) == "" {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	reply := ""
	id, err := submit(ctx, dg.Queue, ChannelDiscord, m.ChannelID, m.Content)
	if err != nil {
		log.Printf("Error queuing message: %v", err)
		reply = "I can't take new requests right now..."
	} else {
		reply = ackText(id)
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		log.Printf("Error replying on discord: %v", err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
