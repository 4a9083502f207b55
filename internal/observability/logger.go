package observability

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypePlanRepair  EventType = "plan_repair"
	EventTypeStep        EventType = "step"
	EventTypeStepSkipped EventType = "step_skipped"
	EventTypeLLM         EventType = "llm"
	EventTypeRun         EventType = "run"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type     EventType
	Identity string
	RunID    string
	Data     any
}

// Logger emits structured events. LLM traffic is additionally written to a
// rotated jsonl file when a log directory is configured.
type Logger struct {
	zl  *zap.Logger
	llm *zap.Logger
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewLogger builds a JSON logger on stdout. If logDir is non-empty, llm
// events are teed to logDir/llm.jsonl.
func NewLogger(logDir string) *Logger {
	enc := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.InfoLevel)

	l := &Logger{zl: zap.New(core)}
	if logDir != "" {
		f := &rotatingFile{path: filepath.Join(logDir, "llm.jsonl"), maxSize: 10 * 1024 * 1024}
		l.llm = zap.New(zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), zap.InfoLevel))
	}
	return l
}

// NewLoggerWithCore is used by tests to observe emitted events.
func NewLoggerWithCore(core zapcore.Core) *Logger {
	return &Logger{zl: zap.New(core)}
}

func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func (l *Logger) Sync() {
	_ = l.zl.Sync()
	if l.llm != nil {
		_ = l.llm.Sync()
	}
}

// Log emits a structured event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	fields := []zap.Field{zap.String("type", string(evt.Type))}
	if evt.Identity != "" {
		fields = append(fields, zap.String("identity", evt.Identity))
	}
	if evt.RunID != "" {
		fields = append(fields, zap.String("run_id", evt.RunID))
	}
	fields = append(fields, zap.Any("data", evt.Data))

	l.zl.Info(string(evt.Type), fields...)
	if evt.Type == EventTypeLLM && l.llm != nil {
		l.llm.Info(string(evt.Type), fields...)
	}
}

// Helper methods for common events

func (l *Logger) LogPlan(identity, runID string, methods []string, attempts int) {
	l.Log(Event{
		Type:     EventTypePlan,
		Identity: identity,
		RunID:    runID,
		Data: map[string]any{
			"methods":  methods,
			"attempts": attempts,
		},
	})
}

func (l *Logger) LogPlanRepair(identity, runID string, attempt int, reason string) {
	l.Log(Event{
		Type:     EventTypePlanRepair,
		Identity: identity,
		RunID:    runID,
		Data: map[string]any{
			"attempt": attempt,
			"reason":  reason,
		},
	})
}

func (l *Logger) LogStep(identity, runID, method string, outputs []string) {
	l.Log(Event{
		Type:     EventTypeStep,
		Identity: identity,
		RunID:    runID,
		Data: map[string]any{
			"method":  method,
			"outputs": outputs,
		},
	})
}

func (l *Logger) LogStepSkipped(identity, runID, method, reason string) {
	l.Log(Event{
		Type:     EventTypeStepSkipped,
		Identity: identity,
		RunID:    runID,
		Data: map[string]string{
			"method": method,
			"reason": reason,
		},
	})
}

func (l *Logger) LogLLM(identity, runID, prompt, response string, err error) {
	data := map[string]any{
		"prompt":   prompt,
		"response": response,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{
		Type:     EventTypeLLM,
		Identity: identity,
		RunID:    runID,
		Data:     data,
	})
}

func (l *Logger) LogRun(identity, runID, status string, keys []string) {
	l.Log(Event{
		Type:     EventTypeRun,
		Identity: identity,
		RunID:    runID,
		Data: map[string]any{
			"status": status,
			"keys":   keys,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

// rotatingFile appends to path and keeps a single .old generation once the
// file grows past maxSize.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return 0, err
	}
	if info, err := os.Stat(r.path); err == nil && info.Size() > r.maxSize {
		oldPath := r.path + ".old"
		_ = os.Remove(oldPath)
		_ = os.Rename(r.path, oldPath)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(p)
}
