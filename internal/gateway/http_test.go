package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/rahul/agentflow/internal/queue"
	"github.com/rahul/agentflow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*HTTPGateway, *queue.MemoryQueue, *store.HistoryStore, *observability.Metrics) {
	t.Helper()
	q := queue.NewMemoryQueue(4)
	history, err := store.NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	return NewHTTPGateway(":0", q, history, reg), q, history, metrics
}

func do(h *HTTPGateway, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTaskQueuesPrompt(t *testing.T) {
	h, q, _, _ := newTestGateway(t)

	rec := do(h, http.MethodPost, "/tasks", `{"prompt":"Generate a report of revenue between Oct and Dec"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "queued", resp.Status)

	task, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resp.ID, task.ID)
	assert.Equal(t, ChannelHTTP, task.Channel)
	assert.Equal(t, "Generate a report of revenue between Oct and Dec", task.Prompt)
}

func TestSubmitTaskRejectsEmptyPrompt(t *testing.T) {
	h, q, _, _ := newTestGateway(t)

	rec := do(h, http.MethodPost, "/tasks", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, q.Len())
}

func TestSubmitTaskQueueClosed(t *testing.T) {
	h, q, _, _ := newTestGateway(t)
	require.NoError(t, q.Close())

	rec := do(h, http.MethodPost, "/tasks", `{"prompt":"p"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetRun(t *testing.T) {
	h, _, history, _ := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, history.RecordQueued(ctx, store.Run{ID: "run-1", Identity: "orchestrator", Prompt: "p", Channel: ChannelHTTP}))
	require.NoError(t, history.MarkFinished(ctx, "run-1", "reports/data_report.txt", []string{"prompt", "report"}, nil))

	rec := do(h, http.MethodGet, "/tasks/run-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, "reports/data_report.txt", run.Report)

	rec = do(h, http.MethodGet, "/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _, metrics := newTestGateway(t)
	metrics.ObserveRun("completed")

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agentflow_runs_total")
}
