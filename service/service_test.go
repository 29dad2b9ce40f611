package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/config"
	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/health"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/natsclient"
	"github.com/c360/coredata/processor/enrich"
	coretestutil "github.com/c360/coredata/testutil"
	"github.com/c360/coredata/workflow"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Platform.Instance = "test-1"

	task := workflow.NewTask("classify", workflow.FunctionEnrich)
	task.Input = map[string]any{"rules": []any{
		map[string]any{"field": "data.channel", "rule": map[string]any{"var": "channel"}},
	}}
	wf := workflow.NewWorkflow("sct")
	wf.Tasks = []workflow.Task{task}
	cfg.Workflows = []workflow.Workflow{wf}

	cfg.Pipelines["inbound"] = config.PipelineConfig{
		Description: "Inbound enrichment",
		Workflow:    "sct",
		Rules:       []enrich.Rule{{Field: "data.received", Rule: true}},
		Concurrency: 2,
	}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := New(cfg, Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		IDs:    coretestutil.NewIDs(),
		Clock:  coretestutil.FixedClock(),
	})
	require.NoError(t, err)
	return svc
}

func TestService_ProcessStampsProvenance(t *testing.T) {
	svc := newTestService(t, testConfig())
	msg, err := coretestutil.NewPACS008Message(coretestutil.NewIDs())
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), "inbound", msg, map[string]any{"channel": "api"}))

	audit := msg.Audit()
	require.Len(t, audit, 3)
	for _, entry := range audit[1:] {
		assert.Equal(t, "sct", entry.Workflow)
		assert.Equal(t, "inbound", entry.Task)
		assert.Equal(t, "coredata", entry.Service)
		assert.Equal(t, "test-1", entry.Instance)
		assert.Equal(t, "0.1.0", entry.Version)
	}
	assert.Equal(t, "Inbound enrichment", audit[2].Description)
	require.Len(t, audit[2].Changes, 2)
	assert.Equal(t, "data.channel", audit[2].Changes[0].Field, "workflow rules run first")
	assert.Equal(t, "data.received", audit[2].Changes[1].Field)

	info := svc.Info()
	assert.Equal(t, int64(1), info.MessagesProcessed)
	assert.Equal(t, []string{"inbound"}, info.Pipelines)
}

func TestService_UnknownPipeline(t *testing.T) {
	svc := newTestService(t, testConfig())
	msg, err := coretestutil.NewPACS008Message(coretestutil.NewIDs())
	require.NoError(t, err)

	err = svc.Process(context.Background(), "absent", msg, nil)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, message.StatusReceived, msg.Progress().Status)

	_, err = svc.ProcessBatch(context.Background(), "absent", nil, nil)
	assert.Error(t, err)
}

func TestService_ProcessBatchCounts(t *testing.T) {
	svc := newTestService(t, testConfig())
	ids := coretestutil.NewIDs()
	var msgs []*message.Message
	for i := 0; i < 4; i++ {
		msg, err := coretestutil.NewPACS008Message(ids)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	empty, err := message.New(ids, message.NewFile("", message.FormatXML, message.SchemaISO20022, message.EncodingUTF8, 0), "t", "o")
	require.NoError(t, err)
	msgs = append(msgs, empty)

	results, err := svc.ProcessBatch(context.Background(), "inbound", msgs, map[string]any{"channel": "file"})
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Error(t, results[4])

	info := svc.Info()
	assert.Equal(t, int64(5), info.MessagesProcessed)
	assert.Equal(t, int64(1), info.MessagesFailed)
}

func TestService_SourcesInheritParserLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.(http.Flusher).Flush()
		_, _ = w.Write(coretestutil.PACS008XML())
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Parser.MaxContentBytes = 32
	svc := newTestService(t, cfg)

	msg, err := message.New(coretestutil.NewIDs(),
		message.NewFile(srv.URL+"/pacs008.xml", message.FormatXML, message.SchemaISO20022, message.EncodingUTF8, 0), "t", "o")
	require.NoError(t, err)

	err = svc.Process(context.Background(), "inbound", msg, map[string]any{"channel": "api"})
	require.Error(t, err)
	assert.Equal(t, errors.DecodeFailure, errors.KindOf(err))
	assert.ErrorIs(t, err, errors.ErrContentTooLarge)
	assert.Equal(t, int32(1), calls.Load())
	assert.Nil(t, msg.Data())
}

func TestService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Pipelines["broken"] = config.PipelineConfig{Workflow: "absent"}
	_, err := New(cfg, Dependencies{IDs: coretestutil.NewIDs()})
	assert.Error(t, err)

	_, err = New(nil, Dependencies{})
	assert.Error(t, err)
}

func TestService_Lifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "127.0.0.1:0"
	svc := newTestService(t, cfg)

	assert.Equal(t, StatusStopped, svc.Status())
	assert.True(t, svc.Health().IsUnhealthy())

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Start(ctx), "start is idempotent")
	assert.Equal(t, StatusRunning, svc.Status())
	assert.True(t, svc.Health().IsHealthy())

	msg, err := coretestutil.NewPACS008Message(coretestutil.NewIDs())
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, "inbound", msg, map[string]any{"channel": "api"}))

	metricsURL := svc.MetricsAddress()
	resp, err := http.Get(metricsURL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `coredata_messages_processed_total{pipeline="inbound",status="Completed"} 1`)

	resp, err = http.Get(strings.TrimSuffix(metricsURL, "/metrics") + "/health")
	require.NoError(t, err)
	var status health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "coredata", status.Component)
	require.Len(t, status.SubStatuses, 1)
	assert.Equal(t, "inbound", status.SubStatuses[0].Component)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(stopCtx))
	require.NoError(t, svc.Stop(stopCtx))
	assert.Equal(t, StatusStopped, svc.Status())
	assert.Zero(t, svc.Info().Uptime)
}

func TestService_HealthReportsObjectStore(t *testing.T) {
	cfg := testConfig()
	cfg.Sources.NATS.URL = "nats://127.0.0.1:1"
	svc := newTestService(t, cfg)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	status := svc.Health()
	assert.True(t, status.IsHealthy(), "the object store connects on first use")
	require.Len(t, status.SubStatuses, 2)
	assert.Equal(t, "inbound", status.SubStatuses[0].Component)
	assert.Equal(t, "content.nats", status.SubStatuses[1].Component)
	assert.Equal(t, "disconnected", status.SubStatuses[1].Message)
	require.NoError(t, svc.Stop(ctx))
}

func TestNATSHealth(t *testing.T) {
	assert.True(t, natsHealth(natsclient.StatusConnected).IsHealthy())
	assert.True(t, natsHealth(natsclient.StatusConnecting).IsDegraded())
	assert.True(t, natsHealth(natsclient.StatusCircuitOpen).IsUnhealthy())
	assert.True(t, natsHealth(natsclient.StatusClosed).IsUnhealthy())
}

func TestService_MetricsDisabled(t *testing.T) {
	svc := newTestService(t, testConfig())
	assert.Empty(t, svc.MetricsAddress())
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "starting", StatusStarting.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "stopping", StatusStopping.String())
	assert.Equal(t, "unknown", Status(42).String())
}
