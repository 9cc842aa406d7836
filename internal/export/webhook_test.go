package export

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/model"
)

type webhookSink struct {
	mu      sync.Mutex
	batches [][]model.RiskReport
	auth    []string
	status  int
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reports []model.RiskReport `json:"reports"`
		Count   int                `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Count != len(body.Reports) {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.batches = append(s.batches, body.Reports)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	status := s.status
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
	}
}

func (s *webhookSink) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func report(wallet string) model.RiskReport {
	return model.RiskReport{Wallet: wallet, RiskLevel: model.RiskLow}
}

func newTestExporter(t *testing.T, sink *webhookSink, batch int, interval time.Duration) *ReportExporter {
	t.Helper()
	srv := httptest.NewServer(sink)
	t.Cleanup(srv.Close)

	return NewReportExporter(ExporterConfig{
		WebhookURL:     srv.URL,
		WebhookAPIKey:  "secret",
		BatchSize:      batch,
		ExportInterval: interval,
	}).WithHTTPClient(srv.Client())
}

func TestReportExporter_FlushesFullBatch(t *testing.T) {
	sink := &webhookSink{}
	e := newTestExporter(t, sink, 2, time.Hour)
	defer e.Stop()

	e.Add(report("0x01"))
	e.Add(report("0x02"))

	assert.Eventually(t, func() bool { return sink.received() == 2 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	assert.Equal(t, "0x01", sink.batches[0][0].Wallet)
	assert.Equal(t, "Bearer secret", sink.auth[0])
}

func TestReportExporter_PeriodicFlush(t *testing.T) {
	sink := &webhookSink{}
	e := newTestExporter(t, sink, 100, 20*time.Millisecond)
	defer e.Stop()

	e.Add(report("0x01"))

	assert.Eventually(t, func() bool { return sink.received() == 1 }, time.Second, 5*time.Millisecond)
}

func TestReportExporter_StopFlushesRemainder(t *testing.T) {
	sink := &webhookSink{}
	e := newTestExporter(t, sink, 100, time.Hour)

	e.Add(report("0x01"))
	e.Add(report("0x02"))
	e.Add(report("0x03"))
	e.Stop()

	assert.Equal(t, 3, sink.received())
	status := e.Status()
	assert.Equal(t, 3, status["exported"])
	assert.Equal(t, 0, status["current_batch"])
}

func TestReportExporter_CountsFailures(t *testing.T) {
	sink := &webhookSink{status: http.StatusBadRequest}
	e := newTestExporter(t, sink, 100, time.Hour)

	e.Add(report("0x01"))
	e.Stop()

	status := e.Status()
	assert.Equal(t, 1, status["failed"])
	assert.Equal(t, 0, status["exported"])
}

func TestReportExporter_Disabled(t *testing.T) {
	e := NewReportExporter(ConfigFrom(config.Default()))

	e.Add(report("0x01"))
	assert.NotPanics(t, e.Stop)
	assert.Equal(t, map[string]any{"enabled": false}, e.Status())
}
