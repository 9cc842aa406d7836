// Package export relays completed risk reports to an external webhook in
// batches.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// ExporterConfig holds configuration for report exporting
type ExporterConfig struct {
	WebhookURL     string        `json:"webhook_url"`
	WebhookAPIKey  string        `json:"webhook_api_key,omitempty"`
	BatchSize      int           `json:"batch_size"`
	ExportInterval time.Duration `json:"export_interval"`
}

// ConfigFrom extracts exporter settings from the application config
func ConfigFrom(cfg config.Config) ExporterConfig {
	return ExporterConfig{
		WebhookURL:     cfg.ReportWebhookURL,
		WebhookAPIKey:  cfg.ReportWebhookAPIKey,
		BatchSize:      cfg.ReportExportBatch,
		ExportInterval: cfg.ReportExportInterval,
	}
}

// Enabled reports whether a webhook is configured
func (c ExporterConfig) Enabled() bool {
	return c.WebhookURL != ""
}

// ReportExporter batches reports and posts them to the webhook when the
// batch fills up or the export interval elapses.
type ReportExporter struct {
	config     ExporterConfig
	httpClient *http.Client

	mutex      sync.Mutex
	batch      []model.RiskReport
	lastExport time.Time
	exported   int
	failed     int

	inflight sync.WaitGroup
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReportExporter creates an exporter and starts its periodic flush.
// A disabled config yields an exporter whose Add is a no-op.
func NewReportExporter(cfg ExporterConfig) *ReportExporter {
	e := &ReportExporter{config: cfg}
	if !cfg.Enabled() {
		return e
	}

	if e.config.BatchSize < 1 {
		e.config.BatchSize = 1
	}
	if e.config.ExportInterval <= 0 {
		e.config.ExportInterval = time.Minute
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 10 * time.Second
	retryClient.Logger = nil
	e.httpClient = retryClient.StandardClient()

	e.batch = make([]model.RiskReport, 0, e.config.BatchSize)
	e.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.periodicExport(ctx)

	logrus.Infof("Report exporter initialized, posting to %s", cfg.WebhookURL)
	return e
}

// WithHTTPClient replaces the retrying HTTP client
func (e *ReportExporter) WithHTTPClient(hc *http.Client) *ReportExporter {
	e.httpClient = hc
	return e
}

// Add queues a report for export
func (e *ReportExporter) Add(report model.RiskReport) {
	if !e.config.Enabled() {
		return
	}

	e.mutex.Lock()
	e.batch = append(e.batch, report)
	full := len(e.batch) >= e.config.BatchSize
	e.mutex.Unlock()

	if full {
		e.inflight.Add(1)
		go func() {
			defer e.inflight.Done()
			e.flush()
		}()
	}
}

// periodicExport runs a background task to periodically export reports
func (e *ReportExporter) periodicExport(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.config.ExportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.flush()
		case <-ctx.Done():
			return
		}
	}
}

// flush exports the current batch of reports
func (e *ReportExporter) flush() {
	e.mutex.Lock()
	if len(e.batch) == 0 {
		e.mutex.Unlock()
		return
	}

	reports := e.batch
	e.batch = make([]model.RiskReport, 0, e.config.BatchSize)
	e.lastExport = time.Now()
	e.mutex.Unlock()

	err := e.post(reports)

	e.mutex.Lock()
	if err != nil {
		e.failed += len(reports)
	} else {
		e.exported += len(reports)
	}
	e.mutex.Unlock()

	if err != nil {
		logrus.Errorf("Failed to export %d reports to webhook: %v", len(reports), err)
		return
	}
	logrus.Infof("Exported %d reports to webhook", len(reports))
}

func (e *ReportExporter) post(reports []model.RiskReport) error {
	exportData := struct {
		Reports    []model.RiskReport `json:"reports"`
		ExportTime string             `json:"export_time"`
		Count      int                `json:"count"`
	}{
		Reports:    reports,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Count:      len(reports),
	}

	jsonData, err := json.Marshal(exportData)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.WebhookAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.WebhookAPIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}

// Stop ends periodic exports and flushes whatever is still queued
func (e *ReportExporter) Stop() {
	if !e.config.Enabled() {
		return
	}
	e.cancel()
	<-e.done
	e.inflight.Wait()
	e.flush()
}

// Status returns the current state of the exporter
func (e *ReportExporter) Status() map[string]any {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	status := map[string]any{
		"enabled": e.config.Enabled(),
	}
	if !e.config.Enabled() {
		return status
	}

	status["batch_size"] = e.config.BatchSize
	status["export_interval"] = e.config.ExportInterval.String()
	status["current_batch"] = len(e.batch)
	status["exported"] = e.exported
	status["failed"] = e.failed
	if !e.lastExport.IsZero() {
		status["last_export"] = e.lastExport.Format(time.RFC3339)
	}
	return status
}
