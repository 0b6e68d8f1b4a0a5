// Package monitor reports campaigns left in sending without a live run.
// It only observes; campaign state is never rewritten here.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/metrics"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
)

type stuckFinder interface {
	ListStuck(ctx context.Context, startedBefore time.Time) ([]domain.Campaign, error)
}

type runTracker interface {
	IsActive(campaignID int64) bool
}

type Monitor struct {
	campaigns stuckFinder
	runs      runTracker
	alerts    *resty.Client
	config    environments.MonitorConfig
	now       func() time.Time

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt       time.Time
	passes          int64
	stuck           []StuckCampaign
	lastAlertSentAt time.Time

	// Alert tracking
	consecutiveDetections int
}

type StuckCampaign struct {
	CampaignID    int64     `json:"campaignId"`
	Title         string    `json:"title"`
	StartedAt     time.Time `json:"startedAt"`
	TotalContacts int       `json:"totalContacts"`
	SuccessCount  int       `json:"successCount"`
	FailureCount  int       `json:"failureCount"`
}

type Status struct {
	Running               bool            `json:"running"`
	LastRunAt             time.Time       `json:"lastRunAt,omitempty"`
	NextRunAt             time.Time       `json:"nextRunAt,omitempty"`
	Passes                int64           `json:"passes"`
	Interval              time.Duration   `json:"interval"`
	StuckAfter            time.Duration   `json:"stuckAfter"`
	StuckCampaigns        []StuckCampaign `json:"stuckCampaigns"`
	ConsecutiveDetections int             `json:"consecutiveDetections"`
	LastAlertSentAt       time.Time       `json:"lastAlertSentAt,omitempty"`
}

func New(campaigns stuckFinder, runs runTracker, config environments.MonitorConfig) *Monitor {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}

	return &Monitor{
		campaigns: campaigns,
		runs:      runs,
		alerts:    resty.New().SetTimeout(10 * time.Second),
		config:    config,
		now:       time.Now,
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()

	if m.running {
		m.mu.Unlock()
		logger.Warnf("Monitor is already running")
		return nil
	}

	m.running = true
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	m.mu.Unlock()

	logger.Infof("Starting stale-run monitor with interval %v (stuck after %v)", m.config.Interval, m.config.StuckAfter)

	go m.run(ctx)

	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneChan)

	m.check(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check(ctx)

		case <-m.stopChan:
			logger.Warnf("Monitor received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Monitor context cancelled")
			return
		}
	}
}

// check runs one detection pass.
func (m *Monitor) check(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	m.lastRunAt = now
	m.passes++
	pass := m.passes
	m.mu.Unlock()

	candidates, err := m.campaigns.ListStuck(ctx, now.Add(-m.config.StuckAfter))
	if err != nil {
		logger.Errorf("[Monitor #%d] Failed to list sending campaigns: %v", pass, err)
		return
	}

	stuck := make([]StuckCampaign, 0, len(candidates))
	for _, c := range candidates {
		if m.runs != nil && m.runs.IsActive(c.ID) {
			continue
		}

		entry := StuckCampaign{
			CampaignID:    c.ID,
			Title:         c.Title,
			TotalContacts: c.TotalContacts,
			SuccessCount:  c.SuccessCount,
			FailureCount:  c.FailureCount,
		}
		if c.StartedAt != nil {
			entry.StartedAt = *c.StartedAt
		}
		stuck = append(stuck, entry)

		logger.Warnf("[Monitor #%d] Campaign %d has been sending since %s without a live run (%d/%d processed)",
			pass, c.ID, entry.StartedAt.Format(time.RFC3339), c.SuccessCount+c.FailureCount, c.TotalContacts)
	}

	metrics.StuckCampaigns.Set(float64(len(stuck)))

	m.mu.Lock()
	m.stuck = stuck

	if len(stuck) > 0 {
		m.consecutiveDetections++
		threshold := m.config.AlertThreshold
		webhook := m.config.AlertWebhookURL

		if threshold > 0 && m.consecutiveDetections >= threshold && webhook != "" {
			go m.sendAlert(ctx, webhook, pass, m.consecutiveDetections, stuck)
		}
	} else {
		if m.consecutiveDetections > 0 {
			logger.Debugf("[Monitor #%d] Resetting consecutive detection count (was: %d)", pass, m.consecutiveDetections)
		}
		m.consecutiveDetections = 0
	}
	m.mu.Unlock()
}

func (m *Monitor) Stop() error {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()
		logger.Warnf("Monitor is not running")
		return nil
	}

	m.running = false
	stopChan := m.stopChan
	doneChan := m.doneChan
	m.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Monitor stopped")
	return nil
}

func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := Status{
		Running:               m.running,
		LastRunAt:             m.lastRunAt,
		Passes:                m.passes,
		Interval:              m.config.Interval,
		StuckAfter:            m.config.StuckAfter,
		StuckCampaigns:        append([]StuckCampaign{}, m.stuck...),
		ConsecutiveDetections: m.consecutiveDetections,
		LastAlertSentAt:       m.lastAlertSentAt,
	}

	if m.running && !m.lastRunAt.IsZero() {
		status.NextRunAt = m.lastRunAt.Add(m.config.Interval)
	}

	return status
}

func (m *Monitor) sendAlert(ctx context.Context, webhookURL string, pass int64, consecutive int, stuck []StuckCampaign) {
	ids := make([]int64, 0, len(stuck))
	for _, s := range stuck {
		ids = append(ids, s.CampaignID)
	}

	payload := map[string]any{
		"alert":                 "campaigns_stuck_sending",
		"pass":                  pass,
		"consecutiveDetections": consecutive,
		"campaignIds":           ids,
		"timestamp":             m.now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"%d campaigns stuck in sending for %d consecutive checks",
			len(stuck),
			consecutive,
		),
	}

	resp, err := m.alerts.R().
		SetContext(context.WithoutCancel(ctx)).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(webhookURL)
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	if resp.IsSuccess() {
		m.mu.Lock()
		m.lastAlertSentAt = m.now()
		m.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive detections: %d)", webhookURL, consecutive)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode())
	}
}
