package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
)

// fakeFinder is a simple test double for stuckFinder.
type fakeFinder struct {
	mu        sync.Mutex
	campaigns []domain.Campaign
	cutoffs   []time.Time
}

func (f *fakeFinder) ListStuck(ctx context.Context, startedBefore time.Time) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, startedBefore)
	return f.campaigns, nil
}

type fakeTracker map[int64]bool

func (t fakeTracker) IsActive(id int64) bool { return t[id] }

func sendingCampaign(id int64, startedAt time.Time) domain.Campaign {
	return domain.Campaign{
		ID:            id,
		Title:         "stale",
		Status:        domain.CampaignSending,
		StartedAt:     &startedAt,
		TotalContacts: 10,
		SuccessCount:  3,
	}
}

func TestMonitor_Check_SkipsCampaignsWithLiveRun(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	started := now.Add(-2 * time.Hour)

	finder := &fakeFinder{campaigns: []domain.Campaign{
		sendingCampaign(1, started),
		sendingCampaign(2, started),
	}}

	m := New(finder, fakeTracker{2: true}, environments.MonitorConfig{
		Interval:   time.Minute,
		StuckAfter: 30 * time.Minute,
	})
	m.now = func() time.Time { return now }

	m.check(context.Background())

	if len(finder.cutoffs) != 1 || !finder.cutoffs[0].Equal(now.Add(-30*time.Minute)) {
		t.Fatalf("unexpected cutoff: %v", finder.cutoffs)
	}

	status := m.GetStatus()
	if len(status.StuckCampaigns) != 1 || status.StuckCampaigns[0].CampaignID != 1 {
		t.Fatalf("expected only campaign 1 reported, got %+v", status.StuckCampaigns)
	}
	if status.ConsecutiveDetections != 1 || status.Passes != 1 {
		t.Errorf("unexpected counters: %+v", status)
	}
}

func TestMonitor_Check_ResetsCounterWhenClear(t *testing.T) {
	finder := &fakeFinder{campaigns: []domain.Campaign{sendingCampaign(1, time.Now().Add(-time.Hour))}}
	m := New(finder, fakeTracker{}, environments.MonitorConfig{StuckAfter: time.Minute})

	m.check(context.Background())
	m.check(context.Background())
	if got := m.GetStatus().ConsecutiveDetections; got != 2 {
		t.Fatalf("expected 2 consecutive detections, got %d", got)
	}

	finder.mu.Lock()
	finder.campaigns = nil
	finder.mu.Unlock()

	m.check(context.Background())
	status := m.GetStatus()
	if status.ConsecutiveDetections != 0 || len(status.StuckCampaigns) != 0 {
		t.Fatalf("expected clean status, got %+v", status)
	}
}

func TestMonitor_Check_AlertsAfterThreshold(t *testing.T) {
	alerts := make(chan map[string]any, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		alerts <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	finder := &fakeFinder{campaigns: []domain.Campaign{sendingCampaign(5, time.Now().Add(-time.Hour))}}
	m := New(finder, fakeTracker{}, environments.MonitorConfig{
		StuckAfter:      time.Minute,
		AlertWebhookURL: server.URL,
		AlertThreshold:  2,
	})

	m.check(context.Background())

	select {
	case <-alerts:
		t.Fatal("expected no alert before threshold")
	case <-time.After(50 * time.Millisecond):
	}

	m.check(context.Background())

	select {
	case body := <-alerts:
		if body["alert"] != "campaigns_stuck_sending" {
			t.Errorf("unexpected alert payload: %v", body)
		}
		if body["consecutiveDetections"] != float64(2) {
			t.Errorf("expected consecutiveDetections=2, got %v", body["consecutiveDetections"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected an alert after threshold")
	}
}

func TestMonitor_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(&fakeFinder{}, fakeTracker{}, environments.MonitorConfig{Interval: 10 * time.Millisecond})

	if m.IsRunning() {
		t.Fatalf("expected monitor to be not running initially")
	}

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !m.IsRunning() {
		t.Fatalf("expected monitor to be running after Start")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if m.IsRunning() {
		t.Fatalf("expected monitor to be not running after Stop")
	}
}
