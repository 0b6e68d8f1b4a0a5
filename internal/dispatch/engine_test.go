package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

//
// Test fakes – only for this file.
//

type checkpoint struct {
	logs    []domain.DeliveryLog
	success int
	failure int
}

type finalizeCall struct {
	status  domain.CampaignStatus
	success int
	failure int
	pending []domain.DeliveryLog
}

type fakeStore struct {
	mu sync.Mutex

	// checkpointErrs[i] is returned by the i-th AppendProgress call.
	checkpointErrs []error
	// finalizeErrs[i] is returned by the i-th Finalize call.
	finalizeErrs []error

	checkpoints []checkpoint
	finalizes   []finalizeCall
	persisted   []domain.DeliveryLog
}

func (s *fakeStore) AppendProgress(ctx context.Context, id int64, logs []domain.DeliveryLog, success, failure int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.checkpoints)
	s.checkpoints = append(s.checkpoints, checkpoint{
		logs:    append([]domain.DeliveryLog(nil), logs...),
		success: success,
		failure: failure,
	})

	if n < len(s.checkpointErrs) && s.checkpointErrs[n] != nil {
		return s.checkpointErrs[n]
	}

	s.persisted = append(s.persisted, logs...)
	return nil
}

func (s *fakeStore) Finalize(
	ctx context.Context,
	id int64,
	status domain.CampaignStatus,
	completedAt time.Time,
	success, failure int,
	pending []domain.DeliveryLog,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.finalizes)
	s.finalizes = append(s.finalizes, finalizeCall{
		status:  status,
		success: success,
		failure: failure,
		pending: append([]domain.DeliveryLog(nil), pending...),
	})

	if n < len(s.finalizeErrs) && s.finalizeErrs[n] != nil {
		return s.finalizeErrs[n]
	}

	s.persisted = append(s.persisted, pending...)
	return nil
}

// fakeGateway fails any phone listed in failures and panics for phones in panics.
type fakeGateway struct {
	mu       sync.Mutex
	failures map[string]string
	panics   map[string]bool
	sent     []string
}

func (g *fakeGateway) SendMessage(ctx context.Context, req waapi.SendRequest) waapi.SendResult {
	g.mu.Lock()
	g.sent = append(g.sent, req.Phone)
	g.mu.Unlock()

	if g.panics[req.Phone] {
		panic("boom")
	}
	if reason, ok := g.failures[req.Phone]; ok {
		return waapi.SendResult{Error: reason}
	}
	return waapi.SendResult{Delivered: true, MessageID: "m-" + req.Phone}
}

type fakeCache struct {
	mu        sync.Mutex
	snapshots []domain.Progress
}

func (c *fakeCache) CacheProgress(ctx context.Context, p domain.Progress) error {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, p)
	c.mu.Unlock()
	return nil
}

func contacts(n int) []domain.Contact {
	out := make([]domain.Contact, n)
	for i := range out {
		out[i] = domain.Contact{ID: int64(i + 1), Name: fmt.Sprintf("c%d", i+1), Phone: fmt.Sprintf("+9055500000%02d", i+1)}
	}
	return out
}

func testConfig() environments.DispatchConfig {
	return environments.DispatchConfig{SendInterval: 0, CheckpointEvery: 5}
}

func newRun(cs []domain.Contact) Run {
	return Run{
		CampaignID:  7,
		Contacts:    cs,
		Token:       "tok",
		InstanceID:  "I1",
		MessageType: domain.MessageText,
		Message:     "hello",
	}
}

//
// Tests
//

func TestRunLoop_CheckpointsAndFinalizes(t *testing.T) {
	cs := contacts(12)
	gw := &fakeGateway{failures: map[string]string{
		cs[10].Phone: "rejected",
		cs[11].Phone: "rejected",
	}}
	store := &fakeStore{}
	cache := &fakeCache{}

	engine := NewEngine(store, gw, cache, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(cs))

	if summary.Status != domain.CampaignDone {
		t.Fatalf("expected done, got %s", summary.Status)
	}
	if summary.SuccessCount != 10 || summary.FailureCount != 2 {
		t.Fatalf("expected 10/2, got %d/%d", summary.SuccessCount, summary.FailureCount)
	}

	wantCounts := []int{5, 10, 12}
	if len(store.checkpoints) != len(wantCounts) {
		t.Fatalf("expected %d checkpoints, got %d", len(wantCounts), len(store.checkpoints))
	}
	for i, cp := range store.checkpoints {
		if got := cp.success + cp.failure; got != wantCounts[i] {
			t.Errorf("checkpoint %d: expected %d processed, got %d", i, wantCounts[i], got)
		}
	}

	last := store.checkpoints[2]
	if last.success != 10 || last.failure != 2 {
		t.Errorf("last checkpoint: expected 10/2, got %d/%d", last.success, last.failure)
	}

	if len(store.finalizes) != 1 || store.finalizes[0].status != domain.CampaignDone {
		t.Fatalf("expected one finalize with done, got %+v", store.finalizes)
	}
	if len(store.finalizes[0].pending) != 0 {
		t.Errorf("expected no pending logs at finalize, got %d", len(store.finalizes[0].pending))
	}

	if len(store.persisted) != 12 {
		t.Fatalf("expected 12 persisted logs, got %d", len(store.persisted))
	}
	for i, l := range store.persisted {
		if l.Seq != i || l.Phone != cs[i].Phone {
			t.Errorf("log %d out of order: seq=%d phone=%s", i, l.Seq, l.Phone)
		}
	}
	if store.persisted[0].Status != domain.DeliverySent || store.persisted[0].MessageID == nil {
		t.Errorf("expected first log sent with message id, got %+v", store.persisted[0])
	}
	if store.persisted[11].Status != domain.DeliveryFailed || store.persisted[11].Error == nil || *store.persisted[11].Error != "rejected" {
		t.Errorf("expected last log failed with reason, got %+v", store.persisted[11])
	}

	if len(cache.snapshots) == 0 || cache.snapshots[len(cache.snapshots)-1].Status != domain.CampaignDone {
		t.Errorf("expected final cached snapshot to be done, got %+v", cache.snapshots)
	}
}

func TestRunLoop_PanicBecomesFailedLog(t *testing.T) {
	cs := contacts(3)
	gw := &fakeGateway{panics: map[string]bool{cs[1].Phone: true}}
	store := &fakeStore{}

	engine := NewEngine(store, gw, nil, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(cs))

	if summary.Status != domain.CampaignDone {
		t.Fatalf("expected done, got %s", summary.Status)
	}
	if summary.SuccessCount != 2 || summary.FailureCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", summary.SuccessCount, summary.FailureCount)
	}
	if len(gw.sent) != 3 {
		t.Fatalf("expected loop to continue after panic, got %d sends", len(gw.sent))
	}

	failed := store.persisted[1]
	if failed.Status != domain.DeliveryFailed || failed.Error == nil || *failed.Error != "Unexpected error: boom" {
		t.Errorf("unexpected log for panicking contact: %+v", failed)
	}
}

func TestRunLoop_FailedCheckpointKeepsLogs(t *testing.T) {
	cs := contacts(7)
	store := &fakeStore{checkpointErrs: []error{errors.New("db down")}}

	engine := NewEngine(store, &fakeGateway{}, nil, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(cs))

	if summary.Status != domain.CampaignDone {
		t.Fatalf("expected done, got %s", summary.Status)
	}
	if len(store.checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoint attempts, got %d", len(store.checkpoints))
	}
	if got := len(store.checkpoints[1].logs); got != 7 {
		t.Errorf("expected retried checkpoint to carry 7 logs, got %d", got)
	}
	if summary.Checkpoints != 1 {
		t.Errorf("expected 1 successful checkpoint, got %d", summary.Checkpoints)
	}
	if len(store.persisted) != 7 {
		t.Errorf("expected 7 persisted logs, got %d", len(store.persisted))
	}
}

func TestRunLoop_FinalWriteFallsBackToFailed(t *testing.T) {
	cs := contacts(2)
	store := &fakeStore{
		checkpointErrs: []error{errors.New("db down")},
		finalizeErrs:   []error{errors.New("db down")},
	}

	engine := NewEngine(store, &fakeGateway{}, nil, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(cs))

	if summary.Status != domain.CampaignFailed {
		t.Fatalf("expected failed, got %s", summary.Status)
	}
	if len(store.finalizes) != 2 {
		t.Fatalf("expected 2 finalize attempts, got %d", len(store.finalizes))
	}
	fallback := store.finalizes[1]
	if fallback.status != domain.CampaignFailed || fallback.success != 2 || len(fallback.pending) != 2 {
		t.Errorf("unexpected fallback write: %+v", fallback)
	}
}

func TestRunLoop_BothFinalWritesFail(t *testing.T) {
	store := &fakeStore{finalizeErrs: []error{errors.New("a"), errors.New("b")}}

	engine := NewEngine(store, &fakeGateway{}, nil, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(contacts(1)))

	if summary.Status != domain.CampaignSending {
		t.Fatalf("expected campaign left in sending, got %s", summary.Status)
	}
	if len(store.finalizes) != 2 {
		t.Fatalf("expected 2 finalize attempts, got %d", len(store.finalizes))
	}
}

func TestRunLoop_EmptyRunFinalizes(t *testing.T) {
	store := &fakeStore{}

	engine := NewEngine(store, &fakeGateway{}, nil, testConfig())
	summary := engine.execute(context.Background(), "run-1", newRun(nil))

	if summary.Status != domain.CampaignDone {
		t.Fatalf("expected done, got %s", summary.Status)
	}
	if len(store.checkpoints) != 0 {
		t.Errorf("expected no checkpoints, got %d", len(store.checkpoints))
	}
}

func TestRunLoop_CancelledContextInterruptsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	engine := NewEngine(store, &fakeGateway{}, nil, environments.DispatchConfig{
		SendInterval:    time.Hour,
		CheckpointEvery: 5,
	})

	summary := engine.execute(ctx, "run-1", newRun(contacts(3)))

	if !summary.Interrupted {
		t.Fatal("expected run to be interrupted")
	}
	if len(store.finalizes) != 0 {
		t.Errorf("expected no final write, got %d", len(store.finalizes))
	}
}

func TestLaunch_DetachesAndTracksActiveRuns(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, &fakeGateway{}, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := engine.Launch(ctx, newRun(contacts(6)))
	cancel()

	if err != nil {
		t.Fatalf("unexpected launch error: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()

	if err := engine.Wait(waitCtx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if engine.IsActive(7) {
		t.Error("expected campaign to be released after run")
	}
	if len(store.finalizes) != 1 || store.finalizes[0].status != domain.CampaignDone {
		t.Fatalf("expected run to finish despite cancelled request context, got %+v", store.finalizes)
	}
	if len(store.persisted) != 6 {
		t.Errorf("expected 6 persisted logs, got %d", len(store.persisted))
	}
}

func TestLaunch_RejectsSecondRunForSameCampaign(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, &fakeGateway{}, nil, environments.DispatchConfig{
		SendInterval:    50 * time.Millisecond,
		CheckpointEvery: 5,
	})

	if _, err := engine.Launch(context.Background(), newRun(contacts(3))); err != nil {
		t.Fatalf("unexpected launch error: %v", err)
	}

	_, err := engine.Launch(context.Background(), newRun(contacts(3)))
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if got := engine.ActiveCampaigns(); len(got) != 1 || got[0] != 7 {
		t.Errorf("expected active campaigns [7], got %v", got)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Wait(waitCtx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
}
