// Package dispatch runs campaign sends: one sequential, throttled loop per
// campaign, detached from the request that started it. Progress is reported
// only through the campaign store (and the optional progress cache).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/metrics"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

// DefaultCheckpointEvery is used when the configured batch size is not positive.
const DefaultCheckpointEvery = 5

var ErrAlreadyRunning = errors.New("campaign run already active in this process")

type campaignStore interface {
	AppendProgress(ctx context.Context, id int64, logs []domain.DeliveryLog, successCount, failureCount int) error
	Finalize(
		ctx context.Context,
		id int64,
		status domain.CampaignStatus,
		completedAt time.Time,
		successCount, failureCount int,
		pending []domain.DeliveryLog,
	) error
}

type gateway interface {
	SendMessage(ctx context.Context, req waapi.SendRequest) waapi.SendResult
}

// ProgressCache receives a snapshot after every successful write.
type ProgressCache interface {
	CacheProgress(ctx context.Context, p domain.Progress) error
}

// Run is everything the loop needs, captured when the send was accepted.
type Run struct {
	CampaignID  int64
	Contacts    []domain.Contact
	Token       string
	InstanceID  string
	MessageType domain.MessageType
	Message     string
	MediaURL    string
}

// Summary describes how a run ended. Status stays sending when the final
// write was lost or the run was interrupted.
type Summary struct {
	RunID        string
	CampaignID   int64
	Status       domain.CampaignStatus
	SuccessCount int
	FailureCount int
	Checkpoints  int
	Interrupted  bool
}

type Engine struct {
	store   campaignStore
	gateway gateway
	cache   ProgressCache
	config  environments.DispatchConfig
	now     func() time.Time

	mu     sync.Mutex
	active map[int64]string
	wg     sync.WaitGroup
}

// NewEngine builds an engine. cache may be nil.
func NewEngine(
	store campaignStore,
	gw gateway,
	cache ProgressCache,
	config environments.DispatchConfig,
) *Engine {
	if config.CheckpointEvery <= 0 {
		config.CheckpointEvery = DefaultCheckpointEvery
	}

	return &Engine{
		store:   store,
		gateway: gw,
		cache:   cache,
		config:  config,
		now:     time.Now,
		active:  make(map[int64]string),
	}
}

// Launch starts the run in its own goroutine and returns its id right away.
// The run ignores cancellation of ctx; only its values are kept.
func (e *Engine) Launch(ctx context.Context, run Run) (string, error) {
	e.mu.Lock()
	if existing, ok := e.active[run.CampaignID]; ok {
		e.mu.Unlock()
		return "", fmt.Errorf("campaign %d (run %s): %w", run.CampaignID, existing, ErrAlreadyRunning)
	}

	runID := uuid.NewString()
	e.active[run.CampaignID] = runID
	e.wg.Add(1)
	e.mu.Unlock()

	metrics.ActiveRuns.Inc()

	go func() {
		defer e.wg.Done()
		defer metrics.ActiveRuns.Dec()
		defer e.release(run.CampaignID)
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("Campaign %d run %s crashed: %v (campaign left in sending)", run.CampaignID, runID, r)
				metrics.RunsFinalized.WithLabelValues("lost").Inc()
			}
		}()

		e.execute(context.WithoutCancel(ctx), runID, run)
	}()

	return runID, nil
}

func (e *Engine) release(campaignID int64) {
	e.mu.Lock()
	delete(e.active, campaignID)
	e.mu.Unlock()
}

func (e *Engine) IsActive(campaignID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[campaignID]
	return ok
}

// ActiveCampaigns returns the ids of campaigns with a live run, sorted.
func (e *Engine) ActiveCampaigns() []int64 {
	e.mu.Lock()
	ids := make([]int64, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Wait blocks until every launched run has returned or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs the send loop synchronously. Launch hands it a context
// that is never cancelled, so only tests that call it directly can
// interrupt a run.
func (e *Engine) execute(ctx context.Context, runID string, run Run) Summary {
	log := logger.With().Int64("campaign_id", run.CampaignID).Str("run_id", runID).Logger()

	total := len(run.Contacts)
	every := e.config.CheckpointEvery

	summary := Summary{RunID: runID, CampaignID: run.CampaignID, Status: domain.CampaignSending}

	log.Info().
		Int("contacts", total).
		Str("message_type", string(run.MessageType)).
		Str("instance_id", run.InstanceID).
		Msg("campaign run started")

	// pending holds logs not yet persisted; it only shrinks on a successful write.
	pending := make([]domain.DeliveryLog, 0, every)

	for i, contact := range run.Contacts {
		entry := e.deliver(ctx, run, i, contact)
		pending = append(pending, entry)

		if entry.Status == domain.DeliverySent {
			summary.SuccessCount++
			log.Debug().Str("phone", contact.Phone).Int("position", i+1).Msg("message sent")
		} else {
			summary.FailureCount++
			log.Warn().Str("phone", contact.Phone).Int("position", i+1).Str("reason", deref(entry.Error)).Msg("message failed")
		}
		metrics.MessagesTotal.WithLabelValues(string(entry.Status)).Inc()

		last := i == total-1

		if (i+1)%every == 0 || last {
			if err := e.store.AppendProgress(ctx, run.CampaignID, pending, summary.SuccessCount, summary.FailureCount); err != nil {
				metrics.CheckpointErrors.Inc()
				log.Error().Err(err).Int("pending_logs", len(pending)).Msg("checkpoint failed, keeping logs for next write")
			} else {
				summary.Checkpoints++
				pending = make([]domain.DeliveryLog, 0, every)
				e.cacheProgress(ctx, log, run, total, domain.CampaignSending, summary)
			}
		}

		if !last && !e.pause(ctx) {
			summary.Interrupted = true
			log.Warn().Int("position", i+1).Msg("campaign run interrupted, campaign left in sending")
			return summary
		}
	}

	e.finalize(ctx, log, run, total, pending, &summary)

	return summary
}

// deliver sends to one contact. A panic inside the gateway becomes a failed log.
func (e *Engine) deliver(ctx context.Context, run Run, seq int, contact domain.Contact) (entry domain.DeliveryLog) {
	entry = domain.DeliveryLog{CampaignID: run.CampaignID, Seq: seq, Phone: contact.Phone}

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("Unexpected error: %v", r)
			entry.Status = domain.DeliveryFailed
			entry.Error = &reason
			entry.MessageID = nil
			entry.SentAt = e.now()
		}
	}()

	result := e.gateway.SendMessage(ctx, waapi.SendRequest{
		Phone:      contact.Phone,
		Body:       run.Message,
		Token:      run.Token,
		InstanceID: run.InstanceID,
		Kind:       run.MessageType,
		MediaURL:   run.MediaURL,
	})
	entry.SentAt = e.now()

	if result.Delivered {
		entry.Status = domain.DeliverySent
		if result.MessageID != "" {
			id := result.MessageID
			entry.MessageID = &id
		}
		return entry
	}

	reason := result.Error
	if reason == "" {
		reason = "unknown delivery error"
	}
	entry.Status = domain.DeliveryFailed
	entry.Error = &reason

	return entry
}

// finalize writes done, falling back once to failed. If both writes fail the
// campaign stays in sending for the stale-run monitor to report.
func (e *Engine) finalize(
	ctx context.Context,
	log zerolog.Logger,
	run Run,
	total int,
	pending []domain.DeliveryLog,
	summary *Summary,
) {
	completedAt := e.now()

	err := e.store.Finalize(ctx, run.CampaignID, domain.CampaignDone, completedAt,
		summary.SuccessCount, summary.FailureCount, pending)
	if err == nil {
		summary.Status = domain.CampaignDone
		metrics.RunsFinalized.WithLabelValues("done").Inc()
		e.cacheProgress(ctx, log, run, total, domain.CampaignDone, *summary)
		log.Info().
			Int("sent", summary.SuccessCount).
			Int("failed", summary.FailureCount).
			Msg("campaign run completed")
		return
	}

	log.Error().Err(err).Msg("final campaign write failed, marking campaign failed")

	fallbackErr := e.store.Finalize(ctx, run.CampaignID, domain.CampaignFailed, completedAt,
		summary.SuccessCount, summary.FailureCount, pending)
	if fallbackErr == nil {
		summary.Status = domain.CampaignFailed
		metrics.RunsFinalized.WithLabelValues("failed_fallback").Inc()
		e.cacheProgress(ctx, log, run, total, domain.CampaignFailed, *summary)
		return
	}

	metrics.RunsFinalized.WithLabelValues("lost").Inc()
	log.Error().Err(fallbackErr).Msg("could not record final status, campaign left in sending")
}

func (e *Engine) cacheProgress(
	ctx context.Context,
	log zerolog.Logger,
	run Run,
	total int,
	status domain.CampaignStatus,
	summary Summary,
) {
	if e.cache == nil {
		return
	}

	err := e.cache.CacheProgress(ctx, domain.Progress{
		CampaignID:    run.CampaignID,
		Status:        status,
		TotalContacts: total,
		SuccessCount:  summary.SuccessCount,
		FailureCount:  summary.FailureCount,
		UpdatedAt:     e.now(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to cache campaign progress")
	}
}

// pause waits the configured interval between two sends.
func (e *Engine) pause(ctx context.Context) bool {
	if e.config.SendInterval <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(e.config.SendInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
