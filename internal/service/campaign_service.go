package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/onurcolak/waapi-campaign-service/internal/dispatch"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

// Small internal interfaces so we can test without touching real DB/Redis/waapi.
type campaignRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	GetAll(ctx context.Context, page, pageSize int) ([]domain.Campaign, int64, error)
	Create(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error)
	Delete(ctx context.Context, id int64) error
	MarkSending(ctx context.Context, id int64, startedAt time.Time, totalContacts int) error
	GetStats(ctx context.Context) (*domain.CampaignStats, error)
}

type senderReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Sender, error)
	Count(ctx context.Context) (int64, error)
}

type contactReader interface {
	GetByList(ctx context.Context, listID int64) ([]domain.Contact, error)
	CountByList(ctx context.Context, listID int64) (int, error)
	Totals(ctx context.Context) (lists, contacts int64, err error)
}

type instanceResolver interface {
	EnsureInstanceID(ctx context.Context, sender *domain.Sender) (string, error)
}

type availabilityChecker interface {
	CheckServiceAvailability(ctx context.Context) waapi.Availability
}

type dispatcher interface {
	Launch(ctx context.Context, run dispatch.Run) (string, error)
	IsActive(campaignID int64) bool
}

// ProgressStore caches progress snapshots between checkpoints and polls.
type ProgressStore interface {
	CacheProgress(ctx context.Context, p domain.Progress) error
	GetProgress(ctx context.Context, campaignID int64) (*domain.Progress, error)
	DeleteProgress(ctx context.Context, campaignID int64) error
}

// CampaignInput carries the fields of a new campaign.
type CampaignInput struct {
	Title       string
	Message     string
	MessageType domain.MessageType
	MediaURL    string
	SenderID    int64
	ListID      int64
}

// SendStarted is returned once a run has been handed to the dispatch engine.
type SendStarted struct {
	CampaignID    int64  `json:"campaignId"`
	RunID         string `json:"runId"`
	TotalContacts int    `json:"totalContacts"`
}

type CampaignService struct {
	campaigns  campaignRepository
	senders    senderReader
	contacts   contactReader
	resolver   instanceResolver
	vendor     availabilityChecker
	dispatcher dispatcher
	progress   ProgressStore
}

// NewCampaignService wires the campaign lifecycle. progress may be nil, in
// which case progress polling always reads from the database.
func NewCampaignService(
	campaigns campaignRepository,
	senders senderReader,
	contacts contactReader,
	resolver instanceResolver,
	vendor availabilityChecker,
	dispatcher dispatcher,
	progress ProgressStore,
) *CampaignService {
	return &CampaignService{
		campaigns:  campaigns,
		senders:    senders,
		contacts:   contacts,
		resolver:   resolver,
		vendor:     vendor,
		dispatcher: dispatcher,
		progress:   progress,
	}
}

func (s *CampaignService) Create(ctx context.Context, in CampaignInput) (*domain.Campaign, error) {
	kind := in.MessageType
	if kind == "" {
		kind = domain.MessageText
	}

	if strings.TrimSpace(in.Title) == "" || in.SenderID == 0 || in.ListID == 0 {
		return nil, fmt.Errorf("%w: title, sender, and list are required", domain.ErrValidation)
	}

	var mediaURL *string
	switch kind {
	case domain.MessageMedia:
		if strings.TrimSpace(in.MediaURL) == "" {
			return nil, fmt.Errorf("%w: media URL is required for media messages", domain.ErrValidation)
		}
		url := strings.TrimSpace(in.MediaURL)
		mediaURL = &url
	case domain.MessageText:
		if strings.TrimSpace(in.Message) == "" {
			return nil, fmt.Errorf("%w: message content is required for text messages", domain.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrValidation, kind)
	}

	sender, err := s.senders.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("sender %d: %w", in.SenderID, domain.ErrNotFound)
	}
	if sender.Status != domain.SenderConnected {
		return nil, fmt.Errorf("%w: sender is not connected", domain.ErrSenderUnavailable)
	}

	count, err := s.contacts.CountByList(ctx, in.ListID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("list %d: %w", in.ListID, domain.ErrEmptyList)
	}

	campaign, err := s.campaigns.Create(ctx, &domain.Campaign{
		Title:         strings.TrimSpace(in.Title),
		Message:       in.Message,
		MessageType:   kind,
		MediaURL:      mediaURL,
		SenderID:      in.SenderID,
		ListID:        in.ListID,
		Status:        domain.CampaignDraft,
		TotalContacts: count,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Created campaign %d (%s) for %d contacts", campaign.ID, kind, count)

	return campaign, nil
}

func (s *CampaignService) GetAll(ctx context.Context, page, pageSize int) ([]domain.Campaign, int64, error) {
	return s.campaigns.GetAll(ctx, page, pageSize)
}

// Get returns the campaign with its delivery logs.
func (s *CampaignService) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %d: %w", id, domain.ErrNotFound)
	}
	return campaign, nil
}

// GetProgress serves the cached snapshot when there is one and falls back
// to the database. A cached sending snapshot is only trusted while this
// process has a live run for the campaign; otherwise the final snapshot
// may never have reached the cache.
func (s *CampaignService) GetProgress(ctx context.Context, id int64) (*domain.Progress, error) {
	if s.progress != nil {
		cached, err := s.progress.GetProgress(ctx, id)
		switch {
		case err != nil:
			logger.Warnf("Failed to read cached progress for campaign %d: %v", id, err)
		case cached == nil:
		case cached.Status != domain.CampaignSending || s.dispatcher.IsActive(id):
			return cached, nil
		}
	}

	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updatedAt := campaign.CreatedAt
	switch {
	case campaign.CompletedAt != nil:
		updatedAt = *campaign.CompletedAt
	case campaign.StartedAt != nil:
		updatedAt = *campaign.StartedAt
	}

	return &domain.Progress{
		CampaignID:    campaign.ID,
		Status:        campaign.Status,
		TotalContacts: campaign.TotalContacts,
		SuccessCount:  campaign.SuccessCount,
		FailureCount:  campaign.FailureCount,
		UpdatedAt:     updatedAt,
	}, nil
}

// Delete removes a campaign unless it is currently sending.
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("campaign %d: %w", id, domain.ErrNotFound)
	}

	if campaign.Status == domain.CampaignSending || s.dispatcher.IsActive(id) {
		return fmt.Errorf("%w: cannot delete campaign %d while it is sending", domain.ErrConflict, id)
	}

	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}

	if s.progress != nil {
		if err := s.progress.DeleteProgress(ctx, id); err != nil {
			logger.Warnf("Failed to drop cached progress for campaign %d: %v", id, err)
		}
	}

	logger.Infof("Deleted campaign %d", id)

	return nil
}

// StartSend runs the start guards in order, moves the campaign to sending
// and hands the run to the dispatch engine. It returns without waiting for
// the run.
func (s *CampaignService) StartSend(ctx context.Context, id int64) (*SendStarted, error) {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %d: %w", id, domain.ErrNotFound)
	}
	if campaign.Status != domain.CampaignDraft {
		return nil, fmt.Errorf("%w: campaign has already been sent or is currently sending", domain.ErrInvalidState)
	}

	sender, err := s.senders.GetByID(ctx, campaign.SenderID)
	if err != nil {
		return nil, err
	}
	if sender == nil || sender.Status != domain.SenderConnected {
		return nil, fmt.Errorf("%w: sender not available or disconnected", domain.ErrSenderUnavailable)
	}

	instanceID, err := s.resolver.EnsureInstanceID(ctx, sender)
	if err != nil {
		return nil, err
	}

	if availability := s.vendor.CheckServiceAvailability(ctx); !availability.Available {
		return nil, fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, availability.Message)
	}

	contacts, err := s.contacts.GetByList(ctx, campaign.ListID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("list %d: %w", campaign.ListID, domain.ErrEmptyList)
	}

	startedAt := time.Now()
	if err := s.campaigns.MarkSending(ctx, id, startedAt, len(contacts)); err != nil {
		return nil, err
	}

	s.cacheStart(ctx, id, len(contacts), startedAt)

	runID, err := s.dispatcher.Launch(ctx, dispatch.Run{
		CampaignID:  id,
		Contacts:    contacts,
		Token:       sender.Token,
		InstanceID:  instanceID,
		MessageType: campaign.MessageType,
		Message:     campaign.Message,
		MediaURL:    campaign.MediaURLValue(),
	})
	if err != nil {
		// The row already says sending and no run owns it; the monitor
		// reports it once it goes stale.
		logger.Errorf("Campaign %d is stuck in sending: marked at %s but the run failed to launch: %v",
			id, startedAt.Format(time.RFC3339), err)
		return nil, fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}

	logger.Infof("Started campaign %d (run %s) with %d contacts using instance %s",
		id, runID, len(contacts), instanceID)

	return &SendStarted{CampaignID: id, RunID: runID, TotalContacts: len(contacts)}, nil
}

func (s *CampaignService) cacheStart(ctx context.Context, id int64, total int, startedAt time.Time) {
	if s.progress == nil {
		return
	}

	err := s.progress.CacheProgress(ctx, domain.Progress{
		CampaignID:    id,
		Status:        domain.CampaignSending,
		TotalContacts: total,
		UpdatedAt:     startedAt,
	})
	if err != nil {
		logger.Warnf("Failed to cache initial progress for campaign %d: %v", id, err)
	}
}

// GetStats aggregates dashboard totals.
func (s *CampaignService) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	campaignStats, err := s.campaigns.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	senders, err := s.senders.Count(ctx)
	if err != nil {
		return nil, err
	}

	lists, contacts, err := s.contacts.Totals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{
		TotalSenders:  senders,
		TotalLists:    lists,
		TotalContacts: contacts,
		Campaigns:     *campaignStats,
	}

	if attempts := campaignStats.MessagesSent + campaignStats.MessagesFailed; attempts > 0 {
		stats.SuccessRate = int(math.Round(float64(campaignStats.MessagesSent) * 100 / float64(attempts)))
	}

	return stats, nil
}
