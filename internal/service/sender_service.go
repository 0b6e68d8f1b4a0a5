package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

type senderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Sender, error)
	GetAll(ctx context.Context) ([]domain.Sender, error)
	GetMissingInstanceID(ctx context.Context) ([]domain.Sender, error)
	Create(ctx context.Context, s *domain.Sender) (*domain.Sender, error)
	Update(ctx context.Context, s *domain.Sender) error
	FillInstanceID(ctx context.Context, id int64, instanceID string) error
	UpdateStatus(ctx context.Context, id int64, status domain.SenderStatus) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// credentialClient is the part of the waapi client used to manage sender credentials.
type credentialClient interface {
	ResolveInstanceID(ctx context.Context, token string) (string, error)
	VerifyCredential(ctx context.Context, token, instanceID string) bool
	TestConnection(ctx context.Context, token, instanceID string) error
}

// SenderInput carries the writable fields of a sender. An empty InstanceID
// asks for auto-detection.
type SenderInput struct {
	Name       string
	Token      string
	InstanceID string
}

type SenderService struct {
	repo    senderRepository
	gateway credentialClient
	config  environments.DispatchConfig
}

func NewSenderService(
	repo senderRepository,
	gateway credentialClient,
	config environments.DispatchConfig,
) *SenderService {
	return &SenderService{
		repo:    repo,
		gateway: gateway,
		config:  config,
	}
}

func (s *SenderService) Create(ctx context.Context, in SenderInput) (*domain.Sender, error) {
	sender := &domain.Sender{
		Name:   strings.TrimSpace(in.Name),
		Token:  strings.TrimSpace(in.Token),
		Status: domain.SenderDisconnected,
	}

	s.resolveCredential(ctx, sender, in.InstanceID)

	created, err := s.repo.Create(ctx, sender)
	if err != nil {
		return nil, err
	}

	logger.Infof("Created sender %d (%s), instance: %q, status: %s",
		created.ID, created.Name, created.InstanceIDValue(), created.Status)

	return created, nil
}

func (s *SenderService) Update(ctx context.Context, id int64, in SenderInput) (*domain.Sender, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("sender %d: %w", id, domain.ErrNotFound)
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Token = strings.TrimSpace(in.Token)
	existing.InstanceID = nil
	existing.Status = domain.SenderDisconnected

	s.resolveCredential(ctx, existing, in.InstanceID)

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	logger.Infof("Updated sender %d, instance: %q, status: %s", id, existing.InstanceIDValue(), existing.Status)

	return existing, nil
}

// resolveCredential fills the instance id (auto-detecting it when not given)
// and sets the connectivity status from a credential check. Detection
// failures leave the sender without an instance id and disconnected.
func (s *SenderService) resolveCredential(ctx context.Context, sender *domain.Sender, instanceID string) {
	instanceID = strings.TrimSpace(instanceID)

	if instanceID == "" {
		detected, err := s.gateway.ResolveInstanceID(ctx, sender.Token)
		if err != nil {
			logger.Warnf("Instance id detection failed for sender %q: %v", sender.Name, err)
			return
		}
		logger.Infof("Auto-detected instance id %s for sender %q", detected, sender.Name)
		instanceID = detected
	}

	sender.InstanceID = &instanceID
	if s.gateway.VerifyCredential(ctx, sender.Token, instanceID) {
		sender.Status = domain.SenderConnected
	}
}

func (s *SenderService) Get(ctx context.Context, id int64) (*domain.Sender, error) {
	sender, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("sender %d: %w", id, domain.ErrNotFound)
	}
	return sender, nil
}

func (s *SenderService) GetAll(ctx context.Context) ([]domain.Sender, error) {
	return s.repo.GetAll(ctx)
}

func (s *SenderService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *SenderService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// TestConnection probes the vendor with the sender's credential.
func (s *SenderService) TestConnection(ctx context.Context, id int64) error {
	sender, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !sender.HasInstanceID() {
		return fmt.Errorf("sender %d has no instance id: %w", id, domain.ErrSenderUnavailable)
	}

	if err := s.gateway.TestConnection(ctx, sender.Token, sender.InstanceIDValue()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	return nil
}

// EnsureInstanceID returns the sender's instance id, resolving and persisting
// it first when the sender has none.
func (s *SenderService) EnsureInstanceID(ctx context.Context, sender *domain.Sender) (string, error) {
	if sender.HasInstanceID() {
		return sender.InstanceIDValue(), nil
	}

	instanceID, err := s.gateway.ResolveInstanceID(ctx, sender.Token)
	if err != nil {
		return "", fmt.Errorf(
			"%w: sender missing instance ID and auto-detection failed: %v. Please edit the sender and add an instance ID manually",
			domain.ErrSenderUnavailable, err,
		)
	}

	if err := s.repo.FillInstanceID(ctx, sender.ID, instanceID); err != nil {
		return "", err
	}

	sender.InstanceID = &instanceID
	logger.Infof("Auto-detected and saved instance id %s for sender %d", instanceID, sender.ID)

	return instanceID, nil
}

// MigrateMissingInstanceIDs resolves the instance id of every sender that
// lacks one, pausing between senders. Senders that already have an id are
// never touched.
func (s *SenderService) MigrateMissingInstanceIDs(ctx context.Context) (*domain.MigrationReport, error) {
	senders, err := s.repo.GetMissingInstanceID(ctx)
	if err != nil {
		return nil, err
	}

	logger.Infof("Found %d senders without instance id", len(senders))

	report := &domain.MigrationReport{Results: make([]domain.MigrationResult, 0, len(senders))}

	for i := range senders {
		if i > 0 {
			if err := sleep(ctx, s.config.MigrationDelay); err != nil {
				return report, err
			}
		}

		result := s.migrateSender(ctx, &senders[i])
		report.Results = append(report.Results, result)
		report.Processed++
		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	logger.Infof("Migration completed: %d success, %d failed", report.Succeeded, report.Failed)

	return report, nil
}

func (s *SenderService) migrateSender(ctx context.Context, sender *domain.Sender) domain.MigrationResult {
	result := domain.MigrationResult{SenderID: sender.ID, SenderName: sender.Name}

	instanceID, err := s.gateway.ResolveInstanceID(ctx, sender.Token)
	if err != nil {
		logger.Warnf("Failed to get instance id for sender %s: %v", sender.Name, err)
		result.Error = err.Error()
		return result
	}

	if err := s.repo.FillInstanceID(ctx, sender.ID, instanceID); err != nil {
		result.Error = err.Error()
		return result
	}

	status := domain.SenderDisconnected
	if s.gateway.VerifyCredential(ctx, sender.Token, instanceID) {
		status = domain.SenderConnected
	}

	if err := s.repo.UpdateStatus(ctx, sender.ID, status); err != nil {
		result.Error = err.Error()
		return result
	}

	logger.Infof("Updated sender %s with instance id %s (%s)", sender.Name, instanceID, status)

	result.Success = true
	result.InstanceID = instanceID
	result.Status = status

	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ credentialClient = (*waapi.Client)(nil)
