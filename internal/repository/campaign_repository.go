package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
)

const campaignColumns = `id, title, message, message_type, media_url, sender_id, list_id, status,
	total_contacts, success_count, failure_count, created_at, started_at, completed_at`

// CampaignRepository handles database operations for campaigns and their delivery logs.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// GetByID returns the campaign with its logs ordered by contact position,
// or nil when it does not exist.
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = ?`

	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	logsQuery := `
		SELECT campaign_id, seq, phone, status, error, message_id, sent_at
		FROM campaign_logs
		WHERE campaign_id = ?
		ORDER BY seq ASC
	`

	campaign.Logs = []domain.DeliveryLog{}
	if err := r.db.SelectContext(ctx, &campaign.Logs, logsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get campaign logs: %w", err)
	}

	return &campaign, nil
}

func (r *CampaignRepository) GetAll(ctx context.Context, page, pageSize int) ([]domain.Campaign, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM campaigns"); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	campaigns := []domain.Campaign{}
	if err := r.db.SelectContext(ctx, &campaigns, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get campaigns: %w", err)
	}

	return campaigns, totalCount, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	query := `
		INSERT INTO campaigns (title, message, message_type, media_url, sender_id, list_id, status, total_contacts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'draft', ?, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query,
		c.Title, c.Message, c.MessageType, c.MediaURL, c.SenderID, c.ListID, c.TotalContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a campaign that is not currently sending. Logs go with it
// through the foreign key cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ? AND status <> 'sending'", id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("campaign %d not deletable: %w", id, domain.ErrConflict)
	}

	return nil
}

// MarkSending moves a draft campaign to sending and clears any previous logs.
// It fails with domain.ErrInvalidState if the campaign is no longer a draft,
// which makes concurrent starts of the same campaign lose the race cleanly.
func (r *CampaignRepository) MarkSending(ctx context.Context, id int64, startedAt time.Time, totalContacts int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sending', started_at = ?, completed_at = NULL,
		    total_contacts = ?, success_count = 0, failure_count = 0
		WHERE id = ? AND status = 'draft'
	`, startedAt, totalContacts, id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign as sending: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign %d is not a draft: %w", id, domain.ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM campaign_logs WHERE campaign_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear campaign logs: %w", err)
	}

	return tx.Commit()
}

// AppendProgress stores a batch of new logs and the running counters atomically.
func (r *CampaignRepository) AppendProgress(
	ctx context.Context,
	id int64,
	logs []domain.DeliveryLog,
	successCount, failureCount int,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertLogs(ctx, tx, id, logs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE campaigns SET success_count = ?, failure_count = ?
		WHERE id = ? AND status = 'sending'
	`, successCount, failureCount, id); err != nil {
		return fmt.Errorf("failed to update campaign counters: %w", err)
	}

	return tx.Commit()
}

// Finalize writes the terminal status, final counters and any logs that
// have not been checkpointed yet.
func (r *CampaignRepository) Finalize(
	ctx context.Context,
	id int64,
	status domain.CampaignStatus,
	completedAt time.Time,
	successCount, failureCount int,
	pending []domain.DeliveryLog,
) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finalize with non-terminal status %q: %w", status, domain.ErrInvalidState)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertLogs(ctx, tx, id, pending); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET status = ?, completed_at = ?, success_count = ?, failure_count = ?
		WHERE id = ? AND status = 'sending'
	`, status, completedAt, successCount, failureCount, id)
	if err != nil {
		return fmt.Errorf("failed to finalize campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign %d is not sending: %w", id, domain.ErrInvalidState)
	}

	return tx.Commit()
}

// ListStuck returns campaigns still in sending that started before the cutoff.
func (r *CampaignRepository) ListStuck(ctx context.Context, startedBefore time.Time) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'sending' AND started_at < ?
		ORDER BY started_at ASC
	`

	campaigns := []domain.Campaign{}
	if err := r.db.SelectContext(ctx, &campaigns, query, startedBefore); err != nil {
		return nil, fmt.Errorf("failed to list stuck campaigns: %w", err)
	}

	return campaigns, nil
}

// GetStats returns campaign status distribution and message totals.
func (r *CampaignRepository) GetStats(ctx context.Context) (*domain.CampaignStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_campaigns,
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0)   AS draft,
			COALESCE(SUM(CASE WHEN status = 'sending' THEN 1 ELSE 0 END), 0) AS sending,
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)    AS done,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed,
			COALESCE(SUM(success_count), 0) AS messages_sent,
			COALESCE(SUM(failure_count), 0) AS messages_failed,
			COALESCE(SUM(CASE WHEN message_type = 'text' THEN 1 ELSE 0 END), 0)  AS text_campaigns,
			COALESCE(SUM(CASE WHEN message_type = 'media' THEN 1 ELSE 0 END), 0) AS media_campaigns
		FROM campaigns
	`

	var stats domain.CampaignStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

func insertLogs(ctx context.Context, tx *sqlx.Tx, campaignID int64, logs []domain.DeliveryLog) error {
	if len(logs) == 0 {
		return nil
	}

	rows := make([]domain.DeliveryLog, len(logs))
	for i, l := range logs {
		l.CampaignID = campaignID
		rows[i] = l
	}

	query := `
		INSERT INTO campaign_logs (campaign_id, seq, phone, status, error, message_id, sent_at)
		VALUES (:campaign_id, :seq, :phone, :status, :error, :message_id, :sent_at)
	`

	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("failed to insert campaign logs: %w", err)
	}

	return nil
}
