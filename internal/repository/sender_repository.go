package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
)

const senderColumns = `id, name, token, instance_id, status, created_at`

// SenderRepository handles database operations for senders.
type SenderRepository struct {
	db *sqlx.DB
}

func NewSenderRepository(db *sqlx.DB) *SenderRepository {
	return &SenderRepository{db: db}
}

func (r *SenderRepository) GetByID(ctx context.Context, id int64) (*domain.Sender, error) {
	query := `SELECT ` + senderColumns + ` FROM senders WHERE id = ?`

	var sender domain.Sender
	if err := r.db.GetContext(ctx, &sender, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	return &sender, nil
}

func (r *SenderRepository) GetAll(ctx context.Context) ([]domain.Sender, error) {
	query := `SELECT ` + senderColumns + ` FROM senders ORDER BY created_at DESC, id DESC`

	senders := []domain.Sender{}
	if err := r.db.SelectContext(ctx, &senders, query); err != nil {
		return nil, fmt.Errorf("failed to get senders: %w", err)
	}

	return senders, nil
}

func (r *SenderRepository) GetMissingInstanceID(ctx context.Context) ([]domain.Sender, error) {
	query := `SELECT ` + senderColumns + `
		FROM senders
		WHERE instance_id IS NULL OR instance_id = ''
		ORDER BY id ASC
	`

	senders := []domain.Sender{}
	if err := r.db.SelectContext(ctx, &senders, query); err != nil {
		return nil, fmt.Errorf("failed to get senders without instance id: %w", err)
	}

	return senders, nil
}

func (r *SenderRepository) Create(ctx context.Context, s *domain.Sender) (*domain.Sender, error) {
	query := `
		INSERT INTO senders (name, token, instance_id, status, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, s.Name, s.Token, s.InstanceID, s.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *SenderRepository) Update(ctx context.Context, s *domain.Sender) error {
	query := `
		UPDATE senders
		SET name = ?, token = ?, instance_id = ?, status = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, s.Name, s.Token, s.InstanceID, s.Status, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update sender: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	// MySQL reports 0 rows for an update that changes nothing.
	if rows == 0 {
		existing, err := r.GetByID(ctx, s.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("sender %d: %w", s.ID, domain.ErrNotFound)
		}
	}

	return nil
}

// FillInstanceID sets the instance id only if the sender has none yet,
// so concurrent fills never overwrite a resolved value.
func (r *SenderRepository) FillInstanceID(ctx context.Context, id int64, instanceID string) error {
	query := `
		UPDATE senders
		SET instance_id = ?
		WHERE id = ? AND (instance_id IS NULL OR instance_id = '')
	`

	if _, err := r.db.ExecContext(ctx, query, instanceID, id); err != nil {
		return fmt.Errorf("failed to set sender instance id: %w", err)
	}

	return nil
}

func (r *SenderRepository) UpdateStatus(ctx context.Context, id int64, status domain.SenderStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE senders SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("failed to update sender status: %w", err)
	}

	return nil
}

func (r *SenderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM senders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sender: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("sender %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *SenderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM senders"); err != nil {
		return 0, fmt.Errorf("failed to count senders: %w", err)
	}
	return count, nil
}
