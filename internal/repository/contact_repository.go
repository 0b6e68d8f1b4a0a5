package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
)

// ContactRepository handles database operations for contact lists and contacts.
type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) GetListByID(ctx context.Context, id int64) (*domain.List, error) {
	var list domain.List
	err := r.db.GetContext(ctx, &list, "SELECT id, name, description, created_at FROM lists WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	return &list, nil
}

func (r *ContactRepository) GetLists(ctx context.Context) ([]domain.List, error) {
	lists := []domain.List{}
	query := "SELECT id, name, description, created_at FROM lists ORDER BY created_at DESC, id DESC"
	if err := r.db.SelectContext(ctx, &lists, query); err != nil {
		return nil, fmt.Errorf("failed to get lists: %w", err)
	}

	return lists, nil
}

func (r *ContactRepository) CreateList(ctx context.Context, name string, description *string) (*domain.List, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO lists (name, description, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetListByID(ctx, id)
}

func (r *ContactRepository) UpdateList(ctx context.Context, id int64, name string, description *string) (*domain.List, error) {
	// MySQL reports 0 rows for an update that changes nothing, so the
	// re-read below decides whether the list exists.
	if _, err := r.db.ExecContext(ctx,
		"UPDATE lists SET name = ?, description = ? WHERE id = ?",
		name, description, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update list: %w", err)
	}

	list, err := r.GetListByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("list %d: %w", id, domain.ErrNotFound)
	}

	return list, nil
}

// DeleteList removes the list; contacts go with it through the foreign key cascade.
func (r *ContactRepository) DeleteList(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("list %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetByList returns the contacts of a list in stored order.
func (r *ContactRepository) GetByList(ctx context.Context, listID int64) ([]domain.Contact, error) {
	query := `
		SELECT id, list_id, name, phone, created_at
		FROM contacts
		WHERE list_id = ?
		ORDER BY id ASC
	`

	contacts := []domain.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, listID); err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}

	return contacts, nil
}

func (r *ContactRepository) CountByList(ctx context.Context, listID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM contacts WHERE list_id = ?", listID); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	return count, nil
}

func (r *ContactRepository) Create(ctx context.Context, listID int64, name, phone string) (*domain.Contact, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO contacts (list_id, name, phone, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		listID, name, phone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetContactByID(ctx, id)
}

// GetContactByID returns the contact or nil when it does not exist.
func (r *ContactRepository) GetContactByID(ctx context.Context, id int64) (*domain.Contact, error) {
	var contact domain.Contact
	query := "SELECT id, list_id, name, phone, created_at FROM contacts WHERE id = ?"
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

// UpdateContact replaces a contact's fields; listID may move it to another list.
func (r *ContactRepository) UpdateContact(ctx context.Context, id, listID int64, name, phone string) (*domain.Contact, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE contacts SET list_id = ?, name = ?, phone = ? WHERE id = ?",
		listID, name, phone, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	contact, err := r.GetContactByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %d: %w", id, domain.ErrNotFound)
	}

	return contact, nil
}

// CreateBatch inserts contacts in chunks inside one transaction.
func (r *ContactRepository) CreateBatch(ctx context.Context, contacts []domain.Contact, chunkSize int) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO contacts (list_id, name, phone) VALUES (:list_id, :name, :phone)`

	inserted := 0
	for start := 0; start < len(contacts); start += chunkSize {
		end := min(start+chunkSize, len(contacts))

		result, err := tx.NamedExecContext(ctx, query, contacts[start:end])
		if err != nil {
			return 0, fmt.Errorf("failed to insert contacts: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit contacts: %w", err)
	}

	return inserted, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("contact %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Totals returns the number of lists and contacts.
func (r *ContactRepository) Totals(ctx context.Context) (lists, contacts int64, err error) {
	var totals struct {
		Lists    int64 `db:"lists"`
		Contacts int64 `db:"contacts"`
	}

	query := `SELECT (SELECT COUNT(*) FROM lists) AS lists, (SELECT COUNT(*) FROM contacts) AS contacts`
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return 0, 0, fmt.Errorf("failed to count lists and contacts: %w", err)
	}

	return totals.Lists, totals.Contacts, nil
}
