package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
)

// importChunkSize is the number of contacts inserted per statement during a CSV import.
const importChunkSize = 100

type contactRepository interface {
	GetListByID(ctx context.Context, id int64) (*domain.List, error)
	GetLists(ctx context.Context) ([]domain.List, error)
	CreateList(ctx context.Context, name string, description *string) (*domain.List, error)
	UpdateList(ctx context.Context, id int64, name string, description *string) (*domain.List, error)
	DeleteList(ctx context.Context, id int64) error
	GetByList(ctx context.Context, listID int64) ([]domain.Contact, error)
	GetContactByID(ctx context.Context, id int64) (*domain.Contact, error)
	Create(ctx context.Context, listID int64, name, phone string) (*domain.Contact, error)
	UpdateContact(ctx context.Context, id, listID int64, name, phone string) (*domain.Contact, error)
	CreateBatch(ctx context.Context, contacts []domain.Contact, chunkSize int) (int, error)
	Delete(ctx context.Context, id int64) error
}

type ListService struct {
	repo contactRepository
}

func NewListService(repo contactRepository) *ListService {
	return &ListService{repo: repo}
}

func (s *ListService) GetLists(ctx context.Context) ([]domain.List, error) {
	return s.repo.GetLists(ctx)
}

func (s *ListService) GetList(ctx context.Context, id int64) (*domain.List, error) {
	list, err := s.repo.GetListByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("list %d: %w", id, domain.ErrNotFound)
	}
	return list, nil
}

func (s *ListService) CreateList(ctx context.Context, name, description string) (*domain.List, error) {
	name, desc, err := listFields(name, description)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateList(ctx, name, desc)
}

// UpdateList renames a list and replaces its description; an empty
// description clears it.
func (s *ListService) UpdateList(ctx context.Context, id int64, name, description string) (*domain.List, error) {
	name, desc, err := listFields(name, description)
	if err != nil {
		return nil, err
	}

	return s.repo.UpdateList(ctx, id, name, desc)
}

func listFields(name, description string) (string, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: list name is required", domain.ErrValidation)
	}

	var desc *string
	if d := strings.TrimSpace(description); d != "" {
		desc = &d
	}

	return name, desc, nil
}

func (s *ListService) DeleteList(ctx context.Context, id int64) error {
	return s.repo.DeleteList(ctx, id)
}

func (s *ListService) GetContacts(ctx context.Context, listID int64) ([]domain.Contact, error) {
	if err := s.requireList(ctx, listID); err != nil {
		return nil, err
	}
	return s.repo.GetByList(ctx, listID)
}

func (s *ListService) AddContact(ctx context.Context, listID int64, name, phone string) (*domain.Contact, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", domain.ErrValidation)
	}

	if err := s.requireList(ctx, listID); err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, listID, name, phone)
}

func (s *ListService) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	contact, err := s.repo.GetContactByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %d: %w", id, domain.ErrNotFound)
	}
	return contact, nil
}

// UpdateContact replaces a contact's name and phone and may move it to
// another existing list.
func (s *ListService) UpdateContact(ctx context.Context, id, listID int64, name, phone string) (*domain.Contact, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" || listID <= 0 {
		return nil, fmt.Errorf("%w: name, phone, and list are required", domain.ErrValidation)
	}

	if err := s.requireList(ctx, listID); err != nil {
		return nil, err
	}

	return s.repo.UpdateContact(ctx, id, listID, name, phone)
}

func (s *ListService) DeleteContact(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ImportCSV reads contacts from a CSV with a name and phone header (any case,
// any column order). Rows missing either value are reported and skipped.
func (s *ListService) ImportCSV(ctx context.Context, listID int64, r io.Reader) (*domain.ImportResult, error) {
	if err := s.requireList(ctx, listID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: CSV file is empty", domain.ErrValidation)
		}
		return nil, fmt.Errorf("%w: CSV parsing error: %v", domain.ErrValidation, err)
	}

	nameCol, phoneCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			nameCol = i
		case "phone":
			phoneCol = i
		}
	}
	if nameCol < 0 || phoneCol < 0 {
		return nil, fmt.Errorf("%w: CSV header must contain name and phone columns", domain.ErrValidation)
	}

	result := &domain.ImportResult{}
	var contacts []domain.Contact

	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV parsing error: %v", domain.ErrValidation, err)
		}
		if isBlank(record) {
			continue
		}
		row++

		name, phone := field(record, nameCol), field(record, phoneCol)
		if name == "" || phone == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Missing name or phone", row))
			continue
		}

		contacts = append(contacts, domain.Contact{ListID: listID, Name: name, Phone: phone})
	}

	if len(contacts) == 0 {
		return nil, fmt.Errorf("%w: no valid contacts found in CSV", domain.ErrValidation)
	}

	imported, err := s.repo.CreateBatch(ctx, contacts, importChunkSize)
	if err != nil {
		return nil, err
	}
	result.Imported = imported

	logger.Infof("Imported %d contacts into list %d (%d rows skipped)", imported, listID, len(result.Errors))

	return result, nil
}

func (s *ListService) requireList(ctx context.Context, listID int64) error {
	list, err := s.repo.GetListByID(ctx, listID)
	if err != nil {
		return err
	}
	if list == nil {
		return fmt.Errorf("list %d: %w", listID, domain.ErrNotFound)
	}
	return nil
}

func field(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
