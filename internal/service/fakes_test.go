package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

//
// Test fakes shared by the service tests.
//

// eventLog records cross-fake events so tests can assert ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeSenderRepo struct {
	mu      sync.Mutex
	senders map[int64]*domain.Sender
	nextID  int64
	events  *eventLog

	fillCalls int
}

func newFakeSenderRepo(senders ...domain.Sender) *fakeSenderRepo {
	r := &fakeSenderRepo{senders: make(map[int64]*domain.Sender)}
	for i := range senders {
		s := senders[i]
		r.senders[s.ID] = &s
		if s.ID > r.nextID {
			r.nextID = s.ID
		}
	}
	return r
}

func (r *fakeSenderRepo) GetByID(ctx context.Context, id int64) (*domain.Sender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.senders[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	if s.InstanceID != nil {
		v := *s.InstanceID
		cp.InstanceID = &v
	}
	return &cp, nil
}

func (r *fakeSenderRepo) GetAll(ctx context.Context) ([]domain.Sender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Sender, 0, len(r.senders))
	for _, s := range r.senders {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSenderRepo) GetMissingInstanceID(ctx context.Context) ([]domain.Sender, error) {
	all, _ := r.GetAll(ctx)

	out := []domain.Sender{}
	for _, s := range all {
		if !s.HasInstanceID() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSenderRepo) Create(ctx context.Context, s *domain.Sender) (*domain.Sender, error) {
	r.mu.Lock()
	r.nextID++
	cp := *s
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	r.senders[cp.ID] = &cp
	r.mu.Unlock()

	return r.GetByID(ctx, cp.ID)
}

func (r *fakeSenderRepo) Update(ctx context.Context, s *domain.Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.senders[s.ID]; !ok {
		return fmt.Errorf("sender %d: %w", s.ID, domain.ErrNotFound)
	}
	cp := *s
	r.senders[s.ID] = &cp
	return nil
}

// FillInstanceID mirrors the SQL guard: only empty instance ids are filled.
func (r *fakeSenderRepo) FillInstanceID(ctx context.Context, id int64, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fillCalls++
	s, ok := r.senders[id]
	if !ok {
		return nil
	}
	if !s.HasInstanceID() {
		v := instanceID
		s.InstanceID = &v
		r.events.add("fill:%d:%s", id, instanceID)
	}
	return nil
}

func (r *fakeSenderRepo) UpdateStatus(ctx context.Context, id int64, status domain.SenderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.senders[id]; ok {
		s.Status = status
	}
	return nil
}

func (r *fakeSenderRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.senders[id]; !ok {
		return fmt.Errorf("sender %d: %w", id, domain.ErrNotFound)
	}
	delete(r.senders, id)
	return nil
}

func (r *fakeSenderRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.senders)), nil
}

func (r *fakeSenderRepo) instanceID(id int64) string {
	s, _ := r.GetByID(context.Background(), id)
	if s == nil {
		return ""
	}
	return s.InstanceIDValue()
}

// fakeVendor stands in for the waapi client.
type fakeVendor struct {
	mu     sync.Mutex
	events *eventLog

	// instances maps a token to its instance id; missing tokens fail resolution.
	instances   map[string]string
	invalid     map[string]bool
	unavailable bool
	failPhones  map[string]bool

	resolveCalls int
	sends        []waapi.SendRequest
}

func (v *fakeVendor) ResolveInstanceID(ctx context.Context, token string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.resolveCalls++
	v.events.add("resolve:%s", token)

	if id, ok := v.instances[token]; ok {
		return id, nil
	}
	return "", errors.New("no instances found in response")
}

func (v *fakeVendor) VerifyCredential(ctx context.Context, token, instanceID string) bool {
	return !v.invalid[token]
}

func (v *fakeVendor) TestConnection(ctx context.Context, token, instanceID string) error {
	if v.invalid[token] {
		return errors.New("connection failed: 401 - unauthorized")
	}
	return nil
}

func (v *fakeVendor) CheckServiceAvailability(ctx context.Context) waapi.Availability {
	if v.unavailable {
		return waapi.Availability{Available: false, Message: "unable to reach waapi service"}
	}
	return waapi.Availability{Available: true, Message: "waapi service is available"}
}

func (v *fakeVendor) SendMessage(ctx context.Context, req waapi.SendRequest) waapi.SendResult {
	v.mu.Lock()
	v.sends = append(v.sends, req)
	v.mu.Unlock()

	v.events.add("send:%s:%s", req.InstanceID, req.Phone)

	if v.failPhones[req.Phone] {
		return waapi.SendResult{Error: "HTTP 400: rejected"}
	}
	return waapi.SendResult{Delivered: true, MessageID: "msg-" + req.Phone}
}

func (v *fakeVendor) sendCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sends)
}

func strPtr(s string) *string {
	return &s
}
