//go:build !integration

package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/worker"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- Mock Messenger ----

type MockMessenger struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendTextFunc func(ctx context.Context, targetID, text string) error
}

type sentMessage struct {
	Target string
	Text   string
}

var _ adapter.Messenger = (*MockMessenger)(nil)

func (m *MockMessenger) SendText(ctx context.Context, targetID, text string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, sentMessage{Target: targetID, Text: text})
	m.mu.Unlock()
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, targetID, text)
	}
	return nil
}

func (m *MockMessenger) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Target
	}
	return out
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu      sync.Mutex
	byPhone map[string]*model.User

	SaveFunc              func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByPhoneFunc       func(ctx context.Context, tx repository.Tx, phone string) (*model.User, error)
	DeactivateFunc        func(ctx context.Context, tx repository.Tx, phone string, at time.Time) error
	DeactivateExpiredFunc func(ctx context.Context, tx repository.Tx, cutoff, at time.Time) (int64, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byPhone: map[string]*model.User{}}
}

func (r *MockUserRepo) Put(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byPhone[u.Phone] = &cp
}

func (r *MockUserRepo) Get(phone string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byPhone[phone]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byPhone[u.Phone]; ok {
		u.ID = existing.ID
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.byPhone[u.Phone] = &cp
	return nil
}

func (r *MockUserRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.User, error) {
	if r.FindByPhoneFunc != nil {
		return r.FindByPhoneFunc(ctx, tx, phone)
	}
	if u := r.Get(phone); u != nil {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) Deactivate(ctx context.Context, tx repository.Tx, phone string, at time.Time) error {
	if r.DeactivateFunc != nil {
		return r.DeactivateFunc(ctx, tx, phone, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byPhone[phone]; ok {
		u.Deactivate(at)
	}
	return nil
}

func (r *MockUserRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, cutoff, at time.Time) (int64, error) {
	if r.DeactivateExpiredFunc != nil {
		return r.DeactivateExpiredFunc(ctx, tx, cutoff, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.byPhone {
		if u.Active && (u.ActivatedAt == nil || !u.ActivatedAt.After(cutoff)) {
			u.Deactivate(at)
			n++
		}
	}
	return n, nil
}

func (r *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone), nil
}

func (r *MockUserRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byPhone {
		if u.Active {
			n++
		}
	}
	return n, nil
}

// ---- Mock ActivationCodeRepository ----

type MockCodeRepo struct {
	mu      sync.Mutex
	byPhone map[string]*model.ActivationCode

	UpsertFunc   func(ctx context.Context, tx repository.Tx, c *model.ActivationCode) error
	MarkUsedFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.ActivationCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{byPhone: map[string]*model.ActivationCode{}}
}

func (r *MockCodeRepo) Get(phone string) *model.ActivationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byPhone[phone]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (r *MockCodeRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}

func (r *MockCodeRepo) Upsert(ctx context.Context, tx repository.Tx, c *model.ActivationCode) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byPhone[c.Phone] = &cp
	return nil
}

func (r *MockCodeRepo) FindUnusedByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byPhone[phone]
	if !ok || c.Used {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string) error {
	if r.MarkUsedFunc != nil {
		return r.MarkUsedFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byPhone {
		if c.ID == id && !c.Used {
			c.Used = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockCodeRepo) DeleteByPhone(ctx context.Context, tx repository.Tx, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPhone, phone)
	return nil
}

func (r *MockCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for p, c := range r.byPhone {
		if c.ExpiresAt.Before(now) {
			delete(r.byPhone, p)
			n++
		}
	}
	return n, nil
}

func (r *MockCodeRepo) CountCodes(ctx context.Context, tx repository.Tx) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	used := 0
	for _, c := range r.byPhone {
		if c.Used {
			used++
		}
	}
	return len(r.byPhone), used, nil
}

// ---- Mock GroupRepository ----

type MockGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*model.Group
	order  map[string]int
	seq    int

	CreateFunc      func(ctx context.Context, tx repository.Tx, g *model.Group) error
	ListByOwnerFunc func(ctx context.Context, tx repository.Tx, phone string) ([]*model.Group, error)
}

var _ repository.GroupRepository = (*MockGroupRepo)(nil)

func NewMockGroupRepo() *MockGroupRepo {
	return &MockGroupRepo{groups: map[string]*model.Group{}, order: map[string]int{}}
}

func (r *MockGroupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, g)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.GroupID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *g
	r.groups[g.GroupID] = &cp
	r.seq++
	r.order[g.GroupID] = r.seq
	return nil
}

func (r *MockGroupRepo) FindByGroupID(ctx context.Context, tx repository.Tx, groupID string) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *MockGroupRepo) ListByOwner(ctx context.Context, tx repository.Tx, phone string) ([]*model.Group, error) {
	if r.ListByOwnerFunc != nil {
		return r.ListByOwnerFunc(ctx, tx, phone)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Group
	for _, g := range r.groups {
		if g.AddedBy == phone {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].GroupID] < r.order[out[j].GroupID] })
	return out, nil
}

func (r *MockGroupRepo) CountByOwner(ctx context.Context, tx repository.Tx, phone string) (int, error) {
	gs, err := r.ListByOwner(ctx, tx, phone)
	return len(gs), err
}

func (r *MockGroupRepo) CountGroups(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups), nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	mu    sync.Mutex
	Calls []repository.TxOptions

	WithTxFunc func(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, opts)
	m.mu.Unlock()
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock TaskSubmitter ----

// inlineSubmitter runs tasks synchronously on Submit.
type inlineSubmitter struct {
	ctx context.Context
	err error
}

func (s *inlineSubmitter) Submit(task worker.Task) error {
	if s.err != nil {
		return s.err
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return task(ctx)
}

// submitFunc adapts a function to TaskSubmitter.
type submitFunc func(task func(context.Context) error) error

func (f submitFunc) Submit(task worker.Task) error { return f(task) }
