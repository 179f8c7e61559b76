package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	auditmemory "audittrail/pkg/platform/audit/store/memory"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
	"audittrail/pkg/principal"
	"audittrail/pkg/requestcontext"
	"audittrail/pkg/testutil"
)

type widget struct {
	ID   string
	Name string
}

func (w *widget) AuditableType() string { return "Widget" }
func (w *widget) AuditableID() string   { return w.ID }

// widgetBackend is a map store that undoes its writes when the enclosing
// in-memory transaction rolls back.
type widgetBackend struct {
	mu   sync.Mutex
	rows map[string]string
}

func newWidgetBackend() *widgetBackend {
	return &widgetBackend{rows: make(map[string]string)}
}

func (b *widgetBackend) Insert(ctx context.Context, w *widget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rows[w.ID]; ok {
		return sentinel.ErrConflict
	}
	b.rows[w.ID] = w.Name
	tx.OnRollback(ctx, func() { b.drop(w.ID) })
	return nil
}

func (b *widgetBackend) Update(ctx context.Context, w *widget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.rows[w.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	b.rows[w.ID] = w.Name
	tx.OnRollback(ctx, func() { b.put(w.ID, prev) })
	return nil
}

func (b *widgetBackend) Delete(ctx context.Context, w *widget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.rows[w.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(b.rows, w.ID)
	tx.OnRollback(ctx, func() { b.put(w.ID, prev) })
	return nil
}

func (b *widgetBackend) Exists(_ context.Context, w *widget) (bool, error) {
	_, ok := b.get(w.ID)
	return ok, nil
}

func (b *widgetBackend) get(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.rows[id]
	return name, ok
}

func (b *widgetBackend) drop(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rows, id)
}

func (b *widgetBackend) put(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[id] = name
}

// opaqueBackend hides widgetBackend's Exists.
type opaqueBackend struct {
	b *widgetBackend
}

func (o opaqueBackend) Insert(ctx context.Context, w *widget) error { return o.b.Insert(ctx, w) }
func (o opaqueBackend) Update(ctx context.Context, w *widget) error { return o.b.Update(ctx, w) }
func (o opaqueBackend) Delete(ctx context.Context, w *widget) error { return o.b.Delete(ctx, w) }

type failingStore struct {
	*auditmemory.InMemoryStore
}

func (failingStore) Append(context.Context, audit.Record) error {
	return errors.New("audit table unavailable")
}

type RepositorySuite struct {
	suite.Suite
	store    *auditmemory.InMemoryStore
	backend  *widgetBackend
	registry *Registry
	repo     *Repository[*widget]
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.setup(audit.PolicySkip)
}

func (s *RepositorySuite) setup(policy audit.Policy) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = auditmemory.NewInMemoryStore()
	s.backend = newWidgetBackend()
	recorder := audit.NewRecorder(s.store, audit.WithPolicy(policy), audit.WithLogger(logger))
	s.registry = NewRegistry(recorder, WithLogger(logger))
	s.repo = NewRepository[*widget](s.backend, tx.NewMemory(), s.registry)
}

func (s *RepositorySuite) actingAs(id, ip string) context.Context {
	return principal.Set(context.Background(), principal.Principal{ID: id, IP: ip})
}

func (s *RepositorySuite) trail(w *widget) []audit.Record {
	records, err := s.registry.AuditRecords(context.Background(), w)
	s.Require().NoError(err)
	return records
}

func (s *RepositorySuite) TestBindingNeverDuplicatesRecords() {
	s.Require().NoError(s.registry.Bind("Widget"))
	s.Require().ErrorIs(s.registry.Bind("Widget"), ErrDuplicateBinding)

	w := &widget{ID: "w-1", Name: "first"}
	s.Require().NoError(s.repo.Create(s.actingAs("user-1", ""), w))

	s.Len(s.trail(w), 1)
}

func (s *RepositorySuite) TestRecordsFollowMutationOrder() {
	s.Require().NoError(s.registry.Bind("Widget"))
	ctx := s.actingAs("user-1", "10.0.0.1")
	w := &widget{ID: "w-1", Name: "v1"}

	s.Require().NoError(s.repo.Create(ctx, w))
	w.Name = "v2"
	s.Require().NoError(s.repo.Update(ctx, w))
	w.Name = "v3"
	s.Require().NoError(s.repo.Update(ctx, w))
	s.Require().NoError(s.repo.Destroy(ctx, w))

	records := s.trail(w)
	s.Require().Len(records, 4)
	want := []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionUpdate, audit.ActionDestroy}
	for i, r := range records {
		s.Equal(want[i], r.Action)
		if i > 0 {
			s.False(r.CreatedAt.Before(records[i-1].CreatedAt))
		}
	}
}

func (s *RepositorySuite) TestTimestampsFollowMutationOrder() {
	s.Require().NoError(s.registry.Bind("Widget"))
	w := &widget{ID: "w-1", Name: "v1"}
	s.Require().NoError(s.repo.Create(s.actingAs("ops", ""), w))

	// Request A starts first but B's update lands first.
	started := time.Now().UTC().Add(-time.Hour)
	ctxA := requestcontext.WithTime(s.actingAs("alice", ""), started)
	ctxB := requestcontext.WithTime(s.actingAs("bob", ""), started.Add(2*time.Second))

	w.Name = "from-bob"
	s.Require().NoError(s.repo.Update(ctxB, w))
	w.Name = "from-alice"
	s.Require().NoError(s.repo.Update(ctxA, w))

	records := s.trail(w)
	s.Require().Len(records, 3)
	s.Equal("bob", *records[1].PrincipalID)
	s.Equal("alice", *records[2].PrincipalID)
	s.False(records[2].CreatedAt.Before(records[1].CreatedAt), "alice's record must not predate bob's")
	s.True(records[1].CreatedAt.After(started.Add(2*time.Second)))
}

func (s *RepositorySuite) TestSaveInsertsThenUpdates() {
	s.Require().NoError(s.registry.Bind("Widget"))
	ctx := s.actingAs("user-1", "10.0.0.1")
	w := &widget{ID: "w-1", Name: "v1"}

	s.Require().NoError(s.repo.Save(ctx, w))
	w.Name = "v2"
	s.Require().NoError(s.repo.Save(ctx, w))

	name, ok := s.backend.get("w-1")
	s.Require().True(ok)
	s.Equal("v2", name)

	records := s.trail(w)
	s.Require().Len(records, 2)
	s.Equal(audit.ActionCreate, records[0].Action)
	s.Equal(audit.ActionUpdate, records[1].Action)
}

func (s *RepositorySuite) TestSaveValidatesUnderMatchingPhase() {
	s.Require().NoError(s.registry.ValidatePrincipal("Widget", Rule{RequireID: true, RequireIP: true, On: PhaseCreate}))
	s.Require().NoError(s.registry.ValidatePrincipal("Widget", Rule{RequireID: true, On: PhaseSave}))
	w := &widget{ID: "w-1", Name: "v1"}

	err := s.repo.Save(s.actingAs("user-1", ""), w)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(FieldPrincipalIP, dErrors.FieldsOf(err)[0].Field)
	_, ok := s.backend.get("w-1")
	s.False(ok)

	s.Require().NoError(s.repo.Save(s.actingAs("user-1", "10.0.0.1"), w))
	w.Name = "v2"
	s.NoError(s.repo.Save(s.actingAs("user-1", ""), w), "the IP rule only guards creates")

	err = s.repo.Save(context.Background(), w)
	s.Require().Error(err)
	s.Equal(FieldPrincipalID, dErrors.FieldsOf(err)[0].Field)
}

func (s *RepositorySuite) TestSaveNeedsLocator() {
	repo := NewRepository[*widget](opaqueBackend{s.backend}, tx.NewMemory(), s.registry)

	err := repo.Save(s.actingAs("user-1", ""), &widget{ID: "w-1"})

	s.Require().Error(err)
	_, ok := s.backend.get("w-1")
	s.False(ok)
}

func (s *RepositorySuite) TestRecordCarriesPrincipal() {
	s.Require().NoError(s.registry.Bind("Widget"))
	w := &widget{ID: "w-1"}

	s.Require().NoError(s.repo.Create(s.actingAs("user-77", "192.0.2.10"), w))

	records := s.trail(w)
	s.Require().Len(records, 1)
	s.Equal("Widget", records[0].AuditableType)
	s.Equal("w-1", records[0].AuditableID)
	s.Require().NotNil(records[0].PrincipalID)
	s.Equal("user-77", *records[0].PrincipalID)
	s.Require().NotNil(records[0].PrincipalIP)
	s.Equal("192.0.2.10", *records[0].PrincipalIP)
}

func (s *RepositorySuite) TestSkipPolicyPersistsWithoutRecord() {
	s.Require().NoError(s.registry.Bind("Widget"))
	w := &widget{ID: "w-1", Name: "anon"}

	s.Require().NoError(s.repo.Create(context.Background(), w))

	_, ok := s.backend.get("w-1")
	s.True(ok)
	s.Empty(s.trail(w))
}

func (s *RepositorySuite) TestFailPolicyAbortsMutation() {
	s.setup(audit.PolicyFail)
	s.Require().NoError(s.registry.Bind("Widget"))
	w := &widget{ID: "w-1", Name: "anon"}

	err := s.repo.Create(context.Background(), w)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePrincipalUnavailable))
	s.ErrorIs(err, principal.ErrUnavailable)
	_, ok := s.backend.get("w-1")
	s.False(ok, "mutation must be rolled back")
	s.Empty(s.trail(w))
}

func (s *RepositorySuite) TestRecordAnonymousPolicy() {
	s.Require().NoError(s.registry.Bind("Widget", WithPolicy(audit.PolicyRecordAnonymous)))
	w := &widget{ID: "w-1"}

	s.Require().NoError(s.repo.Create(context.Background(), w))

	records := s.trail(w)
	s.Require().Len(records, 1)
	s.True(records[0].IsAnonymous())
	s.Nil(records[0].PrincipalIP)
}

func (s *RepositorySuite) TestDestroyRecordOutlivesEntity() {
	s.Require().NoError(s.registry.Bind("Widget"))
	ctx := s.actingAs("user-1", "")
	w := &widget{ID: "w-1"}

	s.Require().NoError(s.repo.Create(ctx, w))
	s.Require().NoError(s.repo.Destroy(ctx, w))

	_, ok := s.backend.get("w-1")
	s.False(ok)

	records := s.trail(&widget{ID: "w-1"})
	s.Require().Len(records, 2)
	s.Equal(audit.ActionDestroy, records[1].Action)
	s.Equal("w-1", records[1].AuditableID)
}

func (s *RepositorySuite) TestValidationWithoutBinding() {
	s.Require().NoError(s.registry.ValidatePrincipal("Widget", DefaultRule()))
	w := &widget{ID: "w-1"}

	err := s.repo.Create(context.Background(), w)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(FieldPrincipalID, dErrors.FieldsOf(err)[0].Field)
	_, ok := s.backend.get("w-1")
	s.False(ok, "rejected before the write")

	s.Require().NoError(s.repo.Create(s.actingAs("user-1", ""), w))
	_, ok = s.backend.get("w-1")
	s.True(ok)
	s.Zero(s.store.Len(), "validation alone never produces records")
}

func (s *RepositorySuite) TestValidationDoesNotGuardDestroy() {
	s.Require().NoError(s.registry.ValidatePrincipal("Widget", DefaultRule()))
	w := &widget{ID: "w-1"}
	s.Require().NoError(s.repo.Create(s.actingAs("user-1", ""), w))

	s.NoError(s.repo.Destroy(context.Background(), w))
}

func (s *RepositorySuite) TestFailedWriteNeverRecords() {
	s.Require().NoError(s.registry.Bind("Widget"))
	ctx := s.actingAs("user-1", "")

	err := s.repo.Update(ctx, &widget{ID: "missing"})

	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Zero(s.store.Len())
}

func (s *RepositorySuite) TestAuditWriteFailureRollsBackMutation() {
	recorder := audit.NewRecorder(failingStore{auditmemory.NewInMemoryStore()})
	registry := NewRegistry(recorder)
	s.Require().NoError(registry.Bind("Widget"))
	repo := NewRepository[*widget](s.backend, tx.NewMemory(), registry)

	err := repo.Create(s.actingAs("user-1", ""), &widget{ID: "w-1"})

	s.Require().Error(err)
	s.ErrorIs(err, audit.ErrWriteFailed)
	_, ok := s.backend.get("w-1")
	s.False(ok)
}

func (s *RepositorySuite) TestConcurrentUnitsKeepTheirPrincipal() {
	s.Require().NoError(s.registry.Bind("Widget"))
	const workers = 32

	result := testutil.RunConcurrent(workers, func(idx int) error {
		ctx := s.actingAs(fmt.Sprintf("user-%d", idx), fmt.Sprintf("10.0.0.%d", idx))
		return s.repo.Create(ctx, &widget{ID: fmt.Sprintf("w-%d", idx)})
	})
	s.Require().Equal(int32(workers), result.Successes)

	for i := 0; i < workers; i++ {
		records := s.trail(&widget{ID: fmt.Sprintf("w-%d", i)})
		s.Require().Len(records, 1)
		s.Equal(fmt.Sprintf("user-%d", i), *records[0].PrincipalID)
		s.Equal(fmt.Sprintf("10.0.0.%d", i), *records[0].PrincipalIP)
	}
}
