package oplog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/repo"
)

// --- Фейковое хранилище ---

type createCall struct {
	model  string
	fields map[string]any
}

type writeCall struct {
	model    string
	recordID int64
	fields   map[string]any
}

type fakeStore struct {
	createID  int64
	createErr error
	exists    bool
	existsErr error
	writeErr  error

	creates []createCall
	writes  []writeCall
}

func (s *fakeStore) Create(ctx context.Context, model string, fields map[string]any) (int64, error) {
	s.creates = append(s.creates, createCall{model, fields})
	if s.createErr != nil {
		return 0, s.createErr
	}
	return s.createID, nil
}

func (s *fakeStore) Write(ctx context.Context, model string, recordID int64, fields map[string]any) (bool, error) {
	s.writes = append(s.writes, writeCall{model, recordID, fields})
	if s.writeErr != nil {
		return false, s.writeErr
	}
	return true, nil
}

func (s *fakeStore) Exists(ctx context.Context, model string, recordID int64) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.exists, nil
}

// --- Фейковая персистентность журнала ---

type fakeEntries struct {
	byID    map[uuid.UUID]*domain.LogEntry
	updates int

	purgeCutoff time.Time
	purgeN      int64
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{byID: make(map[uuid.UUID]*domain.LogEntry)}
}

func (f *fakeEntries) Create(ctx context.Context, e *domain.LogEntry) error {
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEntries) GetByID(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return e, nil
}

func (f *fakeEntries) Update(ctx context.Context, e *domain.LogEntry) error {
	f.updates++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEntries) PurgeSuccessBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoff = cutoff
	return f.purgeN, nil
}

func newTestService(entries Entries, store Store) *Service {
	return NewService(entries, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func int64ptr(v int64) *int64 { return &v }

// --- Тесты ---

func TestService_CreateSuccess(t *testing.T) {
	store := &fakeStore{createID: 42}
	entries := newFakeEntries()
	svc := newTestService(entries, store)

	e := domain.NewLogEntry("attendance_queue", map[string]any{
		"employee_id": float64(7),
		"check_in":    "07/16/2025 19:00:00",
	}, domain.OperationCreate, "hr.attendance", nil)

	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", e.Status, e.Error)
	}
	if e.RecordID == nil || *e.RecordID != 42 {
		t.Errorf("expected record_id 42, got %v", e.RecordID)
	}

	// Поля ушли в хранилище с нормализованным datetime
	if len(store.creates) != 1 {
		t.Fatalf("expected one create call, got %d", len(store.creates))
	}
	call := store.creates[0]
	if call.model != "hr.attendance" {
		t.Errorf("unexpected model: %s", call.model)
	}
	if call.fields["check_in"] != "2025-07-16 19:00:00" {
		t.Errorf("check_in not normalized: %v", call.fields["check_in"])
	}

	// Запись создана и обновлена после перехода
	if entries.updates != 1 {
		t.Errorf("expected one update, got %d", entries.updates)
	}
}

func TestService_CreateStoreFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("duplicate key")}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"employee_id": float64(7)}, domain.OperationCreate, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if e.Error != "Sync Error: duplicate key" {
		t.Errorf("unexpected error text: %q", e.Error)
	}
}

func TestService_WriteSuccess(t *testing.T) {
	store := &fakeStore{exists: true}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{
		"record_id": float64(9),
		"check_out": "2025-07-16T22:00:00Z",
	}, domain.OperationWrite, "hr.attendance", int64ptr(9))

	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", e.Status, e.Error)
	}
	if len(store.writes) != 1 {
		t.Fatalf("expected one write call, got %d", len(store.writes))
	}
	call := store.writes[0]
	if call.recordID != 9 {
		t.Errorf("expected record 9, got %d", call.recordID)
	}
	// record_id извлекается из payload'а и не попадает в поля
	if _, ok := call.fields["record_id"]; ok {
		t.Error("record_id must not leak into store fields")
	}
	if call.fields["check_out"] != "2025-07-16 22:00:00" {
		t.Errorf("check_out not normalized: %v", call.fields["check_out"])
	}
}

func TestService_WriteWithoutRecordID(t *testing.T) {
	store := &fakeStore{exists: true}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"check_out": "2025-07-16 22:00:00"}, domain.OperationWrite, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if e.Error != "Record not found for update." {
		t.Errorf("unexpected error text: %q", e.Error)
	}
	if len(store.writes) != 0 {
		t.Error("store must not be touched without record_id")
	}
}

func TestService_WriteMissingRecord(t *testing.T) {
	store := &fakeStore{exists: false}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"record_id": float64(404)}, domain.OperationWrite, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Error != "Record not found for update." {
		t.Errorf("unexpected error text: %q", e.Error)
	}
	if len(store.writes) != 0 {
		t.Error("write must not run for a missing record")
	}
}

func TestService_WriteStoreFailure(t *testing.T) {
	store := &fakeStore{exists: true, writeErr: errors.New("connection reset")}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"record_id": float64(9)}, domain.OperationWrite, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if !strings.HasPrefix(e.Error, "Sync Error: ") {
		t.Errorf("expected Sync Error prefix, got %q", e.Error)
	}
}

func TestService_UnknownOperation(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"x": 1}, domain.OperationKind("unlink"), "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if len(store.creates)+len(store.writes) != 0 {
		t.Error("unknown operation must not touch the store")
	}
}

func TestService_BadDatetimeFailsBeforeStore(t *testing.T) {
	store := &fakeStore{createID: 1}
	svc := newTestService(newFakeEntries(), store)

	e := domain.NewLogEntry("q", map[string]any{"check_in": "yesterday"}, domain.OperationCreate, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if len(store.creates) != 0 {
		t.Error("normalization failure must not reach the store")
	}
}

func TestService_Retry(t *testing.T) {
	store := &fakeStore{createErr: errors.New("down")}
	entries := newFakeEntries()
	svc := newTestService(entries, store)

	e := domain.NewLogEntry("q", map[string]any{"employee_id": float64(7)}, domain.OperationCreate, "hr.attendance", nil)
	if err := svc.Ingest(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}

	// Хранилище ожило — повтор из сохранённого состояния проходит
	store.createErr = nil
	store.createID = 77

	got, err := svc.Retry(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success after retry, got %s (%s)", got.Status, got.Error)
	}
	if got.RecordID == nil || *got.RecordID != 77 {
		t.Errorf("expected record_id 77, got %v", got.RecordID)
	}
}

func TestService_RetryUnknownEntry(t *testing.T) {
	svc := newTestService(newFakeEntries(), &fakeStore{})

	if _, err := svc.Retry(context.Background(), uuid.New()); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_PurgeDefaultRetention(t *testing.T) {
	entries := newFakeEntries()
	entries.purgeN = 3
	svc := newTestService(entries, &fakeStore{})

	n, err := svc.PurgeSuccessfulOlderThan(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 purged, got %d", n)
	}

	// retention <= 0 — окно по умолчанию
	want := time.Now().UTC().Add(-DefaultRetention)
	if diff := entries.purgeCutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff %v too far from expected %v", entries.purgeCutoff, want)
	}
}
