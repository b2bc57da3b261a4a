package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/mq"
	"github.com/shaiso/attendance-bridge/internal/oplog"
	"github.com/shaiso/attendance-bridge/internal/repo"
)

// --- Фейки для oplog.Service ---

type memStore struct {
	createID int64
	creates  []map[string]any
	writes   []map[string]any
	exists   bool
}

func (s *memStore) Create(ctx context.Context, model string, fields map[string]any) (int64, error) {
	s.creates = append(s.creates, fields)
	return s.createID, nil
}

func (s *memStore) Write(ctx context.Context, model string, recordID int64, fields map[string]any) (bool, error) {
	s.writes = append(s.writes, fields)
	return true, nil
}

func (s *memStore) Exists(ctx context.Context, model string, recordID int64) (bool, error) {
	return s.exists, nil
}

type memEntries struct {
	entries []*domain.LogEntry
}

func (m *memEntries) Create(ctx context.Context, e *domain.LogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memEntries) GetByID(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memEntries) Update(ctx context.Context, e *domain.LogEntry) error { return nil }

func (m *memEntries) PurgeSuccessBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestDispatcher(store *memStore, entries *memEntries) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(oplog.NewService(entries, store, logger), logger)
}

// --- Тесты ---

func TestDispatcher_CreateMessage(t *testing.T) {
	store := &memStore{createID: 42}
	entries := &memEntries{}
	d := newTestDispatcher(store, entries)

	d.Handle(mq.Delivery{
		Body: []byte(`{"employee_id":7,"check_in":"07/16/2025 19:00:00"}`),
		Headers: map[string]any{
			"operation": "create",
			"model":     "hr.attendance",
		},
		RoutingKey: "attendance_queue",
		Tag:        1,
	})

	if len(entries.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries.entries))
	}
	e := entries.entries[0]

	if e.QueueName != "attendance_queue" {
		t.Errorf("unexpected queue: %s", e.QueueName)
	}
	if e.Operation != domain.OperationCreate || e.ModelName != "hr.attendance" {
		t.Errorf("headers not extracted: %s/%s", e.Operation, e.ModelName)
	}
	if e.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", e.Status, e.Error)
	}
	if e.RecordID == nil || *e.RecordID != 42 {
		t.Errorf("expected record_id 42, got %v", e.RecordID)
	}

	if len(store.creates) != 1 {
		t.Fatalf("expected one store create, got %d", len(store.creates))
	}
	fields := store.creates[0]
	if fields["check_in"] != "2025-07-16 19:00:00" {
		t.Errorf("check_in not normalized: %v", fields["check_in"])
	}
	if fields["employee_id"] != float64(7) {
		t.Errorf("employee_id lost: %v", fields["employee_id"])
	}
}

func TestDispatcher_WriteMessage(t *testing.T) {
	store := &memStore{exists: true}
	entries := &memEntries{}
	d := newTestDispatcher(store, entries)

	d.Handle(mq.Delivery{
		Body: []byte(`{"record_id":9,"check_out":"2025-07-16T22:00:00Z"}`),
		Headers: map[string]any{
			"operation": "write",
			"model":     "hr.attendance",
		},
		RoutingKey: "attendance_queue",
	})

	e := entries.entries[0]
	if e.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", e.Status, e.Error)
	}
	// record_id подсмотрен из payload'а уже при создании записи
	if e.RecordID == nil || *e.RecordID != 9 {
		t.Errorf("expected record_id 9, got %v", e.RecordID)
	}
	if len(store.writes) != 1 {
		t.Fatalf("expected one store write, got %d", len(store.writes))
	}
}

func TestDispatcher_MalformedBody(t *testing.T) {
	store := &memStore{createID: 1}
	entries := &memEntries{}
	d := newTestDispatcher(store, entries)

	d.Handle(mq.Delivery{
		Body: []byte(`{not json`),
		Headers: map[string]any{
			"operation": "create",
			"model":     "hr.attendance",
		},
		RoutingKey: "attendance_queue",
	})

	// Кривое тело всё равно даёт журнальную запись — с пустым payload'ом
	if len(entries.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries.entries))
	}
	e := entries.entries[0]
	if e.Payload != nil {
		t.Errorf("expected nil payload, got %v", e.Payload)
	}
	if e.Operation != domain.OperationCreate {
		t.Errorf("headers must still be extracted: %s", e.Operation)
	}
}

func TestDispatcher_MissingHeaders(t *testing.T) {
	store := &memStore{}
	entries := &memEntries{}
	d := newTestDispatcher(store, entries)

	d.Handle(mq.Delivery{
		Body:       []byte(`{"employee_id":7}`),
		Headers:    nil,
		RoutingKey: "attendance_queue",
	})

	e := entries.entries[0]
	// Без заголовка операции переход детерминированно уходит в fail
	if e.Status != domain.LogStatusFail {
		t.Fatalf("expected fail, got %s", e.Status)
	}
	if len(store.creates)+len(store.writes) != 0 {
		t.Error("store must not be touched without an operation")
	}
}

func TestDispatcher_NonStringHeader(t *testing.T) {
	entries := &memEntries{}
	d := newTestDispatcher(&memStore{}, entries)

	d.Handle(mq.Delivery{
		Body: []byte(`{}`),
		Headers: map[string]any{
			"operation": 123,
			"model":     true,
		},
		RoutingKey: "q",
	})

	e := entries.entries[0]
	if e.Operation != "" || e.ModelName != "" {
		t.Errorf("non-string headers must read as empty, got %q/%q", e.Operation, e.ModelName)
	}
}
