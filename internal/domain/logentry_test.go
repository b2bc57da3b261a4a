package domain

import (
	"testing"
)

func TestNewLogEntry_StartsNew(t *testing.T) {
	e := NewLogEntry("attendance_queue", map[string]any{"employee_id": 7}, OperationCreate, "hr.attendance", nil)

	if e.Status != LogStatusNew {
		t.Errorf("expected status new, got %s", e.Status)
	}
	if e.ProcessedAt != nil {
		t.Error("ProcessedAt should be nil before processing")
	}
	if e.QueueName != "attendance_queue" {
		t.Errorf("unexpected queue name: %s", e.QueueName)
	}
	if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected non-zero ID")
	}
}

func TestLogEntry_MarkSuccess(t *testing.T) {
	e := NewLogEntry("q", nil, OperationCreate, "hr.attendance", nil)
	e.Error = "stale"

	e.MarkSuccess(42)

	if e.Status != LogStatusSuccess {
		t.Errorf("expected success, got %s", e.Status)
	}
	if e.RecordID == nil || *e.RecordID != 42 {
		t.Errorf("expected record_id 42, got %v", e.RecordID)
	}
	if e.Error != "" {
		t.Errorf("error should be cleared, got %q", e.Error)
	}
	if e.ProcessedAt == nil {
		t.Error("ProcessedAt should be set")
	}
}

func TestLogEntry_MarkFail(t *testing.T) {
	e := NewLogEntry("q", nil, OperationWrite, "hr.attendance", nil)

	e.MarkFail("Record not found for update.")

	if e.Status != LogStatusFail {
		t.Errorf("expected fail, got %s", e.Status)
	}
	if e.Error != "Record not found for update." {
		t.Errorf("unexpected error text: %q", e.Error)
	}
	if e.ProcessedAt == nil {
		t.Error("ProcessedAt should be set")
	}
}

func TestLogEntry_ResetForRetry(t *testing.T) {
	e := NewLogEntry("q", map[string]any{"x": 1}, OperationWrite, "hr.attendance", nil)
	e.MarkFail("Sync Error: boom")

	e.ResetForRetry()

	if e.Status != LogStatusNew {
		t.Errorf("expected new, got %s", e.Status)
	}
	if e.Error != "" {
		t.Errorf("error should be cleared, got %q", e.Error)
	}
	if e.ProcessedAt != nil {
		t.Error("ProcessedAt should be nil after reset")
	}
	// Payload и операция сохраняются для повтора
	if e.Payload["x"] != 1 || e.Operation != OperationWrite {
		t.Error("payload and operation must survive reset")
	}
}
