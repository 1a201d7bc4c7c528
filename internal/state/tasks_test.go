package state

import (
	"errors"
	"testing"
	"time"

	"github.com/kalani-ai/kalani/pkg/models"
)

func newTask(id, description string, priority int, createdAt time.Time) *models.Task {
	return &models.Task{
		ID:          id,
		Description: description,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func creationEntry(t *models.Task) *models.AuditEntry {
	return &models.AuditEntry{
		Timestamp: t.CreatedAt,
		TaskID:    t.ID,
		Event:     models.EventCreated,
		ToStatus:  models.TaskStatusPending,
		Actor:     "test",
	}
}

func TestCreateAndGetTask(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	task := newTask("t1", "audit the payment flow", 3, now)
	if err := db.CreateTask(task, creationEntry(task)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}

	if got.Description != "audit the payment flow" {
		t.Errorf("Description = %q, want %q", got.Description, "audit the payment flow")
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.Priority != 3 {
		t.Errorf("Priority = %d, want 3", got.Priority)
	}
	if got.AssignedWorker != "" {
		t.Errorf("AssignedWorker = %q, want empty", got.AssignedWorker)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if len(got.History) != 1 {
		t.Fatalf("History length = %d, want 1", len(got.History))
	}
	if got.History[0].Event != models.EventCreated {
		t.Errorf("History[0].Event = %q, want created", got.History[0].Event)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetTask("missing")
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("GetTask error = %v, want NotFoundError", err)
	}
	if nf.ID != "missing" {
		t.Errorf("NotFoundError.ID = %q, want %q", nf.ID, "missing")
	}
}

func TestUpdateTaskTx(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC()
	task := newTask("t1", "run tests", 2, now)
	if err := db.CreateTask(task, creationEntry(task)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task.Status = models.TaskStatusInProgress
	task.AssignedWorker = "test-bot"
	task.UpdatedAt = now.Add(time.Second)
	entry := &models.AuditEntry{
		Timestamp:  task.UpdatedAt,
		TaskID:     task.ID,
		Event:      models.EventDelegated,
		FromStatus: models.TaskStatusPending,
		ToStatus:   models.TaskStatusInProgress,
		Actor:      "orchestrator",
		Note:       "assigned to test-bot",
	}
	if err := db.UpdateTaskTx(task, models.TaskStatusPending, entry); err != nil {
		t.Fatalf("UpdateTaskTx failed: %v", err)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusInProgress {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}
	if got.AssignedWorker != "test-bot" {
		t.Errorf("AssignedWorker = %q, want test-bot", got.AssignedWorker)
	}
	if len(got.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(got.History))
	}
	if got.History[1].FromStatus != models.TaskStatusPending || got.History[1].ToStatus != models.TaskStatusInProgress {
		t.Errorf("History[1] transition = %s -> %s, want pending -> in_progress",
			got.History[1].FromStatus, got.History[1].ToStatus)
	}
}

func TestUpdateTaskTx_UnknownTask(t *testing.T) {
	db := setupTestDB(t)

	task := newTask("ghost", "does not exist", 0, time.Now().UTC())
	task.Status = models.TaskStatusCancelled
	err := db.UpdateTaskTx(task, models.TaskStatusPending, creationEntry(task))

	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("UpdateTaskTx error = %v, want NotFoundError", err)
	}

	// The audit entry must not have been written either.
	entries, err := db.ListHistory("ghost")
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("found %d audit entries for unknown task, want 0", len(entries))
	}
}

func TestUpdateTaskTx_StaleStatusRejected(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC()
	task := newTask("t1", "deploy", 1, now)
	task.Status = models.TaskStatusInProgress
	if err := db.CreateTask(task, creationEntry(task)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// A writer that read pending but finds in_progress on disk must get
	// the typed conflict, and write nothing.
	stale := *task
	stale.Status = models.TaskStatusCancelled
	entry := &models.AuditEntry{
		Timestamp:  now.Add(time.Second),
		TaskID:     "t1",
		Event:      models.EventStatusChanged,
		FromStatus: models.TaskStatusPending,
		ToStatus:   models.TaskStatusCancelled,
		Actor:      "test",
	}
	err := db.UpdateTaskTx(&stale, models.TaskStatusPending, entry)

	var ite *models.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("UpdateTaskTx error = %v, want InvalidTransitionError", err)
	}
	if ite.From != models.TaskStatusInProgress {
		t.Errorf("InvalidTransitionError.From = %q, want in_progress (the committed status)", ite.From)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusInProgress {
		t.Errorf("Status = %q, want in_progress unchanged", got.Status)
	}
	if len(got.History) != 1 {
		t.Errorf("History length = %d, want 1 (no entry from the rejected write)", len(got.History))
	}
}

func TestListTasks_OrderAndFilter(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixtures := []struct {
		id       string
		priority int
		offset   time.Duration
		status   models.TaskStatus
	}{
		{"low-late", 9, 3 * time.Minute, models.TaskStatusPending},
		{"high-early", 1, 1 * time.Minute, models.TaskStatusPending},
		{"high-late", 1, 2 * time.Minute, models.TaskStatusBlocked},
		{"mid", 5, 0, models.TaskStatusInProgress},
	}
	for _, f := range fixtures {
		task := newTask(f.id, "task "+f.id, f.priority, base.Add(f.offset))
		task.Status = f.status
		if err := db.CreateTask(task, creationEntry(task)); err != nil {
			t.Fatalf("CreateTask(%s) failed: %v", f.id, err)
		}
	}

	// Unfiltered: priority ascending, then created_at ascending.
	all, err := db.ListTasks(Filter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	wantOrder := []string{"high-early", "high-late", "mid", "low-late"}
	if len(all) != len(wantOrder) {
		t.Fatalf("ListTasks returned %d tasks, want %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("ListTasks[%d].ID = %q, want %q", i, all[i].ID, id)
		}
	}

	// Filter by status.
	blocked, err := db.ListTasks(Filter{Statuses: []models.TaskStatus{models.TaskStatusBlocked}})
	if err != nil {
		t.Fatalf("ListTasks(blocked) failed: %v", err)
	}
	if len(blocked) != 1 || blocked[0].ID != "high-late" {
		t.Errorf("blocked filter returned %v, want [high-late]", blocked)
	}

	// Filter by priority range.
	min, max := 2, 6
	mid, err := db.ListTasks(Filter{MinPriority: &min, MaxPriority: &max})
	if err != nil {
		t.Fatalf("ListTasks(priority range) failed: %v", err)
	}
	if len(mid) != 1 || mid[0].ID != "mid" {
		t.Errorf("priority filter returned %v, want [mid]", mid)
	}
}

func TestAppendAuditEntry(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC()
	task := newTask("t1", "write docs", 4, now)
	if err := db.CreateTask(task, creationEntry(task)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	note := &models.AuditEntry{
		Timestamp: now.Add(time.Second),
		TaskID:    "t1",
		Event:     models.EventNote,
		Actor:     "worker",
		Note:      "halfway done",
	}
	if err := db.AppendAuditEntry(note); err != nil {
		t.Fatalf("AppendAuditEntry failed: %v", err)
	}

	entries, err := db.ListHistory("t1")
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History length = %d, want 2", len(entries))
	}
	if entries[1].Note != "halfway done" {
		t.Errorf("note = %q, want %q", entries[1].Note, "halfway done")
	}
}
