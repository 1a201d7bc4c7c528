package state

import (
	"database/sql"
	"fmt"

	"github.com/kalani-ai/kalani/pkg/models"
)

// Filter narrows a ListTasks query. Zero values mean "no constraint".
type Filter struct {
	// Statuses restricts results to tasks in any of the listed states.
	Statuses []models.TaskStatus
	// MinPriority and MaxPriority bound the priority range, inclusive.
	// Both nil means unbounded.
	MinPriority *int
	MaxPriority *int
}

// CreateTask persists a new task and its creation audit entry in one
// transaction. The task must already carry its id, status, and timestamps.
func (db *DB) CreateTask(t *models.Task, entry *models.AuditEntry) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO tasks (id, description, status, assigned_worker, priority, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Description, string(t.Status), nullable(t.AssignedWorker), t.Priority,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return insertAuditEntry(tx, entry)
	})
}

// GetTask retrieves a task by id, including its full audit history.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, description, status, assigned_worker, priority, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	history, err := db.ListHistory(id)
	if err != nil {
		return nil, err
	}
	t.History = history
	return t, nil
}

// UpdateTaskTx updates a task's status, assigned worker, and updated_at,
// and appends the audit entry, all inside one transaction. Either both
// writes land or neither does.
//
// The update is a compare-and-swap on fromStatus: it only lands if the
// stored status still matches what the caller read. A writer in another
// process that committed first makes the swap miss, and the conflict
// surfaces as InvalidTransitionError carrying the status that actually
// won, never as a lost update.
func (db *DB) UpdateTaskTx(t *models.Task, fromStatus models.TaskStatus, entry *models.AuditEntry) error {
	return db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE tasks SET status = ?, assigned_worker = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, string(t.Status), nullable(t.AssignedWorker), formatTime(t.UpdatedAt), t.ID, string(fromStatus))
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			var current string
			err := tx.QueryRow(`SELECT status FROM tasks WHERE id = ?`, t.ID).Scan(&current)
			if err == sql.ErrNoRows {
				return &models.NotFoundError{Kind: "task", ID: t.ID}
			}
			if err != nil {
				return fmt.Errorf("read conflicting status: %w", err)
			}
			return &models.InvalidTransitionError{
				TaskID: t.ID,
				From:   models.TaskStatus(current),
				To:     t.Status,
			}
		}
		return insertAuditEntry(tx, entry)
	})
}

// AppendAuditEntry appends a history entry without touching the task row.
// Used for progress notes.
func (db *DB) AppendAuditEntry(entry *models.AuditEntry) error {
	return db.Transaction(func(tx *sql.Tx) error {
		return insertAuditEntry(tx, entry)
	})
}

// ListTasks returns tasks matching the filter, ordered by priority
// ascending then created_at ascending. The audit history is not loaded;
// use GetTask for the full record.
func (db *DB) ListTasks(f Filter) ([]models.Task, error) {
	query := `
		SELECT id, description, status, assigned_worker, priority, created_at, updated_at
		FROM tasks
	`
	var args []any
	var where []string

	if len(f.Statuses) > 0 {
		placeholders := ""
		for i, s := range f.Statuses {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+placeholders+")")
	}
	if f.MinPriority != nil {
		where = append(where, "priority >= ?")
		args = append(args, *f.MinPriority)
	}
	if f.MaxPriority != nil {
		where = append(where, "priority <= ?")
		args = append(args, *f.MaxPriority)
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY priority ASC, created_at ASC, id ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListHistory returns a task's audit entries in append order.
func (db *DB) ListHistory(taskID string) ([]models.AuditEntry, error) {
	rows, err := db.Query(`
		SELECT task_id, timestamp, event, from_status, to_status, actor, note
		FROM audit_entries WHERE task_id = ? ORDER BY seq ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var ts string
		var from, to, note sql.NullString
		if err := rows.Scan(&e.TaskID, &ts, &e.Event, &from, &to, &e.Actor, &note); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp, _ = parseTime(ts)
		e.FromStatus = models.TaskStatus(from.String)
		e.ToStatus = models.TaskStatus(to.String)
		e.Note = note.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var t models.Task
	var assigned sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&t.ID, &t.Description, &t.Status, &assigned, &t.Priority, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.AssignedWorker = assigned.String
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	return &t, nil
}

func insertAuditEntry(tx *sql.Tx, e *models.AuditEntry) error {
	_, err := tx.Exec(`
		INSERT INTO audit_entries (task_id, timestamp, event, from_status, to_status, actor, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.TaskID, formatTime(e.Timestamp), string(e.Event),
		nullable(string(e.FromStatus)), nullable(string(e.ToStatus)), e.Actor, nullable(e.Note))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// nullable converts an empty string to NULL for storage.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
