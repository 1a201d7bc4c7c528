package state

import (
	"io"

	"github.com/kalani-ai/kalani/pkg/models"
)

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	CreateTask(t *models.Task, entry *models.AuditEntry) error
	GetTask(id string) (*models.Task, error)
	UpdateTaskTx(t *models.Task, fromStatus models.TaskStatus, entry *models.AuditEntry) error
	AppendAuditEntry(entry *models.AuditEntry) error
	ListTasks(f Filter) ([]models.Task, error)
	ListHistory(taskID string) ([]models.AuditEntry, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for registry persistence.
// This interface allows the registry to work with any backend
// without depending on the concrete SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	TaskStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store     = (*DB)(nil)
	_ Migrator  = (*DB)(nil)
	_ TaskStore = (*DB)(nil)
)
