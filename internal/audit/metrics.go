package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// WorkerMetrics aggregates delegation outcomes for one worker.
type WorkerMetrics struct {
	WorkerID    string        `json:"worker_id"`
	Delegations int           `json:"delegations"`
	Completed   int           `json:"completed"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Summary is a point-in-time report computed by replaying the stream.
type Summary struct {
	GeneratedAt time.Time       `json:"generated_at"`
	TotalEvents int             `json:"total_events"`
	Workers     []WorkerMetrics `json:"workers"`
}

// Replay reads events.ndjson under logsDir and computes per-worker
// metrics. Durations are measured from a worker's delegation event to
// the matching terminal event for the same task. Lines that fail to
// parse are skipped; a truncated final line from a crashed writer must
// not poison the whole report.
func Replay(logsDir string) (*Summary, error) {
	path := filepath.Join(logsDir, "events.ndjson")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Summary{GeneratedAt: time.Now().UTC()}, nil
		}
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	defer f.Close()

	type inflight struct {
		workerID  string
		startedAt time.Time
	}

	totals := make(map[string]*WorkerMetrics)
	durations := make(map[string]time.Duration)
	active := make(map[string]inflight)
	events := 0

	get := func(workerID string) *WorkerMetrics {
		m, ok := totals[workerID]
		if !ok {
			m = &WorkerMetrics{WorkerID: workerID}
			totals[workerID] = m
		}
		return m
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		events++

		switch rec.EventType {
		case EventTaskDelegated, EventTaskResumed:
			if rec.WorkerID == "" {
				continue
			}
			get(rec.WorkerID).Delegations++
			active[rec.TaskID] = inflight{workerID: rec.WorkerID, startedAt: rec.Timestamp}
		case EventTaskCompleted, EventTaskFailed:
			run, ok := active[rec.TaskID]
			if !ok {
				continue
			}
			delete(active, rec.TaskID)
			m := get(run.workerID)
			if rec.EventType == EventTaskCompleted {
				m.Completed++
			} else {
				m.Failed++
			}
			durations[run.workerID] += rec.Timestamp.Sub(run.startedAt)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}

	summary := &Summary{GeneratedAt: time.Now().UTC(), TotalEvents: events}
	for workerID, m := range totals {
		finished := m.Completed + m.Failed
		if finished > 0 {
			m.SuccessRate = float64(m.Completed) / float64(finished)
			m.AvgDuration = durations[workerID] / time.Duration(finished)
		}
		summary.Workers = append(summary.Workers, *m)
	}
	sort.Slice(summary.Workers, func(i, j int) bool {
		return summary.Workers[i].WorkerID < summary.Workers[j].WorkerID
	})

	return summary, nil
}
