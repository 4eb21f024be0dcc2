package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity recomputes cached balances from raw entries.
	TaskGLIntegrity = "ledger:integrity_check"
	// TaskDepreciationDue scans for pending periods whose date has passed.
	TaskDepreciationDue = "depreciation:due_scan"
)

// GLIntegrityPayload scopes the integrity sweep.
type GLIntegrityPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// DepreciationDuePayload scopes the due-period scan.
type DepreciationDuePayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewDepreciationDueTask constructs an Asynq task.
func NewDepreciationDueTask(payload DepreciationDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationDue, data), nil
}

func decodePayload[T any](t *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, asynq.SkipRetry
	}
	return payload, nil
}
