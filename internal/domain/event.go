package domain

import "time"

// Stage is one step in the query lifecycle event sequence.
type Stage string

const (
	StageRequestReceived  Stage = "request_received"
	StageSchemaConfirmed  Stage = "schema_confirmed"
	StageSQLGenerated     Stage = "sql_generated"
	StageQueryExecuting   Stage = "query_executing"
	StageQueryCompleted   Stage = "query_completed"
	StageResultValidating Stage = "result_validating"
	StageResultReady      Stage = "result_ready"
	StageError            Stage = "error"
)

// IsTerminal reports whether this stage ends a task's event stream.
func (s Stage) IsTerminal() bool {
	return s == StageResultReady || s == StageError
}

// StageEvent is one lifecycle notification published to observers.
// Ephemeral: buffered per task until the terminal stage, then discarded.
type StageEvent struct {
	Stage     Stage                  `json:"stage"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"task_id"`
}
