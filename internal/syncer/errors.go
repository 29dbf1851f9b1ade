package syncer

import "fmt"

// RemoteApplyError reports a single outbox action that failed to apply
// remotely. The action stays queued for the next drain.
type RemoteApplyError struct {
	ActionID int64
	Op       string // "set" or "delete"
	Entity   string
	EntityID string
	Err      error
}

func (e *RemoteApplyError) Error() string {
	return fmt.Sprintf("apply action %d (%s %s/%s): %v", e.ActionID, e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *RemoteApplyError) Unwrap() error {
	return e.Err
}

// SyncRunError reports a drain run that failed after exhausting its
// retry budget. The outbox is untouched and survives for the next
// scheduled or triggered run.
type SyncRunError struct {
	Attempts int
	Err      error
}

func (e *SyncRunError) Error() string {
	return fmt.Sprintf("sync run failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SyncRunError) Unwrap() error {
	return e.Err
}
