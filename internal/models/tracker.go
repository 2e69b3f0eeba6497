package models

import "sort"

// LogicalStatus abstracts over tracker-specific status identifiers
type LogicalStatus string

const (
	StatusInProgress LogicalStatus = "in_progress"
	StatusTesting    LogicalStatus = "testing"
	StatusCompleted  LogicalStatus = "completed"
)

// LogicalStatuses lists every key a status mapping may carry
var LogicalStatuses = []LogicalStatus{StatusInProgress, StatusTesting, StatusCompleted}

// Valid reports whether s is a known logical status
func (s LogicalStatus) Valid() bool {
	for _, known := range LogicalStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusMapping maps logical statuses to tracker status identifiers.
// A missing key means "do not touch the status".
type StatusMapping map[LogicalStatus]string

// Lookup returns the tracker status for key, if one is configured
func (m StatusMapping) Lookup(key LogicalStatus) (string, bool) {
	id, ok := m[key]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Keys lists the configured logical statuses in sorted order
func (m StatusMapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// CommentDraft is one comment to be posted on one issue
type CommentDraft struct {
	IssueID int
	Body    string
}

// IssueAction names the tracker call made for an issue
type IssueAction string

const (
	ActionComment IssueAction = "comment"
	ActionStatus  IssueAction = "status"
)

// ActionResult is the outcome of one tracker call
type ActionResult string

const (
	ResultOK      ActionResult = "ok"
	ResultFailed  ActionResult = "failed"
	ResultSkipped ActionResult = "skipped"
)

// IssueOutcome records what happened to one issue for one action
type IssueOutcome struct {
	IssueID   int           `json:"issue_id"`
	Action    IssueAction   `json:"action"`
	Result    ActionResult  `json:"result"`
	CommitID  string        `json:"commit_id,omitempty"`
	StatusKey LogicalStatus `json:"status_key,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// DispatchResult collects every per-issue outcome of one delivery
type DispatchResult struct {
	DeliveryID string         `json:"delivery_id"`
	Provider   Provider       `json:"provider"`
	Kind       EventKind      `json:"kind"`
	Reason     string         `json:"reason,omitempty"`
	Outcomes   []IssueOutcome `json:"outcomes,omitempty"`
}

// Failed counts outcomes that did not succeed
func (r *DispatchResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == ResultFailed {
			n++
		}
	}
	return n
}
