package models

import (
	"encoding/json"
	"time"
)

// TransferState identifies where an operation is in its lifecycle
type TransferState string

const (
	StatePending    TransferState = "pending"
	StateInProgress TransferState = "in_progress"
	StateCompleted  TransferState = "completed"
	StateFailed     TransferState = "failed"
	StateCancelled  TransferState = "cancelled"
)

// TransferStatus pairs a state with an optional failure reason. The reason
// can only be set through StatusFailed, so a reason never exists outside the
// failed state.
type TransferStatus struct {
	state  TransferState
	reason string
}

func StatusPending() TransferStatus    { return TransferStatus{state: StatePending} }
func StatusInProgress() TransferStatus { return TransferStatus{state: StateInProgress} }
func StatusCompleted() TransferStatus  { return TransferStatus{state: StateCompleted} }
func StatusCancelled() TransferStatus  { return TransferStatus{state: StateCancelled} }

// StatusFailed records a terminal failure with a human-readable reason
func StatusFailed(reason string) TransferStatus {
	return TransferStatus{state: StateFailed, reason: reason}
}

// State returns the lifecycle state
func (s TransferStatus) State() TransferState {
	return s.state
}

// FailureReason returns the failure message, empty unless the state is failed
func (s TransferStatus) FailureReason() string {
	return s.reason
}

// IsTerminal reports whether the status can no longer change
func (s TransferStatus) IsTerminal() bool {
	switch s.state {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

func (s TransferStatus) String() string {
	if s.state == StateFailed && s.reason != "" {
		return string(s.state) + ": " + s.reason
	}
	return string(s.state)
}

type statusJSON struct {
	State  TransferState `json:"state"`
	Reason string        `json:"reason,omitempty"`
}

func (s TransferStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{State: s.state, Reason: s.reason})
}

func (s *TransferStatus) UnmarshalJSON(data []byte) error {
	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.state = raw.State
	if raw.State == StateFailed {
		s.reason = raw.Reason
	} else {
		s.reason = ""
	}
	return nil
}

// TransferProgress is the live record for one download or device transfer,
// keyed by (subject, target). Speed is instantaneous: total bytes moved
// divided by total elapsed time since the operation started, not a window
// average.
type TransferProgress struct {
	SubjectID        string         `json:"subject_id"`         // episode being moved
	TargetID         string         `json:"target_id"`          // device root, empty for downloads
	TotalBytes       uint64         `json:"total_bytes"`        // 0 until known
	TransferredBytes uint64         `json:"transferred_bytes"`  // bytes moved so far
	Percentage       float64        `json:"percentage"`         // 0 when total is unknown
	SpeedBPS         float64        `json:"speed_bytes_per_sec"`
	ETASeconds       int64          `json:"eta_seconds"`        // -1 when not computable
	Status           TransferStatus `json:"status"`
	StartedAt        time.Time      `json:"started_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
