package types

import (
	"encoding/json"
)

// Event type constants. These are the wire-level values carried in the
// "type" field of every frame exchanged over the relay and the local
// broadcast channel. Old clients ignore unknown types, so adding new
// kinds is backward-compatible.
const (
	EventSessionLogin             = "session:login"
	EventSessionLogout            = "session:logout"
	EventStudentUpdate            = "student:update"
	EventTeacherPing              = "teacher:ping"
	EventTeacherBroadcast         = "teacher:broadcast"
	EventActivity3Broadcast       = "teacher:activity3:broadcast"
	EventRequestBroadcast         = "student:request-broadcast"
	EventTeacherLogout            = "teacher:logout"
	EventTeacherClearBroadcasts   = "teacher:clear-broadcasts"
	EventTeacherBroadcastsCleared = "teacher:broadcasts-cleared"

	// Operator/recorder screen mirroring. The relay treats these as plain
	// passthrough events; only the clients interpret the payload.
	EventActivity3Sync         = "activity3:sync"
	EventActivity3OperatorSync = "activity3:operator-sync"
)

// Student-side roles. Only recorders report progress; operators drive the
// shared screen without contributing stars.
const (
	RoleRecorder = "recorder"
	RoleOperator = "operator"
)

// Activity keys identify the three scored classroom activities.
const (
	ActivityA1 = "a1"
	ActivityA2 = "a2"
	ActivityA3 = "a3"
)

// Tab keys for the student client's persisted navigation state.
const (
	TabActivity1 = "activity1"
	TabActivity2 = "activity2"
	TabActivity3 = "activity3"
	TabActivity4 = "activity4"
)

// Event is the tagged union carried on the single "event" channel. Only
// Type is always present; every other field belongs to a subset of event
// kinds and is omitted from the wire form when zero. Payload and Data are
// kept as raw JSON so the relay can pass content through without
// interpreting it.
type Event struct {
	Type      string          `json:"type"`
	GroupID   int             `json:"groupId,omitempty"`
	Role      string          `json:"role,omitempty"`
	Activity  string          `json:"activity,omitempty"`
	Stars     int             `json:"stars,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Lock is an advisory ownership record for a classroom group or the
// teacher seat. By is the claiming locker id, At the claim time in
// milliseconds. Ownership is cooperative: holders are expected to check
// the record, nothing enforces it.
type Lock struct {
	By string `json:"by"`
	At int64  `json:"at"`
}

// SessionState is the student client's persisted session. GroupID is nil
// when logged out. RecordsByGroup accumulates per-activity progress
// payloads keyed by group key, then by logical record name.
type SessionState struct {
	GroupID        *int                                  `json:"groupId"`
	CurrentTab     string                                `json:"currentTab"`
	Role           string                                `json:"role"`
	RecordsByGroup map[string]map[string]json.RawMessage `json:"recordsByGroup"`
}

// DefaultSessionState returns the logged-out starting state, also used as
// the fallback when persisted state is missing or corrupt.
func DefaultSessionState() SessionState {
	return SessionState{
		CurrentTab:     TabActivity1,
		RecordsByGroup: map[string]map[string]json.RawMessage{},
	}
}

// VarBinding is a single named value in teacher-authored demo code. The
// teacher can name the solution-indicator variable anything, so bindings
// travel as an explicit name/value list rather than a free-form object.
type VarBinding struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// BroadcastContent is the teacher-pushed content for activity 2.
type BroadcastContent struct {
	Code       string       `json:"code"`
	CodeInfo   []VarBinding `json:"codeInfo"`
	TotalHeads int          `json:"totalHeads"`
	TotalLegs  int          `json:"totalLegs"`
}

// Activity3Content is the teacher-pushed content for activity 3.
type Activity3Content struct {
	Directions []string `json:"directions"`
	Timestamp  int64    `json:"timestamp"`
}
