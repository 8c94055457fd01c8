package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegbarsky/techstock-bot/pkg/enums"
)

// State is what a user is in the middle of: the active scenario, how
// it was entered, and scenario-specific payload. It is persisted as an
// opaque JSON blob on the user row and has no identity of its own.
//
// A zero State means no pending multi-step flow: only top-level
// commands route. Unknown fields in at-rest blobs are ignored so the
// layout can grow without breaking persisted values.
type State struct {
	Scenario enums.Scenario `json:"scenario,omitempty"`
	Modifier enums.Modifier `json:"modifier,omitempty"`

	TicketID   *uuid.UUID `json:"ticket_id,omitempty"`
	WriteoffID *uuid.UUID `json:"writeoff_id,omitempty"`

	// DeviceIndex points into the ticket's ordered device collection;
	// it may reference a not-yet-created slot during device creation.
	DeviceIndex *int `json:"device_index,omitempty"`

	DeviceTypeSlug string `json:"device_type_slug,omitempty"`

	// AwaitCommand is the command prefix the next free-text reply is
	// routed to, with the text appended as the final argument.
	AwaitCommand string `json:"await_command,omitempty"`
}

// Pending reports whether a multi-step flow is active.
func (s *State) Pending() bool {
	return s != nil && s.Scenario != ""
}

// Clear resets the state to "no pending flow" in place.
func (s *State) Clear() {
	*s = State{}
}

// FinishStep clears the pending prompt while keeping the anchors to
// the active ticket or write-off, and how the flow was entered.
func (s *State) FinishStep() {
	s.Scenario = ""
	s.AwaitCommand = ""
	s.DeviceIndex = nil
	s.DeviceTypeSlug = ""
}

// Expect arms the state for the next step: the scenario the user is
// inside and the command its free-text reply completes.
func (s *State) Expect(scenario enums.Scenario, awaitCommand string) {
	s.Scenario = scenario
	s.AwaitCommand = awaitCommand
}

// Validate rejects blobs whose scenario or modifier no longer names a
// registered continuation.
func (s *State) Validate() error {
	if s == nil {
		return nil
	}
	if s.Scenario != "" && !s.Scenario.IsValid() {
		return fmt.Errorf("unknown scenario %q", s.Scenario)
	}
	if s.Modifier != "" && !s.Modifier.IsValid() {
		return fmt.Errorf("unknown modifier %q", s.Modifier)
	}
	if s.Scenario != "" && s.AwaitCommand == "" {
		return fmt.Errorf("scenario %q has no pending command", s.Scenario)
	}
	return nil
}

// Decode reads a persisted blob into a State. Empty or NULL blobs and
// blobs that fail validation decode to the zero state, so a malformed
// at-rest value can never wedge a user.
func Decode(blob []byte) State {
	if len(blob) == 0 {
		return State{}
	}
	var state State
	if err := json.Unmarshal(blob, &state); err != nil {
		return State{}
	}
	if err := state.Validate(); err != nil {
		return State{}
	}
	return state
}

// Encode serializes the state for storage. The zero state encodes to
// nil so "no pending flow" stays NULL at rest.
func (s *State) Encode() ([]byte, error) {
	if s == nil || (!s.Pending() && s.TicketID == nil && s.WriteoffID == nil) {
		return nil, nil
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding conversation state: %w", err)
	}
	return blob, nil
}
