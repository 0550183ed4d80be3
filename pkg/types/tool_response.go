package types

// ToolStatus is the lifecycle state of a tool call in flight.
type ToolStatus string

const (
	ToolStatusPending   ToolStatus = "pending"
	ToolStatusInvoking  ToolStatus = "invoking"
	ToolStatusCancelled ToolStatus = "cancelled"
	ToolStatusDone      ToolStatus = "done"
)

func (s ToolStatus) rank() int {
	switch s {
	case ToolStatusPending:
		return 0
	case ToolStatusInvoking:
		return 1
	case ToolStatusCancelled, ToolStatusDone:
		return 2
	default:
		return -1
	}
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ToolStatus) IsTerminal() bool {
	return s == ToolStatusCancelled || s == ToolStatusDone
}

// CanTransition reports whether a call in state s may move to state next.
// Transitions only move forward. Re-asserting the current non-terminal state is allowed so that
// arguments can be refreshed; terminal states accept nothing.
func (s ToolStatus) CanTransition(next ToolStatus) bool {
	if s.IsTerminal() || s.rank() < 0 || next.rank() < 0 {
		return false
	}
	return next.rank() >= s.rank()
}

// ToolResponse tracks one tool call from the moment a model requests it until it completes.
type ToolResponse struct {
	ID   string `json:"id"`
	Tool Tool   `json:"tool"`

	// ToolUseID is the identifier the vendor assigned to the call (Anthropic, Bedrock, text tool use).
	ToolUseID string `json:"toolUseId,omitempty"`
	// ToolCallID is the identifier of an OpenAI style tool call.
	ToolCallID string `json:"toolCallId,omitempty"`

	// Arguments is normally a key-value object. Free-text tool use may leave it as a raw string
	// when the model produced arguments that are not valid JSON.
	Arguments any `json:"arguments,omitempty"`

	Status   ToolStatus      `json:"status"`
	Response *ToolCallResult `json:"response,omitempty"`
}

// ArgumentsMap returns the arguments as an object, or nil when they are not one.
func (r *ToolResponse) ArgumentsMap() map[string]any {
	if m, ok := r.Arguments.(map[string]any); ok {
		return m
	}
	return nil
}

// VendorCallID returns the vendor-side identifier of the call, falling back to the local id.
func (r *ToolResponse) VendorCallID() string {
	switch {
	case r.ToolUseID != "":
		return r.ToolUseID
	case r.ToolCallID != "":
		return r.ToolCallID
	default:
		return r.ID
	}
}
