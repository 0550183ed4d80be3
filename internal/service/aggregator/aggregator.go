// Package aggregator merges incremental tool call updates into the list of calls of a conversation
// and tells the UI layer about every change.
package aggregator

import (
	"sync"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// NotificationKind is the kind of a UI notification.
type NotificationKind string

const (
	NotificationToolPending    NotificationKind = "mcp_tool_pending"
	NotificationToolInProgress NotificationKind = "mcp_tool_in_progress"
	NotificationToolComplete   NotificationKind = "mcp_tool_complete"
)

// Notification tells the UI layer that a tool call changed.
type Notification struct {
	Kind      NotificationKind     `json:"type"`
	Responses []types.ToolResponse `json:"responses"`
}

// NotifyFunc receives notifications.
type NotifyFunc func(Notification)

// Upsert merges resp into results and returns the updated list.
//
// A response with a new id is appended. For a known id only the response, arguments and status are
// taken from resp; the stored tool binding and ids are kept. Updates that would move a call
// backwards (or out of a terminal state) are ignored.
//
// Exactly one notification is sent for the resulting status. Statuses this package does not know
// are stored but not notified.
func Upsert(results []types.ToolResponse, resp types.ToolResponse, notify NotifyFunc) []types.ToolResponse {
	results, _ = upsert(results, resp, notify)
	return results
}

func upsert(
	results []types.ToolResponse, resp types.ToolResponse, notify NotifyFunc,
) ([]types.ToolResponse, bool) {
	applied := true
	result := resp

	index := -1
	for i := range results {
		if results[i].ID == resp.ID {
			index = i
			break
		}
	}

	if index >= 0 {
		cur := results[index]
		if isStale(cur.Status, resp.Status) {
			applied = false
		} else {
			cur.Response = resp.Response
			cur.Arguments = resp.Arguments
			cur.Status = resp.Status
			results[index] = cur
		}
		result = cur
	} else {
		results = append(results, resp)
	}

	if kind, ok := notificationFor(result.Status); ok && notify != nil {
		notify(Notification{Kind: kind, Responses: []types.ToolResponse{result}})
	}
	return results, applied
}

// isStale reports whether moving from cur to next would go backwards.
// Unknown statuses are never considered stale.
func isStale(cur, next types.ToolStatus) bool {
	if !isKnown(cur) || !isKnown(next) {
		return false
	}
	return !cur.CanTransition(next)
}

func isKnown(s types.ToolStatus) bool {
	switch s {
	case types.ToolStatusPending, types.ToolStatusInvoking, types.ToolStatusCancelled, types.ToolStatusDone:
		return true
	default:
		return false
	}
}

func notificationFor(s types.ToolStatus) (NotificationKind, bool) {
	switch s {
	case types.ToolStatusPending:
		return NotificationToolPending, true
	case types.ToolStatusInvoking:
		return NotificationToolInProgress, true
	case types.ToolStatusCancelled, types.ToolStatusDone:
		return NotificationToolComplete, true
	default:
		return "", false
	}
}

// Aggregator owns the tool calls of one conversation. It is safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	results []types.ToolResponse
	notify  NotifyFunc
	logger  *zap.Logger
}

// New creates an Aggregator that sends its notifications to notify.
func New(notify NotifyFunc, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{notify: notify, logger: logger.Named("aggregator")}
}

// Upsert merges one update. Notifications are sent while the aggregator is locked,
// so they arrive in the order the updates were merged.
func (a *Aggregator) Upsert(resp types.ToolResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var applied bool
	a.results, applied = upsert(a.results, resp, a.notify)
	if !applied {
		a.logger.Debug("ignored out of order tool call update",
			zap.String("id", resp.ID), zap.String("status", string(resp.Status)))
	}
}

// Results returns a copy of the tool calls merged so far.
func (a *Aggregator) Results() []types.ToolResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.ToolResponse(nil), a.results...)
}

// Get returns the tool call with the given id.
func (a *Aggregator) Get(id string) (types.ToolResponse, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.results {
		if r.ID == id {
			return r, true
		}
	}
	return types.ToolResponse{}, false
}
