package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

var errNoToolName = errors.New("tool call has no tool name")

// vendorCall is what every vendor's tool call payload boils down to.
type vendorCall struct {
	name string
	id   string
	args json.RawMessage
}

type matchMode int

const (
	// matchExact matches the call name against a tool's id or display name.
	matchExact matchMode = iota
	// matchContains also accepts tools whose id or name contains the call name,
	// for hosts that truncate or sanitize function names.
	matchContains
)

// callDecoder implements the decoding half of an Adapter on top of a vendor specific parser.
type callDecoder struct {
	vendor Vendor
	logger *zap.Logger
	mode   matchMode
	parse  func(raw json.RawMessage) (vendorCall, error)

	// openAIStyleIDs stores the vendor call id as ToolCallID instead of ToolUseID.
	openAIStyleIDs bool
}

func (d callDecoder) Vendor() Vendor {
	return d.vendor
}

func (d callDecoder) DecodeToolCall(tools []types.Tool, raw json.RawMessage) (types.Tool, bool) {
	call, err := d.parse(raw)
	if err != nil {
		d.logger.Error("failed to parse tool call", zap.String("vendor", string(d.vendor)), zap.Error(err))
		return types.Tool{}, false
	}
	return d.resolve(tools, call.name)
}

func (d callDecoder) DecodeToolResponse(tools []types.Tool, raw json.RawMessage) (*types.ToolResponse, bool) {
	call, err := d.parse(raw)
	if err != nil {
		d.logger.Error("failed to parse tool call", zap.String("vendor", string(d.vendor)), zap.Error(err))
		return nil, false
	}
	tool, ok := d.resolve(tools, call.name)
	if !ok {
		return nil, false
	}

	resp := &types.ToolResponse{
		ID:        call.id,
		Tool:      tool,
		Arguments: decodeArguments(call.args),
		Status:    types.ToolStatusPending,
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if d.openAIStyleIDs {
		resp.ToolCallID = call.id
	} else {
		resp.ToolUseID = call.id
	}
	return resp, true
}

// resolve finds the tool a call refers to. No match is a recoverable miss and more than one match
// picks the first; both are logged.
func (d callDecoder) resolve(tools []types.Tool, name string) (types.Tool, bool) {
	var matches []int
	for i := range tools {
		if d.matches(&tools[i], name) {
			matches = append(matches, i)
		}
	}

	switch {
	case len(matches) == 0:
		d.logger.Warn("no tool found for tool call",
			zap.String("vendor", string(d.vendor)), zap.String("tool", name))
		return types.Tool{}, false
	case len(matches) > 1:
		d.logger.Warn("multiple tools found for tool call, using the first",
			zap.String("vendor", string(d.vendor)), zap.String("tool", name), zap.Int("matches", len(matches)))
	}
	return tools[matches[0]], true
}

func (d callDecoder) matches(t *types.Tool, name string) bool {
	if t.ID == name || t.Name == name {
		return true
	}
	if d.mode == matchContains {
		return strings.Contains(t.ID, name) || strings.Contains(t.Name, name)
	}
	return false
}

// decodeArguments decodes call arguments given either as a JSON object or as a JSON string
// holding one (the OpenAI convention). Arguments that are not valid JSON are kept as a string.
func decodeArguments(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return s
		}
		return v
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func requireName(name string) error {
	if name == "" {
		return errNoToolName
	}
	return nil
}
