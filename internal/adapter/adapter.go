// Package adapter translates the canonical tool and tool result shapes to and from the tool
// calling schemas of the supported model vendors.
//
// Adapters are pure projections: they never modify the tools, responses or results they are given.
package adapter

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// Vendor identifies a model vendor's tool calling schema.
type Vendor string

const (
	VendorOpenAIResponse Vendor = "openai-response"
	VendorOpenAIChat     Vendor = "openai-chat"
	VendorAnthropic      Vendor = "anthropic"
	VendorGemini         Vendor = "gemini"
	VendorBedrock        Vendor = "bedrock"
)

// Options control how a tool result is rendered for a model.
type Options struct {
	// Vision renders images (and audio where supported) as vendor media parts.
	// Without it, the content list is embedded as JSON text.
	Vision bool `json:"vision,omitempty"`

	// NoArrayContent flattens the message to a single text string for providers that reject
	// multi-part content. It takes precedence over Vision.
	NoArrayContent bool `json:"noArrayContent,omitempty"`
}

// Adapter converts between canonical shapes and one vendor's wire schema.
//
// EncodeTools and EncodeResult return vendor wire structs that encode to the vendor's JSON.
// DecodeToolCall resolves a vendor tool call payload to one of the given tools.
type Adapter interface {
	Vendor() Vendor
	EncodeTools(tools []types.Tool) any
	DecodeToolCall(tools []types.Tool, call json.RawMessage) (types.Tool, bool)
	DecodeToolResponse(tools []types.Tool, call json.RawMessage) (*types.ToolResponse, bool)
	EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any
}

// Registry holds one adapter per vendor.
type Registry struct {
	adapters map[Vendor]Adapter
}

// NewRegistry creates a Registry holding the adapters of every supported vendor.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("adapter")

	r := &Registry{adapters: make(map[Vendor]Adapter)}
	for _, a := range []Adapter{
		NewOpenAIResponseAdapter(logger),
		NewOpenAIChatAdapter(logger),
		NewAnthropicAdapter(logger),
		NewGeminiAdapter(logger),
		NewBedrockAdapter(logger),
	} {
		r.adapters[a.Vendor()] = a
	}
	return r
}

// Lookup returns the adapter of a vendor.
func (r *Registry) Lookup(vendor Vendor) (Adapter, error) {
	a, ok := r.adapters[vendor]
	if !ok {
		return nil, fmt.Errorf("unsupported vendor: %s", vendor)
	}
	return a, nil
}

// Vendors returns the ids of all registered vendors in a stable order.
func (r *Registry) Vendors() []Vendor {
	vendors := make([]Vendor, 0, len(r.adapters))
	for v := range r.adapters {
		vendors = append(vendors, v)
	}
	slices.Sort(vendors)
	return vendors
}
