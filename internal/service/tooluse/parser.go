// Package tooluse extracts tool invocations from the plain text output of models that are prompted
// to request tools with <tool_use> blocks instead of native function calling.
package tooluse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

const (
	openToolUse    = "<tool_use>"
	closeToolUse   = "</tool_use>"
	openName       = "<name>"
	closeName      = "</name>"
	openArguments  = "<arguments>"
	closeArguments = "</arguments>"
)

// Block is one <tool_use> block found in model output.
type Block struct {
	Name      string
	Arguments string
}

// Parser turns <tool_use> blocks into pending tool responses.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new Parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("tooluse")}
}

// Parse returns one pending ToolResponse per <tool_use> block that names a known tool.
//
// Content without any <tool_use> tag is taken to be the inside of a single block.
// Response ids are "<tool name>-<n>" with n counting up from startIdx, so ids are unique within one
// call; callers parsing a stream in pieces must carry the index forward themselves.
func (p *Parser) Parse(content string, tools []types.Tool, startIdx int) []types.ToolResponse {
	if content == "" || len(tools) == 0 {
		return nil
	}

	var responses []types.ToolResponse
	idx := startIdx
	for _, block := range Scan(content) {
		tool, ok := p.resolve(tools, block.Name)
		if !ok {
			continue
		}
		responses = append(responses, types.ToolResponse{
			ID:        fmt.Sprintf("%s-%d", block.Name, idx),
			ToolUseID: tool.ID,
			Tool:      tool,
			Arguments: parseArguments(block.Arguments),
			Status:    types.ToolStatusPending,
		})
		idx++
	}
	return responses
}

func (p *Parser) resolve(tools []types.Tool, name string) (types.Tool, bool) {
	var found []int
	for i := range tools {
		if tools[i].ID == name || tools[i].Name == name {
			found = append(found, i)
		}
	}
	switch {
	case len(found) == 0:
		p.logger.Error("tool requested by the model was not found", zap.String("tool", name))
		return types.Tool{}, false
	case len(found) > 1:
		p.logger.Warn("multiple tools match the requested tool, using the first",
			zap.String("tool", name), zap.Int("matches", len(found)))
	}
	return tools[found[0]], true
}

// parseArguments decodes JSON arguments. Text that is not valid JSON is kept as it is.
func parseArguments(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	return v
}

// Scan returns the <tool_use> blocks of content from left to right.
//
// A block runs from <tool_use> to the next </tool_use> and must contain a <name> element followed
// by an <arguments> element; anything else between the tags is ignored. Malformed blocks are skipped.
func Scan(content string) []Block {
	if !strings.Contains(content, openToolUse) {
		content = openToolUse + "\n" + content + "\n" + closeToolUse
	}

	var blocks []Block
	rest := content
	for {
		start := strings.Index(rest, openToolUse)
		if start < 0 {
			break
		}
		rest = rest[start+len(openToolUse):]

		end := strings.Index(rest, closeToolUse)
		if end < 0 {
			break
		}
		body := rest[:end]
		rest = rest[end+len(closeToolUse):]

		if block, ok := scanBlock(body); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func scanBlock(body string) (Block, bool) {
	name, after, ok := element(body, openName, closeName)
	if !ok {
		return Block{}, false
	}
	args, _, ok := element(after, openArguments, closeArguments)
	if !ok {
		return Block{}, false
	}
	return Block{Name: strings.TrimSpace(name), Arguments: strings.TrimSpace(args)}, true
}

// element returns the text between the first open tag and the close tag after it,
// and what follows the close tag.
func element(s, openTag, closeTag string) (inner, after string, ok bool) {
	i := strings.Index(s, openTag)
	if i < 0 {
		return "", "", false
	}
	s = s[i+len(openTag):]
	j := strings.Index(s, closeTag)
	if j < 0 {
		return "", "", false
	}
	return s[:j], s[j+len(closeTag):], true
}
