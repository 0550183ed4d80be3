package tooluse

import (
	"testing"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func catalog() []types.Tool {
	return []types.Tool{
		{ID: "search", Name: "Web Search", ServerID: "s1"},
		{ID: "fetch", Name: "fetch", ServerID: "s2"},
	}
}

func TestParseSingleBlock(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))

	got := p.Parse(`<tool_use><name>search</name><arguments>{"q":"x"}</arguments></tool_use>`, catalog(), 0)
	require.Len(t, got, 1)
	assert.Equal(t, types.ToolResponse{
		ID:        "search-0",
		ToolUseID: "search",
		Tool:      catalog()[0],
		Arguments: map[string]any{"q": "x"},
		Status:    types.ToolStatusPending,
	}, got[0])
}

func TestParseMultipleBlocks(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))

	content := "Let me look that up.\n" +
		"<tool_use>\n  <name> search </name>\n  <arguments>\n{\"q\":\"go\"}\n</arguments>\n</tool_use>\n" +
		"and then\n" +
		"<tool_use><name>Web Search</name><arguments>{\"q\":\"rust\"}</arguments></tool_use>" +
		"<tool_use><name>fetch</name><arguments>https://example.com</arguments></tool_use>"

	got := p.Parse(content, catalog(), 7)
	require.Len(t, got, 3)

	assert.Equal(t, "search-7", got[0].ID)
	assert.Equal(t, map[string]any{"q": "go"}, got[0].Arguments)

	// a display name resolves too, the id keeps the name as written
	assert.Equal(t, "Web Search-8", got[1].ID)
	assert.Equal(t, "search", got[1].Tool.ID)
	assert.Equal(t, "search", got[1].ToolUseID)

	// arguments that are not JSON stay a string
	assert.Equal(t, "fetch-9", got[2].ID)
	assert.Equal(t, "https://example.com", got[2].Arguments)
}

func TestParseUnwrappedContent(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))

	inner := `<name>fetch</name><arguments>{"url":"u"}</arguments>`
	got := p.Parse(inner, catalog(), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "fetch", got[0].Tool.ID)
	assert.Equal(t, map[string]any{"url": "u"}, got[0].Arguments)
}

func TestParseIsIdempotentOnWrappedInput(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))

	inner := `<name>fetch</name><arguments>{}</arguments>`
	once := "<tool_use>\n" + inner + "\n</tool_use>"

	assert.Len(t, p.Parse(inner, catalog(), 0), 1)
	assert.Len(t, p.Parse(once, catalog(), 0), 1)
	assert.Equal(t, p.Parse(inner, catalog(), 0), p.Parse(once, catalog(), 0))
}

func TestParseSkipsUnknownTools(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	p := NewParser(zap.New(core))

	content := `<tool_use><name>delete_everything</name><arguments>{}</arguments></tool_use>` +
		`<tool_use><name>fetch</name><arguments>{}</arguments></tool_use>`

	got := p.Parse(content, catalog(), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "fetch-0", got[0].ID)
	assert.Equal(t, 1, logs.FilterMessage("tool requested by the model was not found").Len())
}

func TestParseAmbiguousNamePicksFirst(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewParser(zap.New(core))

	tools := []types.Tool{{ID: "a", Name: "x"}, {ID: "x", Name: "b"}}
	got := p.Parse(`<tool_use><name>x</name><arguments>{}</arguments></tool_use>`, tools, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Tool.ID)
	assert.Equal(t, 1, logs.FilterMessage("multiple tools match the requested tool, using the first").Len())
}

func TestParseEmptyInputs(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))
	assert.Nil(t, p.Parse("", catalog(), 0))
	assert.Nil(t, p.Parse(`<tool_use><name>fetch</name><arguments>{}</arguments></tool_use>`, nil, 0))
	assert.Nil(t, p.Parse("no tools requested here", catalog(), 0))
}

func TestScanMalformedBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Block
	}{
		{
			name:    "missing arguments",
			content: `<tool_use><name>a</name></tool_use><tool_use><name>b</name><arguments>1</arguments></tool_use>`,
			want:    []Block{{Name: "b", Arguments: "1"}},
		},
		{
			name:    "arguments before name",
			content: `<tool_use><arguments>1</arguments><name>a</name></tool_use>`,
		},
		{
			name:    "unterminated block",
			content: `<tool_use><name>a</name><arguments>1</arguments>`,
		},
		{
			name:    "surrounding noise",
			content: `x<tool_use>pre<name>a</name>mid<arguments>{"k":1}</arguments>post</tool_use>y`,
			want:    []Block{{Name: "a", Arguments: `{"k":1}`}},
		},
		{
			name:    "parts never span blocks",
			content: `<tool_use><name>a</name></tool_use><tool_use><arguments>1</arguments></tool_use>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.content))
		})
	}
}
