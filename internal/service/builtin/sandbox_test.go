package builtin

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"notes.txt", "notes.txt"},
		{"a/b/c.txt", "a/b/c.txt"},
		{`a\b\c.txt`, "a/b/c.txt"},
		{"../../etc/passwd", "etc/passwd"},
		{"/etc/passwd", "etc/passwd"},
		{"./a/./b", "a/b"},
		{"a//b///c", "a/b/c"},
		{`..\..\windows\system32`, "windows/system32"},
		{"a/../../b", "a/b"},
		{" a / b ", "a/b"},
		{"..", ""},
		{"...", "..."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePath(tt.input))
		})
	}
}

func TestResolveNeverEscapesRoot(t *testing.T) {
	s := NewSandbox(afero.NewMemMapFs(), "/sandbox", zaptest.NewLogger(t))

	inputs := []string{
		"../../etc/passwd",
		"..",
		".",
		"",
		"a/../../../b",
		`..\..\..\x`,
		"/../..//./x/..",
		"x/y/../../../z",
	}
	for _, in := range inputs {
		got := s.Resolve(in)
		assert.True(t, got == "/sandbox" || strings.HasPrefix(got, "/sandbox/"), "Resolve(%q) = %q escapes the root", in, got)
		for _, segment := range strings.Split(got, "/") {
			assert.NotEqual(t, "..", segment, "Resolve(%q) = %q", in, got)
		}
	}

	assert.Equal(t, "/sandbox/etc/passwd", s.Resolve("../../etc/passwd"))
}

func TestSandboxFileLifecycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSandbox(fs, "/sandbox", zaptest.NewLogger(t))

	require.NoError(t, s.Write("notes/today.txt", "hello"))

	content, err := s.Read("notes/today.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	entries, err := s.List("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes", entries[0].Name)
	assert.Equal(t, EntryTypeDirectory, entries[0].Type)

	entries, err = s.List("notes")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{
		Name:     "today.txt",
		Type:     EntryTypeFile,
		Size:     5,
		Modified: entries[0].Modified,
	}, entries[0])
	assert.NotEmpty(t, entries[0].Modified)

	require.NoError(t, s.Delete("notes"))
	exists, err := afero.Exists(fs, "/sandbox/notes")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSandboxErrors(t *testing.T) {
	s := NewSandbox(afero.NewMemMapFs(), "/sandbox", zaptest.NewLogger(t))
	require.NoError(t, s.Write("dir/file.txt", "x"))

	_, err := s.Read("missing.txt")
	assert.Error(t, err)

	_, err = s.Read("dir")
	assert.Error(t, err, "reading a directory must fail")

	_, err = s.List("missing")
	assert.Error(t, err)

	_, err = s.List("dir/file.txt")
	assert.Error(t, err, "listing a file must fail")

	assert.Error(t, s.Delete("missing"))
	assert.Error(t, s.Delete(".."), "the root itself is never deleted")
	assert.Error(t, s.Write("", "x"))
}

func TestSandboxWriteTraversalStaysInside(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSandbox(fs, "/sandbox", zaptest.NewLogger(t))

	require.NoError(t, s.Write("../../etc/passwd", "root:x"))

	inside, err := afero.Exists(fs, "/sandbox/etc/passwd")
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := afero.Exists(fs, "/etc/passwd")
	require.NoError(t, err)
	assert.False(t, outside)
}
