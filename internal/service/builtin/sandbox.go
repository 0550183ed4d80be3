package builtin

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultSandboxRoot is the sandbox directory used when none is configured.
const DefaultSandboxRoot = "./mcp-sandbox"

// EntryType tells files and directories apart in a sandbox listing.
type EntryType string

const (
	EntryTypeFile      EntryType = "file"
	EntryTypeDirectory EntryType = "directory"
)

// Entry describes one item of a sandbox directory listing.
type Entry struct {
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
	Size     int64     `json:"size"`
	Modified string    `json:"modified,omitempty"`
}

// Sandbox confines file access to a single root directory.
type Sandbox struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

// NewSandbox creates a sandbox rooted at root on the given filesystem.
// The root directory is created lazily on first use.
func NewSandbox(fs afero.Fs, root string, logger *zap.Logger) *Sandbox {
	if root == "" {
		root = DefaultSandboxRoot
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{fs: fs, root: path.Clean(toSlash(root)), logger: logger}
}

// Root returns the sandbox root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// SanitizePath turns a caller-supplied relative path into a path that cannot leave the sandbox.
// Backslashes become slashes, and empty, "." and ".." segments are dropped rather than resolved.
func SanitizePath(relative string) string {
	segments := strings.Split(toSlash(relative), "/")
	kept := segments[:0]
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		kept = append(kept, segment)
	}
	return strings.Join(kept, "/")
}

// Resolve returns the location of a relative path inside the sandbox.
// The result is always the root itself or one of its descendants.
func (s *Sandbox) Resolve(relative string) string {
	sanitized := SanitizePath(relative)
	if sanitized == "" {
		return s.root
	}
	return path.Join(s.root, sanitized)
}

func (s *Sandbox) ensureRoot() error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create sandbox root: %w", err)
	}
	return nil
}

// List returns the entries of a sandbox directory. An empty path lists the root.
func (s *Sandbox) List(relative string) ([]Entry, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	target := s.Resolve(relative)

	info, err := s.fs.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory does not exist: %s", relative)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", relative)
	}

	infos, err := afero.ReadDir(s.fs, target)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", relative, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		e := Entry{Name: fi.Name(), Type: EntryTypeFile, Size: fi.Size()}
		if fi.IsDir() {
			e.Type = EntryTypeDirectory
		}
		if !fi.ModTime().IsZero() {
			e.Modified = fi.ModTime().UTC().Format(time.RFC3339)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Read returns the content of a sandbox file.
func (s *Sandbox) Read(relative string) (string, error) {
	if err := s.ensureRoot(); err != nil {
		return "", err
	}
	target := s.Resolve(relative)

	info, err := s.fs.Stat(target)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("file does not exist or path is a directory: %s", relative)
	}

	b, err := afero.ReadFile(s.fs, target)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", relative, err)
	}
	return string(b), nil
}

// Write stores content in a sandbox file, creating missing parent directories.
func (s *Sandbox) Write(relative, content string) error {
	if err := s.ensureRoot(); err != nil {
		return err
	}
	target := s.Resolve(relative)
	if target == s.root {
		return fmt.Errorf("path must name a file inside the sandbox: %s", relative)
	}

	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories of %s: %w", relative, err)
	}
	if err := afero.WriteFile(s.fs, target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", relative, err)
	}

	s.logger.Debug("sandbox file saved", zap.String("path", target))
	return nil
}

// Delete removes a sandbox file or directory tree.
func (s *Sandbox) Delete(relative string) error {
	if err := s.ensureRoot(); err != nil {
		return err
	}
	target := s.Resolve(relative)
	if target == s.root {
		return errors.New("refusing to delete the sandbox root")
	}

	exists, err := afero.Exists(s.fs, target)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("entry does not exist: %s", relative)
	}

	if err := s.fs.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to delete %s: %w", relative, err)
	}

	s.logger.Debug("sandbox entry deleted", zap.String("path", target))
	return nil
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
