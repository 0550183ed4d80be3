// Package registry stores the configuration records of the MCP servers known to mcpbridge.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mcpbridge/mcpbridge/internal/model"
	"github.com/mcpbridge/mcpbridge/internal/service/builtin"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ErrReservedServerID is returned when a caller tries to overwrite or delete a built-in server.
var ErrReservedServerID = errors.New("server id is reserved for a built-in server")

// FileConfig is the layout of a servers file.
type FileConfig struct {
	Servers []types.MCPServer `yaml:"servers"`
}

// Registry serves server records from the database. The built-in servers are always present
// and cannot be changed.
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRegistry creates a new Registry.
func NewRegistry(db *gorm.DB, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{db: db, logger: logger.Named("registry")}
}

// GetServer returns the server with the given id, or types.ErrServerNotFound.
func (r *Registry) GetServer(ctx context.Context, id string) (*types.MCPServer, error) {
	for _, s := range builtin.Servers() {
		if s.ID == id {
			return &s, nil
		}
	}

	var row model.McpServer
	err := r.db.WithContext(ctx).Where("server_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrServerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", id, err)
	}
	return row.ToServer()
}

// ListServers returns the stored servers ordered by name, followed by the built-in servers.
func (r *Registry) ListServers(ctx context.Context) ([]types.MCPServer, error) {
	var rows []model.McpServer
	if err := r.db.WithContext(ctx).Order("name, server_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	servers := make([]types.MCPServer, 0, len(rows)+2)
	for i := range rows {
		s, err := rows[i].ToServer()
		if err != nil {
			return nil, err
		}
		servers = append(servers, *s)
	}
	return append(servers, builtin.Servers()...), nil
}

// SaveServer validates and stores a server, replacing any stored server with the same id.
func (r *Registry) SaveServer(ctx context.Context, server *types.MCPServer) error {
	if server != nil && builtin.IsBuiltinServer(server.ID) {
		return fmt.Errorf("%w: %s", ErrReservedServerID, server.ID)
	}
	row, err := model.NewMcpServer(server)
	if err != nil {
		return fmt.Errorf("invalid server: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.McpServer
		err := tx.Where("server_id = ?", row.ServerID).First(&existing).Error
		switch {
		case err == nil:
			row.Model = existing.Model
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up server %s: %w", row.ServerID, err)
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to save server %s: %w", row.ServerID, err)
		}
		return nil
	})
}

// DeleteServer removes a stored server.
func (r *Registry) DeleteServer(ctx context.Context, id string) error {
	if builtin.IsBuiltinServer(id) {
		return fmt.Errorf("%w: %s", ErrReservedServerID, id)
	}
	res := r.db.WithContext(ctx).Unscoped().Where("server_id = ?", id).Delete(&model.McpServer{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete server %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", types.ErrServerNotFound, id)
	}
	return nil
}

// Import stores every server of a YAML servers file read from rd.
// It returns the number of servers stored. Import stops at the first invalid server.
func (r *Registry) Import(ctx context.Context, rd io.Reader) (int, error) {
	var config FileConfig
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to parse servers file: %w", err)
	}

	for i := range config.Servers {
		if err := r.SaveServer(ctx, &config.Servers[i]); err != nil {
			return i, fmt.Errorf("server #%d (%s): %w", i+1, config.Servers[i].ID, err)
		}
	}
	r.logger.Info("imported MCP servers", zap.Int("count", len(config.Servers)))
	return len(config.Servers), nil
}

// ImportFile imports the servers file at path.
func (r *Registry) ImportFile(ctx context.Context, fs afero.Fs, path string) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open servers file: %w", err)
	}
	defer f.Close()
	return r.Import(ctx, f)
}
