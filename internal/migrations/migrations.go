// Package migrations creates and updates the registry schema.
package migrations

import (
	"fmt"

	"github.com/mcpbridge/mcpbridge/internal/model"
	"gorm.io/gorm"
)

// Migrate brings the database schema up to date with the registry models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.McpServer{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
