package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vgcarvalho/techstore-backend/internal/config"
)

// Open connects to Postgres. TranslateError is on so unique-constraint
// violations surface as gorm.ErrDuplicatedKey, which the user repository
// maps to ErrEmailTaken.
func Open(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}
