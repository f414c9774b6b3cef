package database

import (
	"gorm.io/gorm"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Product{},
	)
}
