package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
)

var defaultProducts = []domain.Product{
	{Name: "Ryzen 7 5700X", Description: "8 nucleos, 16 threads, AM4", Price: 1249.90, Category: "processador"},
	{Name: "Core i5-12400F", Description: "6 nucleos, LGA1700", Price: 899.90, Category: "processador"},
	{Name: "GeForce RTX 4060 8GB", Description: "DLSS 3, 8GB GDDR6", Price: 2199.00, Category: "placa-de-video"},
	{Name: "Radeon RX 6600 8GB", Description: "8GB GDDR6, RDNA 2", Price: 1599.00, Category: "placa-de-video"},
	{Name: "Kingston Fury 16GB DDR4", Description: "2x8GB 3200MHz CL16", Price: 289.90, Category: "memoria"},
	{Name: "SSD NVMe 1TB Gen4", Description: "Leitura 5000MB/s", Price: 449.90, Category: "armazenamento"},
}

type SeedReport struct {
	CreatedProducts int  `json:"created_products"`
	AdminPromoted   bool `json:"admin_promoted"`
	Noop            bool `json:"noop"`
}

func Seed(db *gorm.DB, bootstrapAdminEmail string) error {
	_, err := SeedCatalog(db, bootstrapAdminEmail)
	return err
}

// SeedCatalog inserts the default catalog (idempotent, keyed by product
// name) and promotes the bootstrap admin account when it already exists.
func SeedCatalog(db *gorm.DB, bootstrapAdminEmail string) (*SeedReport, error) {
	report := &SeedReport{}

	for _, p := range defaultProducts {
		res := db.Where("name = ?", p.Name).FirstOrCreate(&p)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedProducts++
		}
	}

	email := strings.TrimSpace(strings.ToLower(bootstrapAdminEmail))
	if email != "" {
		res := db.Model(&domain.User{}).Where("email = ?", email).Update("is_admin", true)
		if res.Error != nil {
			return nil, res.Error
		}
		report.AdminPromoted = res.RowsAffected > 0
	}

	report.Noop = report.CreatedProducts == 0 && !report.AdminPromoted
	return report, nil
}

// VerifyEmail force-verifies an account. Operational escape hatch used
// by the seed CLI when mail delivery is unavailable in an environment.
func VerifyEmail(db *gorm.DB, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return errors.New("email is required")
	}
	res := db.Model(&domain.User{}).
		Where("email = ?", email).
		Updates(map[string]any{"verified": true, "verification_token": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("no account found for " + email)
	}
	return nil
}
