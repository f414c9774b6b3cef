package domain

import "time"

// Product JSON field names stay in Portuguese to match the storefront
// pages that consume /produtos.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null;index" json:"nome"`
	Description string    `gorm:"size:500" json:"descricao"`
	Price       float64   `gorm:"not null" json:"preco"`
	Category    string    `gorm:"size:64;index" json:"categoria"`
	ImageURL    string    `gorm:"size:1024" json:"imagem_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
