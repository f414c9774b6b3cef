package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	Create(product *domain.Product) error
	FindByID(id uint) (*domain.Product, error)
	ListPaged(req PageRequest, category string) (PageResult[domain.Product], error)
	Update(id uint, updates map[string]any) error
	DeleteByID(id uint) error
}

type GormProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(product *domain.Product) error {
	return r.db.Create(product).Error
}

func (r *GormProductRepository) FindByID(id uint) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ListPaged returns newest-first products, optionally narrowed to a
// category with a case-insensitive substring match (the storefront pages
// pass partial names like "processador").
func (r *GormProductRepository) ListPaged(req PageRequest, category string) (PageResult[domain.Product], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Product]{
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}

	base := r.db.Model(&domain.Product{})
	if c := strings.TrimSpace(category); c != "" {
		base = base.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(c)+"%")
	}
	if err := base.Count(&result.Total).Error; err != nil {
		return PageResult[domain.Product]{}, err
	}
	offset := (normalized.Page - 1) * normalized.PageSize
	if err := base.Order("id desc").Offset(offset).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		return PageResult[domain.Product]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, normalized.PageSize)
	return result, nil
}

func (r *GormProductRepository) Update(id uint, updates map[string]any) error {
	res := r.db.Model(&domain.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) DeleteByID(id uint) error {
	res := r.db.Delete(&domain.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
