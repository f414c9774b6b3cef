package service

import (
	"context"
	"errors"
	"strings"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
	"github.com/vgcarvalho/techstore-backend/internal/observability"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
)

var (
	ErrProductInvalidName        = errors.New("nome must be between 3 and 120 characters")
	ErrProductInvalidDescription = errors.New("descricao must be <= 500 characters")
	ErrProductInvalidPrice       = errors.New("preco must be greater than 0")
	ErrProductNoUpdates          = errors.New("no updates provided")
)

type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    string
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	ImageURL    *string
}

type ListProductsInput struct {
	Page     repository.PageRequest
	Category string
}

type ProductService struct {
	repo  repository.ProductRepository
	cache *CatalogCache
}

func NewProductService(repo repository.ProductRepository, cache *CatalogCache) *ProductService {
	return &ProductService{repo: repo, cache: cache}
}

func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "create", outcome) }()

	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if len(name) < 3 || len(name) > 120 {
		outcome = "bad_request"
		return nil, ErrProductInvalidName
	}
	if len(description) > 500 {
		outcome = "bad_request"
		return nil, ErrProductInvalidDescription
	}
	if input.Price <= 0 {
		outcome = "bad_request"
		return nil, ErrProductInvalidPrice
	}

	product := &domain.Product{
		Name:        name,
		Description: description,
		Price:       input.Price,
		Category:    strings.TrimSpace(strings.ToLower(input.Category)),
		ImageURL:    strings.TrimSpace(input.ImageURL),
	}
	if err := s.repo.Create(product); err != nil {
		outcome = "error"
		return nil, err
	}
	s.invalidateCache(ctx)
	return product, nil
}

func (s *ProductService) List(ctx context.Context, input ListProductsInput) (repository.PageResult[domain.Product], error) {
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "list", outcome) }()

	if s.cache != nil {
		res, err := s.cache.List(ctx, input, func() (repository.PageResult[domain.Product], error) {
			return s.repo.ListPaged(input.Page, input.Category)
		})
		if err != nil {
			outcome = "error"
		}
		return res, err
	}

	res, err := s.repo.ListPaged(input.Page, input.Category)
	if err != nil {
		outcome = "error"
		return repository.PageResult[domain.Product]{}, err
	}
	return res, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "get", outcome) }()

	product, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
		} else {
			outcome = "error"
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, input UpdateProductInput) (*domain.Product, error) {
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "update", outcome) }()

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < 3 || len(name) > 120 {
			outcome = "bad_request"
			return nil, ErrProductInvalidName
		}
		updates["name"] = name
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > 500 {
			outcome = "bad_request"
			return nil, ErrProductInvalidDescription
		}
		updates["description"] = description
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			outcome = "bad_request"
			return nil, ErrProductInvalidPrice
		}
		updates["price"] = *input.Price
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(strings.ToLower(*input.Category))
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if len(updates) == 0 {
		outcome = "bad_request"
		return nil, ErrProductNoUpdates
	}

	if err := s.repo.Update(id, updates); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
		} else {
			outcome = "error"
		}
		return nil, err
	}
	s.invalidateCache(ctx)
	product, err := s.repo.FindByID(id)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return product, nil
}

func (s *ProductService) DeleteByID(ctx context.Context, id uint) error {
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "delete", outcome) }()

	if err := s.repo.DeleteByID(id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
		} else {
			outcome = "error"
		}
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// SetImageURL records the public image location after a storage upload.
func (s *ProductService) SetImageURL(ctx context.Context, id uint, imageURL string) error {
	if err := s.repo.Update(id, map[string]any{"image_url": imageURL}); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		observability.RecordCatalogCacheEvent(ctx, "invalidate_error")
	}
}
