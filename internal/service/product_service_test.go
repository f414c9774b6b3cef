package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
	repogomock "github.com/vgcarvalho/techstore-backend/internal/repository/gomock"
)

func newProductFixture(t *testing.T) (*ProductService, *repogomock.MockProductRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockProductRepository(ctrl)
	return NewProductService(repo, nil), repo
}

func TestProductCreateValidation(t *testing.T) {
	svc, _ := newProductFixture(t)

	cases := []struct {
		name  string
		input CreateProductInput
		want  error
	}{
		{"short name", CreateProductInput{Name: "ab", Price: 10}, ErrProductInvalidName},
		{"zero price", CreateProductInput{Name: "Produto", Price: 0}, ErrProductInvalidPrice},
		{"negative price", CreateProductInput{Name: "Produto", Price: -5}, ErrProductInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProductCreateNormalizesFields(t *testing.T) {
	svc, repo := newProductFixture(t)

	var created *domain.Product
	repo.EXPECT().Create(gomock.Any()).DoAndReturn(func(p *domain.Product) error {
		created = p
		return nil
	})

	got, err := svc.Create(context.Background(), CreateProductInput{
		Name:     "  Ryzen 7 5700X  ",
		Price:    1249.9,
		Category: "  Processador ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created == nil || got != created {
		t.Fatal("expected the persisted product back")
	}
	if created.Name != "Ryzen 7 5700X" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.Category != "processador" {
		t.Fatalf("category not normalized: %q", created.Category)
	}
}

func TestProductUpdateRequiresChanges(t *testing.T) {
	svc, _ := newProductFixture(t)

	if _, err := svc.Update(context.Background(), 1, UpdateProductInput{}); !errors.Is(err, ErrProductNoUpdates) {
		t.Fatalf("expected ErrProductNoUpdates, got %v", err)
	}
}

func TestProductUpdateMapsFields(t *testing.T) {
	svc, repo := newProductFixture(t)

	name := " Novo Nome "
	price := 99.9
	var updates map[string]any
	repo.EXPECT().Update(uint(7), gomock.Any()).DoAndReturn(func(_ uint, u map[string]any) error {
		updates = u
		return nil
	})
	repo.EXPECT().FindByID(uint(7)).Return(&domain.Product{ID: 7, Name: "Novo Nome", Price: 99.9}, nil)

	got, err := svc.Update(context.Background(), 7, UpdateProductInput{Name: &name, Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updates["name"] != "Novo Nome" || updates["price"] != 99.9 {
		t.Fatalf("unexpected update map: %#v", updates)
	}
	if got.ID != 7 {
		t.Fatalf("unexpected product: %+v", got)
	}
}

func TestProductUpdateNotFound(t *testing.T) {
	svc, repo := newProductFixture(t)

	price := 10.0
	repo.EXPECT().Update(uint(99), gomock.Any()).Return(repository.ErrProductNotFound)

	if _, err := svc.Update(context.Background(), 99, UpdateProductInput{Price: &price}); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductDelete(t *testing.T) {
	svc, repo := newProductFixture(t)

	repo.EXPECT().DeleteByID(uint(3)).Return(nil)
	if err := svc.DeleteByID(context.Background(), 3); err != nil {
		t.Fatalf("delete: %v", err)
	}

	repo.EXPECT().DeleteByID(uint(3)).Return(repository.ErrProductNotFound)
	if err := svc.DeleteByID(context.Background(), 3); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductListPassesCategoryFilter(t *testing.T) {
	svc, repo := newProductFixture(t)

	repo.EXPECT().ListPaged(repository.PageRequest{Page: 1, PageSize: 20}, "memoria").
		Return(repository.PageResult[domain.Product]{
			Items:      []domain.Product{{ID: 1, Name: "Fury 16GB", Category: "memoria"}},
			Page:       1,
			PageSize:   20,
			Total:      1,
			TotalPages: 1,
		}, nil)

	res, err := svc.List(context.Background(), ListProductsInput{
		Page:     repository.PageRequest{Page: 1, PageSize: 20},
		Category: "memoria",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "Fury 16GB" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
