package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
)

func seedProducts(t *testing.T, repo ProductRepository, products []domain.Product) {
	t.Helper()
	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			t.Fatalf("seed product %q: %v", products[i].Name, err)
		}
	}
}

func TestProductListPagedFiltersByCategory(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	seedProducts(t, repo, []domain.Product{
		{Name: "Ryzen 7", Price: 1200, Category: "processador"},
		{Name: "Core i5", Price: 900, Category: "processador"},
		{Name: "RTX 4060", Price: 2200, Category: "placa-de-video"},
	})

	res, err := repo.ListPaged(PageRequest{Page: 1, PageSize: 10}, "processador")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 || len(res.Items) != 2 {
		t.Fatalf("expected 2 processadores, got total=%d items=%d", res.Total, len(res.Items))
	}
	for _, p := range res.Items {
		if p.Category != "processador" {
			t.Fatalf("unexpected category %q in filtered list", p.Category)
		}
	}

	// Partial, case-insensitive match.
	res, err = repo.ListPaged(PageRequest{Page: 1, PageSize: 10}, "VIDEO")
	if err != nil {
		t.Fatalf("list partial: %v", err)
	}
	if res.Total != 1 || res.Items[0].Name != "RTX 4060" {
		t.Fatalf("expected the placa-de-video, got %+v", res.Items)
	}

	// Empty filter returns everything.
	res, err = repo.ListPaged(PageRequest{Page: 1, PageSize: 10}, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("expected all 3 products, got %d", res.Total)
	}
}

func TestProductListPagedPagination(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	products := make([]domain.Product, 0, 5)
	for i := 1; i <= 5; i++ {
		products = append(products, domain.Product{Name: fmt.Sprintf("Produto %d", i), Price: float64(i), Category: "memoria"})
	}
	seedProducts(t, repo, products)

	res, err := repo.ListPaged(PageRequest{Page: 1, PageSize: 2}, "")
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if res.Total != 5 || res.TotalPages != 3 || len(res.Items) != 2 {
		t.Fatalf("unexpected page 1: total=%d pages=%d items=%d", res.Total, res.TotalPages, len(res.Items))
	}
	// Newest first.
	if res.Items[0].Name != "Produto 5" {
		t.Fatalf("expected newest product first, got %q", res.Items[0].Name)
	}

	res, err = repo.ListPaged(PageRequest{Page: 3, PageSize: 2}, "")
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "Produto 1" {
		t.Fatalf("unexpected last page: %+v", res.Items)
	}

	// Out-of-range page numbers normalize instead of erroring.
	res, err = repo.ListPaged(PageRequest{Page: 0, PageSize: -1}, "")
	if err != nil {
		t.Fatalf("normalized page: %v", err)
	}
	if res.Page != DefaultPage || res.PageSize != DefaultPageSize {
		t.Fatalf("expected normalized paging, got page=%d size=%d", res.Page, res.PageSize)
	}
}

func TestProductUpdateAndDelete(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	p := domain.Product{Name: "SSD 1TB", Price: 450, Category: "armazenamento"}
	seedProducts(t, repo, []domain.Product{p})

	list, err := repo.ListPaged(PageRequest{Page: 1, PageSize: 1}, "")
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("list: %v items=%d", err, len(list.Items))
	}
	id := list.Items[0].ID

	if err := repo.Update(id, map[string]any{"price": 399.9}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindByID(id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Price != 399.9 {
		t.Fatalf("expected updated price, got %v", got.Price)
	}

	if err := repo.Update(9999, map[string]any{"price": 1.0}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on update, got %v", err)
	}

	if err := repo.DeleteByID(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(id); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := repo.DeleteByID(id); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on second delete, got %v", err)
	}
}
