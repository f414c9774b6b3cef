package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vgcarvalho/techstore-backend/internal/http/response"
	"github.com/vgcarvalho/techstore-backend/internal/observability"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
	"github.com/vgcarvalho/techstore-backend/internal/service"
)

type ProductHandler struct {
	svc     *service.ProductService
	storage service.StorageService
}

func NewProductHandler(svc *service.ProductService, storage service.StorageService) *ProductHandler {
	return &ProductHandler{svc: svc, storage: storage}
}

// List handles GET /produtos. The optional categoria parameter filters by
// substring match on the category.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := h.svc.List(r.Context(), service.ListProductsInput{
		Page:     pageReq,
		Category: strings.TrimSpace(r.URL.Query().Get("categoria")),
	})
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao listar produtos", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id de produto invalido", nil)
		return
	}

	product, err := h.svc.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "produto nao encontrado", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao carregar produto", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string  `json:"nome"`
		Description string  `json:"descricao"`
		Price       float64 `json:"preco"`
		Category    string  `json:"categoria"`
		ImageURL    string  `json:"imagem_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "payload invalido", nil)
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateProductInput{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductInvalidName),
			errors.Is(err, service.ErrProductInvalidDescription),
			errors.Is(err, service.ErrProductInvalidPrice):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao criar produto", nil)
		}
		return
	}

	observability.Audit(r, "product.create",
		"actor_user_id", actorUserID(r),
		"product_id", strconv.FormatUint(uint64(created.ID), 10),
		"name", created.Name,
	)
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id de produto invalido", nil)
		return
	}
	var body struct {
		Name        *string  `json:"nome"`
		Description *string  `json:"descricao"`
		Price       *float64 `json:"preco"`
		Category    *string  `json:"categoria"`
		ImageURL    *string  `json:"imagem_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "payload invalido", nil)
		return
	}

	updated, err := h.svc.Update(r.Context(), productID, service.UpdateProductInput{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "produto nao encontrado", nil)
		case errors.Is(err, service.ErrProductInvalidName),
			errors.Is(err, service.ErrProductInvalidDescription),
			errors.Is(err, service.ErrProductInvalidPrice),
			errors.Is(err, service.ErrProductNoUpdates):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao atualizar produto", nil)
		}
		return
	}

	observability.Audit(r, "product.update",
		"actor_user_id", actorUserID(r),
		"product_id", strconv.FormatUint(uint64(productID), 10),
	)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id de produto invalido", nil)
		return
	}

	if err := h.svc.DeleteByID(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "produto nao encontrado", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao remover produto", nil)
		return
	}

	observability.Audit(r, "product.delete",
		"actor_user_id", actorUserID(r),
		"product_id", strconv.FormatUint(uint64(productID), 10),
	)
	response.JSON(w, r, http.StatusOK, map[string]any{"removido": true})
}

// UploadImage handles POST /produtos/{id}/imagem with a multipart form file
// under the "imagem" field. The stored object key becomes a presigned URL on
// the product record.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "STORAGE_DISABLED", "armazenamento de imagens desabilitado", nil)
		return
	}

	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id de produto invalido", nil)
		return
	}
	if _, err := h.svc.GetByID(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "produto nao encontrado", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao carregar produto", nil)
		return
	}

	file, header, err := r.FormFile("imagem")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "arquivo de imagem ausente", nil)
		return
	}
	defer file.Close()

	objectKey, err := h.storage.UploadProductImage(r.Context(), productID, file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooBig):
			response.Error(w, r, http.StatusRequestEntityTooLarge, "FILE_TOO_BIG", err.Error(), nil)
		case errors.Is(err, service.ErrInvalidFileType):
			response.Error(w, r, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao enviar imagem", nil)
		}
		return
	}

	imageURL, err := h.storage.GenerateImageURL(r.Context(), objectKey)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao gerar url da imagem", nil)
		return
	}
	if err := h.svc.SetImageURL(r.Context(), productID, imageURL); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao salvar url da imagem", nil)
		return
	}

	observability.Audit(r, "product.image_upload",
		"actor_user_id", actorUserID(r),
		"product_id", strconv.FormatUint(uint64(productID), 10),
		"object_key", objectKey,
	)
	response.JSON(w, r, http.StatusOK, map[string]string{"imagem_url": imageURL})
}

func parsePathID(input string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(n), nil
}

func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	page := repository.DefaultPage
	pageSize := repository.DefaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page must be a positive integer")
		}
		page = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page_size must be a positive integer")
		}
		if v > repository.MaxPageSize {
			return repository.PageRequest{}, fmt.Errorf("page_size must be <= %d", repository.MaxPageSize)
		}
		pageSize = v
	}
	return repository.PageRequest{Page: page, PageSize: pageSize}, nil
}

func paginatedData[T any](items []T, page, pageSize int, total int64, totalPages int) map[string]any {
	return map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	}
}
