package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vgcarvalho/techstore-backend/internal/config"
	"github.com/vgcarvalho/techstore-backend/internal/database"
	"github.com/vgcarvalho/techstore-backend/internal/domain"
	"github.com/vgcarvalho/techstore-backend/internal/http/handler"
	"github.com/vgcarvalho/techstore-backend/internal/http/router"
	mailpkg "github.com/vgcarvalho/techstore-backend/internal/mail"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
	"github.com/vgcarvalho/techstore-backend/internal/security"
	"github.com/vgcarvalho/techstore-backend/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type captureMailer struct {
	mu   sync.Mutex
	msgs []mailpkg.VerificationMessage
}

func (m *captureMailer) SendVerification(_ context.Context, msg mailpkg.VerificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *captureMailer) lastVerifyToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		t.Fatal("no verification mail captured")
	}
	u, err := url.Parse(m.msgs[len(m.msgs)-1].VerifyURL)
	if err != nil {
		t.Fatalf("parse verify url: %v", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatal("verify url carries no token")
	}
	return token
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

type storefrontHarness struct {
	baseURL string
	client  *http.Client
	mailer  *captureMailer
	db      *gorm.DB
	close   func()
}

func newStorefrontServer(t *testing.T) *storefrontHarness {
	t.Helper()
	return newStorefrontServerWithStorage(t, nil)
}

func newStorefrontServerWithStorage(t *testing.T, storage service.StorageService) *storefrontHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		VerifyBaseURL:        "http://localhost:3000/verificar-email",
		VerificationTokenTTL: 24 * time.Hour,
		SessionTokenTTL:      time.Hour,
		AuthRateLimitPerMin:  1000,
		APIRateLimitPerMin:   10000,
	}

	issuer := security.NewTokenIssuer("abcdefghijklmnopqrstuvwxyz123456", cfg.VerificationTokenTTL, cfg.SessionTokenTTL)
	mailer := &captureMailer{}

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	authSvc := service.NewAuthService(cfg, issuer, userRepo, mailer)
	productSvc := service.NewProductService(productRepo, nil)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		ProductHandler:   handler.NewProductHandler(productSvc, storage),
		TokenIssuer:      issuer,
		CORSOrigins:      []string{"http://localhost:5500"},
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
	})

	srv := httptest.NewServer(h)
	return &storefrontHarness{
		baseURL: srv.URL,
		client:  srv.Client(),
		mailer:  mailer,
		db:      db,
		close:   srv.Close,
	}
}

func doJSON(t *testing.T, client *http.Client, method, target string, body any, bearer string) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", raw, err)
		}
	}
	return resp, env
}

func registerAccount(t *testing.T, h *storefrontHarness, name, email, password string) {
	t.Helper()
	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/cadastro", map[string]string{
		"nome": name, "email": email, "senha": password,
	}, "")
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("register failed: status=%d envelope=%+v", resp.StatusCode, env)
	}
}

func TestRegistrationVerificationLoginFlow(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	registerAccount(t, h, "Vini Carvalho", "vini@example.com", "senha123")

	// Login before verification must fail with the dedicated code even
	// though the password is correct.
	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/login", map[string]string{
		"email": "vini@example.com", "senha": "senha123",
	}, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unverified login: expected 403, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("expected EMAIL_NOT_VERIFIED, got %+v", env.Error)
	}

	token := h.mailer.lastVerifyToken(t)
	resp, err := h.client.Get(h.baseURL + "/verificar-email?token=" + url.QueryEscape(token))
	if err != nil {
		t.Fatalf("verify request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verification link: expected 200, got %d", resp.StatusCode)
	}

	// Same link a second time is dead.
	resp, err = h.client.Get(h.baseURL + "/verificar-email?token=" + url.QueryEscape(token))
	if err != nil {
		t.Fatalf("second verify request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reused verification link: expected 400, got %d", resp.StatusCode)
	}

	// Login now succeeds and yields a working session token.
	resp, env = doJSON(t, h.client, http.MethodPost, h.baseURL+"/login", map[string]string{
		"email": "vini@example.com", "senha": "senha123",
	}, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("verified login: status=%d envelope=%+v", resp.StatusCode, env)
	}
	var loginData struct {
		Token   string `json:"token"`
		Usuario struct {
			Nome       string `json:"nome"`
			Email      string `json:"email"`
			Verificado bool   `json:"verificado"`
		} `json:"usuario"`
	}
	if err := json.Unmarshal(env.Data, &loginData); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if loginData.Token == "" || !loginData.Usuario.Verificado {
		t.Fatalf("unexpected login payload: %+v", loginData)
	}

	// Wrong password still gets 401.
	resp, env = doJSON(t, h.client, http.MethodPost, h.baseURL+"/login", map[string]string{
		"email": "vini@example.com", "senha": "errada",
	}, "")
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("wrong password: status=%d envelope=%+v", resp.StatusCode, env)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	registerAccount(t, h, "Primeira Conta", "dup@example.com", "senha123")

	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/cadastro", map[string]string{
		"nome": "Segunda Conta", "email": "dup@example.com", "senha": "outra-senha",
	}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "EMAIL_TAKEN" {
		t.Fatalf("expected EMAIL_TAKEN, got %+v", env.Error)
	}
}

func TestResendVerification(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	registerAccount(t, h, "Conta Pendente", "pend@example.com", "senha123")
	oldToken := h.mailer.lastVerifyToken(t)

	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/reenviar-email", map[string]string{
		"email": "pend@example.com",
	}, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("resend: status=%d envelope=%+v", resp.StatusCode, env)
	}
	var resendData map[string]string
	if err := json.Unmarshal(env.Data, &resendData); err != nil {
		t.Fatalf("decode resend data: %v", err)
	}
	knownMsg := resendData["mensagem"]
	if knownMsg == "" {
		t.Fatal("expected a resend message")
	}

	// The reply for an unknown email is byte-identical, so callers cannot
	// probe which addresses have accounts.
	resp, env = doJSON(t, h.client, http.MethodPost, h.baseURL+"/reenviar-email", map[string]string{
		"email": "ghost@example.com",
	}, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("resend unknown: status=%d envelope=%+v", resp.StatusCode, env)
	}
	if err := json.Unmarshal(env.Data, &resendData); err != nil {
		t.Fatalf("decode resend data: %v", err)
	}
	if resendData["mensagem"] != knownMsg {
		t.Fatalf("disclosure leak: %q vs %q", resendData["mensagem"], knownMsg)
	}

	// Old link is superseded, the fresh one verifies.
	newToken := h.mailer.lastVerifyToken(t)
	if newToken == oldToken {
		t.Fatal("resend must issue a fresh token")
	}
	resp, err := h.client.Get(h.baseURL + "/verificar-email?token=" + url.QueryEscape(oldToken))
	if err != nil {
		t.Fatalf("old link: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("superseded link: expected 400, got %d", resp.StatusCode)
	}
	resp, err = h.client.Get(h.baseURL + "/verificar-email?token=" + url.QueryEscape(newToken))
	if err != nil {
		t.Fatalf("new link: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fresh link: expected 200, got %d", resp.StatusCode)
	}
}

func TestProductCatalogListing(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	products := []domain.Product{
		{Name: "Ryzen 7 5700X", Price: 1249.9, Category: "processador"},
		{Name: "RTX 4060", Price: 2199, Category: "placa-de-video"},
		{Name: "Fury 16GB", Price: 289.9, Category: "memoria"},
	}
	for i := range products {
		if err := h.db.Create(&products[i]).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	resp, env := doJSON(t, h.client, http.MethodGet, h.baseURL+"/produtos", nil, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("list: status=%d envelope=%+v", resp.StatusCode, env)
	}
	var listData struct {
		Items      []domain.Product `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &listData); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listData.Pagination.Total != 3 || len(listData.Items) != 3 {
		t.Fatalf("expected 3 products, got %+v", listData)
	}

	resp, env = doJSON(t, h.client, http.MethodGet, h.baseURL+"/produtos?categoria=processador", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filtered list: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &listData); err != nil {
		t.Fatalf("decode filtered list: %v", err)
	}
	if len(listData.Items) != 1 || listData.Items[0].Name != "Ryzen 7 5700X" {
		t.Fatalf("unexpected filtered result: %+v", listData.Items)
	}

	resp, env = doJSON(t, h.client, http.MethodGet, fmt.Sprintf("%s/produtos/%d", h.baseURL, products[0].ID), nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get by id: %d", resp.StatusCode)
	}

	resp, env = doJSON(t, h.client, http.MethodGet, h.baseURL+"/produtos/99999", nil, "")
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("missing product: status=%d envelope=%+v", resp.StatusCode, env)
	}
}

func TestAdminProductManagement(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	registerAccount(t, h, "Admin Conta", "admin@example.com", "senha123")
	if err := database.VerifyEmail(h.db, "admin@example.com"); err != nil {
		t.Fatalf("verify admin: %v", err)
	}
	if err := repository.NewUserRepository(h.db).PromoteToAdmin("admin@example.com"); err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	registerAccount(t, h, "Conta Comum", "user@example.com", "senha123")
	if err := database.VerifyEmail(h.db, "user@example.com"); err != nil {
		t.Fatalf("verify user: %v", err)
	}

	login := func(email string) string {
		resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/login", map[string]string{
			"email": email, "senha": "senha123",
		}, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login %s: %d", email, resp.StatusCode)
		}
		var data struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode login: %v", err)
		}
		return data.Token
	}
	adminToken := login("admin@example.com")
	userToken := login("user@example.com")

	createBody := map[string]any{
		"nome": "SSD NVMe 2TB", "descricao": "Gen4", "preco": 899.9, "categoria": "armazenamento",
	}

	// Anonymous and non-admin writes are rejected.
	resp, _ := doJSON(t, h.client, http.MethodPost, h.baseURL+"/produtos", createBody, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create: expected 401, got %d", resp.StatusCode)
	}
	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/produtos", createBody, userToken)
	if resp.StatusCode != http.StatusForbidden || env.Error == nil || env.Error.Code != "FORBIDDEN" {
		t.Fatalf("non-admin create: status=%d envelope=%+v", resp.StatusCode, env)
	}

	// Admin create, update, delete.
	resp, env = doJSON(t, h.client, http.MethodPost, h.baseURL+"/produtos", createBody, adminToken)
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("admin create: status=%d envelope=%+v", resp.StatusCode, env)
	}
	var created domain.Product
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Category != "armazenamento" {
		t.Fatalf("unexpected created product: %+v", created)
	}

	resp, env = doJSON(t, h.client, http.MethodPut, fmt.Sprintf("%s/produtos/%d", h.baseURL, created.ID), map[string]any{
		"preco": 799.9,
	}, adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin update: status=%d envelope=%+v", resp.StatusCode, env)
	}
	var updated domain.Product
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Price != 799.9 {
		t.Fatalf("expected updated price, got %v", updated.Price)
	}

	resp, _ = doJSON(t, h.client, http.MethodDelete, fmt.Sprintf("%s/produtos/%d", h.baseURL, created.ID), nil, adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, h.client, http.MethodGet, fmt.Sprintf("%s/produtos/%d", h.baseURL, created.ID), nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted product must 404, got %d", resp.StatusCode)
	}
}

func TestInvalidRegistrationPayloads(t *testing.T) {
	h := newStorefrontServer(t)
	defer h.close()

	cases := []map[string]string{
		{"nome": "Nome", "email": "not-an-email", "senha": "senha123"},
		{"nome": "", "email": "ok@example.com", "senha": "senha123"},
		{"nome": "Nome", "email": "ok@example.com", "senha": "123"},
	}
	for i, body := range cases {
		resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/cadastro", body, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
		if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
			t.Fatalf("case %d: expected BAD_REQUEST, got %+v", i, env.Error)
		}
	}
	if h.mailer.count() != 0 {
		t.Fatal("invalid registrations must not send mail")
	}
}

type recordingStorage struct {
	receivedBytes int64
}

func (s *recordingStorage) UploadProductImage(_ context.Context, productID uint, file io.Reader, _ int64) (string, error) {
	n, err := io.Copy(io.Discard, file)
	if err != nil {
		return "", err
	}
	s.receivedBytes = n
	return fmt.Sprintf("produtos/%d/upload.png", productID), nil
}

func (s *recordingStorage) DeleteProductImage(context.Context, string) error { return nil }

func (s *recordingStorage) GenerateImageURL(_ context.Context, objectKey string) (string, error) {
	return "http://storage.local/" + objectKey, nil
}

func TestProductImageUploadAcceptsMultiMegabyteFile(t *testing.T) {
	storage := &recordingStorage{}
	h := newStorefrontServerWithStorage(t, storage)
	defer h.close()

	registerAccount(t, h, "Admin Conta", "admin@example.com", "senha123")
	if err := database.VerifyEmail(h.db, "admin@example.com"); err != nil {
		t.Fatalf("verify admin: %v", err)
	}
	if err := repository.NewUserRepository(h.db).PromoteToAdmin("admin@example.com"); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	resp, env := doJSON(t, h.client, http.MethodPost, h.baseURL+"/login", map[string]string{
		"email": "admin@example.com", "senha": "senha123",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", resp.StatusCode)
	}
	var loginData struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &loginData); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	product := domain.Product{Name: "Placa Mae B550", Price: 799.9, Category: "placa-mae"}
	if err := h.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	// 2MB payload: above the 1MB cap of the JSON routes, below the
	// upload route's own limit.
	imageBytes := bytes.Repeat([]byte{0xAB}, 2<<20)
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("imagem", "foto.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/produtos/%d/imagem", h.baseURL, product.ID), &form)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+loginData.Token)
	uploadResp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	defer uploadResp.Body.Close()

	if uploadResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(uploadResp.Body)
		t.Fatalf("upload: expected 200, got %d (%s)", uploadResp.StatusCode, body)
	}
	if storage.receivedBytes != int64(len(imageBytes)) {
		t.Fatalf("storage received %d bytes, want %d", storage.receivedBytes, len(imageBytes))
	}

	var stored domain.Product
	if err := h.db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.ImageURL != fmt.Sprintf("http://storage.local/produtos/%d/upload.png", product.ID) {
		t.Fatalf("unexpected stored image url %q", stored.ImageURL)
	}
}
