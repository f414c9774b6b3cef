package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	"github.com/vgcarvalho/techstore-backend/internal/http/response"
	"github.com/vgcarvalho/techstore-backend/internal/observability"
	"github.com/vgcarvalho/techstore-backend/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Cadastro handles POST /cadastro. On success the account is created
// unverified and a confirmation email is on its way.
func (h *AuthHandler) Cadastro(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body struct {
		Name     string `json:"nome"`
		Email    string `json:"email"`
		Password string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "payload invalido", nil)
		return
	}

	err := h.authSvc.Register(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			observability.RecordAuthFlowEvent(r.Context(), "register", "bad_request")
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, service.ErrEmailTaken):
			observability.RecordAuthFlowEvent(r.Context(), "register", "email_taken")
			response.Error(w, r, http.StatusBadRequest, "EMAIL_TAKEN", "email ja cadastrado", nil)
		default:
			observability.RecordAuthFlowEvent(r.Context(), "register", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao criar conta", nil)
		}
		observability.RecordAuthRequestDuration(r.Context(), "register", "error", time.Since(start))
		return
	}

	observability.RecordAuthFlowEvent(r.Context(), "register", "success")
	observability.RecordAuthRequestDuration(r.Context(), "register", "success", time.Since(start))
	observability.Audit(r, "auth.register", "email", body.Email)
	response.JSON(w, r, http.StatusCreated, map[string]string{
		"mensagem": "cadastro realizado, verifique seu email para ativar a conta",
	})
}

// VerificarEmail handles GET /verificar-email?token=T. The link lands in a
// browser straight from the inbox, so the reply is a small HTML page rather
// than a JSON envelope.
func (h *AuthHandler) VerificarEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	token := r.URL.Query().Get("token")

	if err := h.authSvc.ConfirmEmail(r.Context(), token); err != nil {
		observability.RecordAuthFlowEvent(r.Context(), "confirm", "invalid_link")
		observability.RecordAuthRequestDuration(r.Context(), "confirm", "error", time.Since(start))
		writeHTMLPage(w, http.StatusBadRequest, "Link invalido",
			"Este link de confirmacao e invalido ou ja expirou. Solicite um novo email de confirmacao.")
		return
	}

	observability.RecordAuthFlowEvent(r.Context(), "confirm", "success")
	observability.RecordAuthRequestDuration(r.Context(), "confirm", "success", time.Since(start))
	observability.Audit(r, "auth.email_verified")
	writeHTMLPage(w, http.StatusOK, "Email confirmado",
		"Sua conta foi ativada. Voce ja pode fazer login na TechStore.")
}

// ReenviarEmail handles POST /reenviar-email. The reply never reveals
// whether the address exists or is already verified.
func (h *AuthHandler) ReenviarEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "payload invalido", nil)
		return
	}

	if err := h.authSvc.ResendVerification(r.Context(), body.Email); err != nil {
		observability.RecordAuthFlowEvent(r.Context(), "resend", "error")
		observability.RecordAuthRequestDuration(r.Context(), "resend", "error", time.Since(start))
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao enviar email de confirmacao", nil)
		return
	}

	observability.RecordAuthFlowEvent(r.Context(), "resend", "success")
	observability.RecordAuthRequestDuration(r.Context(), "resend", "success", time.Since(start))
	response.JSON(w, r, http.StatusOK, map[string]string{"mensagem": service.ResendMessage})
}

// Login handles POST /login and returns a short-lived session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body struct {
		Email    string `json:"email"`
		Password string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "payload invalido", nil)
		return
	}

	result, err := h.authSvc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotVerified):
			observability.RecordAuthFlowEvent(r.Context(), "login", "email_not_verified")
			response.Error(w, r, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "confirme seu email antes de fazer login", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			observability.RecordAuthFlowEvent(r.Context(), "login", "invalid_credentials")
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "email ou senha incorretos", nil)
		default:
			observability.RecordAuthFlowEvent(r.Context(), "login", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "falha ao autenticar", nil)
		}
		observability.RecordAuthRequestDuration(r.Context(), "login", "error", time.Since(start))
		return
	}

	observability.RecordAuthFlowEvent(r.Context(), "login", "success")
	observability.RecordAuthRequestDuration(r.Context(), "login", "success", time.Since(start))
	observability.Audit(r, "auth.login", "user_id", strconv.FormatUint(uint64(result.Profile.ID), 10))
	response.JSON(w, r, http.StatusOK, map[string]any{
		"mensagem": "login realizado com sucesso",
		"token":    result.Token,
		"usuario":  result.Profile,
	})
}

func writeHTMLPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>%s - TechStore</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4rem;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
