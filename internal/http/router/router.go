package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vgcarvalho/techstore-backend/internal/health"
	"github.com/vgcarvalho/techstore-backend/internal/http/handler"
	"github.com/vgcarvalho/techstore-backend/internal/http/middleware"
	"github.com/vgcarvalho/techstore-backend/internal/http/response"
	"github.com/vgcarvalho/techstore-backend/internal/security"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	ProductHandler    *handler.ProductHandler
	TokenIssuer       *security.TokenIssuer
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}

	// Body caps are per-route rather than global: stacking MaxBytesReader
	// wrappers keeps the innermost (smallest) limit, which would make a
	// larger upload allowance unreachable.
	jsonBody := middleware.BodyLimit(1 << 20)
	uploadBody := middleware.BodyLimit(6 << 20)

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.With(authLimiter, jsonBody).Post("/cadastro", dep.AuthHandler.Cadastro)
	r.Get("/verificar-email", dep.AuthHandler.VerificarEmail)
	r.With(authLimiter, jsonBody).Post("/reenviar-email", dep.AuthHandler.ReenviarEmail)
	r.With(authLimiter, jsonBody).Post("/login", dep.AuthHandler.Login)

	r.Route("/produtos", func(r chi.Router) {
		r.Get("/", dep.ProductHandler.List)
		r.Get("/{id}", dep.ProductHandler.GetByID)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(dep.TokenIssuer))
			r.Use(middleware.RequireAdmin)
			r.With(jsonBody).Post("/", dep.ProductHandler.Create)
			r.With(jsonBody).Put("/{id}", dep.ProductHandler.Update)
			r.With(jsonBody).Delete("/{id}", dep.ProductHandler.Delete)
			r.With(uploadBody).Post("/{id}/imagem", dep.ProductHandler.UploadImage)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
