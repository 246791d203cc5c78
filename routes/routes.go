package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/modousall221/iap/controllers/auth"
	"github.com/modousall221/iap/controllers/contracts"
	"github.com/modousall221/iap/controllers/investments"
	"github.com/modousall221/iap/controllers/kyc"
	"github.com/modousall221/iap/controllers/projects"
	"github.com/modousall221/iap/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "iap-api",
	})
}

func InitRouter() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// CORS origins from CORS_ALLOWED_ORIGINS (comma-separated) plus dev defaults
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	origins := []string{
		"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:3000", "http://127.0.0.1:8080",
	}
	if originsEnv != "" {
		parts := strings.Split(originsEnv, ",")
		for _, p := range parts {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/v1").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	api.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// Brute-force protection on the auth surface: 50 requests per IP per 15 min
	authLimiter := middleware.NewIPRateLimiter(50, 15*time.Minute)

	// Auth
	authAPI := api.PathPrefix("/auth").Subrouter()
	authAPI.Use(authLimiter.Middleware)
	authAPI.Handle("/register", http.HandlerFunc(auth.RegisterHandler)).Methods(http.MethodPost)
	authAPI.Handle("/login", http.HandlerFunc(auth.LoginHandler)).Methods(http.MethodPost)
	authAPI.Handle("/refresh", http.HandlerFunc(auth.RefreshHandler)).Methods(http.MethodPost)
	authAPI.Handle("/logout", http.HandlerFunc(auth.LogoutHandler)).Methods(http.MethodPost)
	authAPI.Handle("/logout-all", middleware.AuthMiddleware(http.HandlerFunc(auth.LogoutAllHandler))).Methods(http.MethodPost)
	authAPI.Handle("/me", middleware.AuthMiddleware(http.HandlerFunc(auth.MeHandler))).Methods(http.MethodGet)

	// Projects: listing and detail are public, everything else authenticated
	api.Handle("/projects", http.HandlerFunc(projects.ListHandler)).Methods(http.MethodGet)
	api.Handle("/projects/{id}", http.HandlerFunc(projects.GetHandler)).Methods(http.MethodGet)
	api.Handle("/projects", middleware.AuthMiddleware(http.HandlerFunc(projects.CreateHandler))).Methods(http.MethodPost)
	api.Handle("/projects/{id}", middleware.AuthMiddleware(http.HandlerFunc(projects.UpdateHandler))).Methods(http.MethodPut)
	api.Handle("/projects/{id}/submit", middleware.AuthMiddleware(http.HandlerFunc(projects.SubmitHandler))).Methods(http.MethodPost)
	api.Handle("/projects/{id}/approve", middleware.AdminAuthMiddleware(http.HandlerFunc(projects.ApproveHandler))).Methods(http.MethodPost)
	api.Handle("/projects/{id}/reject", middleware.AdminAuthMiddleware(http.HandlerFunc(projects.RejectHandler))).Methods(http.MethodPost)
	api.Handle("/projects/{id}/launch", middleware.AdminAuthMiddleware(http.HandlerFunc(projects.LaunchHandler))).Methods(http.MethodPost)
	api.Handle("/projects/{id}/close", middleware.AdminAuthMiddleware(http.HandlerFunc(projects.CloseHandler))).Methods(http.MethodPost)

	// Investments
	api.Handle("/investments", middleware.AuthMiddleware(http.HandlerFunc(investments.CreateHandler))).Methods(http.MethodPost)
	api.Handle("/investments", middleware.AuthMiddleware(http.HandlerFunc(investments.ListHandler))).Methods(http.MethodGet)
	api.Handle("/investments/{id}", middleware.AuthMiddleware(http.HandlerFunc(investments.GetHandler))).Methods(http.MethodGet)
	api.Handle("/investments/{id}/pay", middleware.AuthMiddleware(http.HandlerFunc(investments.PayHandler))).Methods(http.MethodPost)
	api.Handle("/investments/{id}/confirm", middleware.AuthMiddleware(http.HandlerFunc(investments.ConfirmHandler))).Methods(http.MethodPost)
	api.Handle("/investments/{id}/admin-confirm", middleware.AdminAuthMiddleware(http.HandlerFunc(investments.AdminConfirmHandler))).Methods(http.MethodPost)

	// Contracts
	api.Handle("/contracts/generate", middleware.AuthMiddleware(http.HandlerFunc(contracts.GenerateHandler))).Methods(http.MethodPost)
	api.Handle("/contracts/investment/{investmentId}", middleware.AuthMiddleware(http.HandlerFunc(contracts.GetByInvestmentHandler))).Methods(http.MethodGet)
	api.Handle("/contracts/{id}", middleware.AuthMiddleware(http.HandlerFunc(contracts.GetHandler))).Methods(http.MethodGet)
	api.Handle("/contracts/{id}/sign", middleware.AuthMiddleware(http.HandlerFunc(contracts.SignHandler))).Methods(http.MethodPost)
	api.Handle("/contracts/{id}/download", middleware.AuthMiddleware(http.HandlerFunc(contracts.DownloadHandler))).Methods(http.MethodGet)

	// KYC
	api.Handle("/kyc/upload", middleware.AuthMiddleware(http.HandlerFunc(kyc.UploadHandler))).Methods(http.MethodPost)
	api.Handle("/kyc/status", middleware.AuthMiddleware(http.HandlerFunc(kyc.StatusHandler))).Methods(http.MethodGet)
	api.Handle("/kyc/pending", middleware.AdminAuthMiddleware(http.HandlerFunc(kyc.PendingHandler))).Methods(http.MethodGet)
	api.Handle("/kyc/{id}/approve", middleware.AdminAuthMiddleware(http.HandlerFunc(kyc.ApproveHandler))).Methods(http.MethodPost)
	api.Handle("/kyc/{id}/reject", middleware.AdminAuthMiddleware(http.HandlerFunc(kyc.RejectHandler))).Methods(http.MethodPost)

	return r
}
