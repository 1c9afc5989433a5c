package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inventory/api/internal/auth"
	"inventory/api/internal/metrics"
	"inventory/api/internal/models"
	"inventory/api/internal/store"
)

// Authenticator is the part of auth.Gateway the HTTP layer depends on.
type Authenticator interface {
	Register(ctx context.Context, input auth.RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Authorize(ctx context.Context, token string) (models.User, error)
	Validate(ctx context.Context, token string) (models.User, error)
}

type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

type Handler struct {
	auth     Authenticator
	products store.ProductStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	exporter http.Handler
}

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type registerResponse struct {
	Message string   `json:"message"`
	User    userInfo `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string   `json:"message"`
	User    userInfo `json:"user"`
	Token   string   `json:"token"`
}

type validateResponse struct {
	User userInfo `json:"user"`
}

// userInfo is the only outward shape of a user; it has no password hash field.
type userInfo struct {
	UserID    string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Created   string `json:"created"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(authenticator Authenticator, products store.ProductStore, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:     authenticator,
		products: products,
		logger:   logger,
		metrics:  opts.Metrics,
		exporter: opts.MetricsHandler,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/register", h.handleRegister)
	mux.HandleFunc("/users/login", h.handleLogin)
	mux.HandleFunc("/users/validate", h.handleValidate)
	mux.HandleFunc("/products", h.handleProducts)
	mux.HandleFunc("/products/{id}", h.handleProduct)
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.exporter != nil {
		mux.Handle("/metrics", h.exporter)
	}
	return mux
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.writeAuthError(w, "register", err)
		return
	}

	h.metrics.RecordAuth("register", "ok")
	writeJSON(w, http.StatusCreated, registerResponse{Message: "user created", User: toUserInfo(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "login", err)
		return
	}

	h.metrics.RecordAuth("login", "ok")
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "login succeeded",
		User:    toUserInfo(result.User),
		Token:   result.Token,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, err := h.auth.Validate(r.Context(), bearerToken(r.Header.Get("Authorization")))
	if err != nil {
		h.writeAuthError(w, "validate", err)
		return
	}

	h.metrics.RecordAuth("validate", "ok")
	writeJSON(w, http.StatusOK, validateResponse{User: toUserInfo(user)})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeAuthError(w http.ResponseWriter, operation string, err error) {
	status, code, message := classifyAuthError(err)
	h.metrics.RecordAuth(operation, code)
	writeError(w, status, code, message)
}

// classifyAuthError maps gateway failures to status, code, and message. An
// unknown email and a wrong password both arrive as ErrInvalidCredentials and
// produce the same payload.
func classifyAuthError(err error) (int, string, string) {
	var vErr *auth.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, "invalid_request", vErr.Message
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusBadRequest, "email_taken", "email is already registered"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, auth.ErrTokenMissing):
		return http.StatusUnauthorized, "unauthorized", "missing bearer token"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusForbidden, "token_expired", "token has expired"
	case errors.Is(err, auth.ErrTokenSignature):
		return http.StatusForbidden, "token_invalid_signature", "invalid token"
	case errors.Is(err, auth.ErrTokenMalformed):
		return http.StatusForbidden, "token_malformed", "invalid token"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func toUserInfo(user models.User) userInfo {
	return userInfo{
		UserID:    user.UserID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Created:   user.Created.UTC().Format(time.RFC3339),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
