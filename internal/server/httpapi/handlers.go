// Package httpapi is the public HTTP surface: authentication endpoints that
// set the session cookies, and the upload endpoints behind them. Every route
// sits behind the request throttle; error bodies never echo credentials or
// token contents.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/logging"
	"github.com/folioforge/folioforge/internal/server/auth"
	"github.com/folioforge/folioforge/internal/server/models"
	"github.com/folioforge/folioforge/internal/server/ratelimit"
	"github.com/folioforge/folioforge/internal/server/services"
	"github.com/folioforge/folioforge/internal/server/uploads"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"

	// Upload requests are cut off a little above the largest per-file
	// ceiling, leaving room for multipart framing.
	maxUploadBody = uploads.MaxResumeBytes + 1<<20
)

// Handler holds the route dependencies and owns cookie policy.
type Handler struct {
	users    *services.UserService
	files    *services.UploadService
	tokens   *auth.Manager
	limiter  *ratelimit.Limiter
	smoother *ratelimit.Smoother
	log      logging.Logger

	secureCookies bool
}

func NewHandler(
	users *services.UserService,
	files *services.UploadService,
	tokens *auth.Manager,
	limiter *ratelimit.Limiter,
	smoother *ratelimit.Smoother,
	log logging.Logger,
	secureCookies bool,
) *Handler {
	return &Handler{
		users:         users,
		files:         files,
		tokens:        tokens,
		limiter:       limiter,
		smoother:      smoother,
		log:           log,
		secureCookies: secureCookies,
	}
}

// Routes builds the full route table with throttling and auth applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/register",
		h.rateLimit("/api/auth/register", ratelimit.PresetAuth, http.HandlerFunc(h.handleRegister)))
	mux.Handle("POST /api/auth/login",
		h.rateLimit("/api/auth/login", ratelimit.PresetAuth, http.HandlerFunc(h.handleLogin)))
	mux.Handle("POST /api/auth/refresh",
		h.rateLimit("/api/auth/refresh", ratelimit.PresetAuth, http.HandlerFunc(h.handleRefresh)))

	// Auth runs before the throttle on upload routes so the counters are
	// keyed by user identity rather than network origin.
	mux.Handle("POST /api/uploads",
		h.requireAuth(h.rateLimit("POST /api/uploads", ratelimit.PresetUpload,
			h.smooth(http.HandlerFunc(h.handleUpload)))))
	mux.Handle("GET /api/uploads/{id}",
		h.requireAuth(h.rateLimit("GET /api/uploads", ratelimit.PresetAPI,
			http.HandlerFunc(h.handleDownload))))

	return mux
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	user, pair, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": userResponse{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}

	access, err := h.users.Refresh(r.Context(), c.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(accessCookieName, access, auth.AccessTokenTTL))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("upload too large"))
		return
	}

	kind := r.FormValue("kind")
	if kind != models.KindResume && kind != models.KindPhoto {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be resume or photo"))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file field is required"))
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("could not read upload"))
		return
	}

	file, err := h.files.Upload(r.Context(), claims.UserID, uploads.Upload{
		Bytes:            data,
		DeclaredMimeType: header.Header.Get("Content-Type"),
		SizeBytes:        int64(len(data)),
		FileName:         header.Filename,
	}, kind)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         file.ID,
		"kind":       file.Kind,
		"mime_type":  file.MimeType,
		"size_bytes": file.SizeBytes,
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}

	plaintext, mimeType, err := h.files.Download(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plaintext)
}

// setSessionCookies installs both session cookies. The browser carries them
// on every request; HttpOnly keeps them away from page scripts.
func (h *Handler) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, h.sessionCookie(accessCookieName, pair.AccessToken, auth.AccessTokenTTL))
	http.SetCookie(w, h.sessionCookie(refreshCookieName, pair.RefreshToken, auth.RefreshTokenTTL))
}

func (h *Handler) sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// writeServiceError maps service-layer sentinel errors onto HTTP statuses.
// Authentication failures share one generic body regardless of cause.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid input"))
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidSignature),
		errors.Is(err, common.ErrWrongTokenType),
		errors.Is(err, common.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, common.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, common.ErrQuotaExceeded):
		writeJSON(w, http.StatusConflict, errorBody("upload quota exceeded"))
	case errors.Is(err, common.ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported file type"))
	case errors.Is(err, common.ErrFileTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
