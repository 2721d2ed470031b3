package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"picshare/internal/config"
	"picshare/internal/filestore"
	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/rate"
	"picshare/internal/service"
	"picshare/internal/store"
	"picshare/internal/util"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
}

func NewRouter(cfg config.Config, svc *service.Service) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, limiter: rate.NewLimiter()}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Store().Ping(r.Context()); err != nil {
			util.WriteJSON(w, 503, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
		util.WriteJSON(w, 200, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(h.limiter, "register", 10, time.Minute, h.cfg.TrustProxy)).Post("/register", h.Register)
		r.With(middleware.RateLimit(h.limiter, "login", 20, time.Minute, h.cfg.TrustProxy)).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/verify/confirm", h.VerifyConfirm)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthn(h.svc, h.cfg.SessionCookieName))
			r.Get("/images", h.ListGallery)
			r.Get("/images/{id}", h.GetImage)
			r.Get("/images/{id}/file", h.GetImageFile)
			r.Get("/albums/{id}", h.GetAlbum)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.svc, h.cfg.SessionCookieName))
			r.Get("/me", h.Me)
			r.Get("/me/images", h.ListOwnImages)
			r.Get("/me/albums", h.ListOwnAlbums)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))
				r.Put("/me/profile", h.UpdateProfile)
				r.Post("/verify/request", h.VerifyRequest)
				r.With(middleware.RateLimit(h.limiter, "upload", 30, time.Minute, h.cfg.TrustProxy)).Post("/images", h.UploadImage)
				r.Post("/images/{id}/visibility", h.SetImageVisibility)
				r.Delete("/images/{id}", h.DeleteImage)
				r.Post("/albums", h.CreateAlbum)
				r.Put("/albums/{id}", h.UpdateAlbum)
				r.Delete("/albums/{id}", h.DeleteAlbum)
				r.Post("/albums/{id}/images/{imageID}", h.AddAlbumImage)
				r.Delete("/albums/{id}/images/{imageID}", h.RemoveAlbumImage)
			})

			r.Route("/moderation", func(r chi.Router) {
				r.Use(middleware.ModeratorOnly)
				r.Get("/queue", h.ModerationQueue)
				r.Get("/stats", h.ModerationStats)
			})
			r.With(middleware.ModeratorOnly, middleware.CSRFFromCookie(h.cfg.CSRFCookieName)).
				Post("/images/{id}/status", h.DecideImage)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Get("/users", h.AdminListUsers)
				r.Group(func(r chi.Router) {
					r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))
					r.Post("/users/{id}/role", h.AdminSetRoles)
					r.Post("/users/{id}/ban", h.AdminBanUser)
					r.Post("/users/{id}/unban", h.AdminUnbanUser)
				})
			})
		})
	})

	return r
}

type userDTO struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Verified    bool       `json:"verified"`
	IsModerator bool       `json:"is_moderator"`
	IsAdmin     bool       `json:"is_admin"`
	Banned      bool       `json:"banned"`
	BanReason   *string    `json:"ban_reason,omitempty"`
	BannedAt    *time.Time `json:"banned_at,omitempty"`
	Bio         string     `json:"bio"`
	Picture     string     `json:"picture"`
	Website     string     `json:"website"`
	Twitter     string     `json:"twitter"`
	Instagram   string     `json:"instagram"`
	Theme       string     `json:"theme"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toUserDTO(u models.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Verified:    u.Verified,
		IsModerator: u.IsModerator,
		IsAdmin:     u.IsAdmin,
		Banned:      u.Banned,
		BanReason:   u.BanReason,
		BannedAt:    u.BannedAt,
		Bio:         u.Bio,
		Picture:     u.Picture,
		Website:     u.Website,
		Twitter:     u.Twitter,
		Instagram:   u.Instagram,
		Theme:       u.Theme,
		CreatedAt:   u.CreatedAt,
	}
}

type imageDTO struct {
	ID              int64              `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Filename        string             `json:"filename"`
	Status          models.ImageStatus `json:"status"`
	OwnerID         int64              `json:"owner_id"`
	ReviewedBy      *int64             `json:"reviewed_by,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	IsPublic        bool               `json:"is_public"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toImageDTO(img models.Image) imageDTO {
	return imageDTO{
		ID:              img.ID,
		Title:           img.Title,
		Description:     img.Description,
		Filename:        img.Filename,
		Status:          img.Status,
		OwnerID:         img.OwnerID,
		ReviewedBy:      img.ReviewedBy,
		RejectionReason: img.RejectionReason,
		IsPublic:        img.IsPublic,
		CreatedAt:       img.CreatedAt,
		UpdatedAt:       img.UpdatedAt,
	}
}

func toImageDTOs(images []models.Image) []imageDTO {
	out := make([]imageDTO, 0, len(images))
	for _, img := range images {
		out = append(out, toImageDTO(img))
	}
	return out
}

type albumDTO struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CoverImageID *int64    `json:"cover_image_id,omitempty"`
	OwnerID      int64     `json:"owner_id"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAlbumDTO(a models.Album) albumDTO {
	return albumDTO{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		CoverImageID: a.CoverImageID,
		OwnerID:      a.OwnerID,
		IsPublic:     a.IsPublic,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// writeServiceError keeps the error taxonomy distinguishable on the
// wire: 401 unauthenticated, 403 forbidden, 404 not found, 409 state
// conflicts, 4xx validation.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rid := middleware.RequestID(r.Context())
	var banned *service.BannedError
	switch {
	case errors.As(err, &banned):
		util.WriteError(w, http.StatusForbidden, "banned", banned.Error(), rid)
	case errors.Is(err, service.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", rid)
	case errors.Is(err, service.ErrUnauthenticated):
		util.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required", rid)
	case errors.Is(err, service.ErrForbidden):
		util.WriteError(w, http.StatusForbidden, "forbidden", "not allowed", rid)
	case errors.Is(err, service.ErrNotPending):
		util.WriteError(w, http.StatusConflict, "not_pending", "image has already been decided", rid)
	case errors.Is(err, service.ErrNotApproved):
		util.WriteError(w, http.StatusConflict, "image_not_approved", "only approved images can be added to an album", rid)
	case errors.Is(err, service.ErrInvalidToken):
		util.WriteError(w, http.StatusBadRequest, "invalid_token", "invalid or already used token", rid)
	case errors.Is(err, service.ErrValidation):
		util.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), rid)
	case errors.Is(err, filestore.ErrUnsupportedType):
		util.WriteError(w, http.StatusUnsupportedMediaType, "unsupported_type", "content type is not an allowed image type", rid)
	case errors.Is(err, filestore.ErrTooLarge):
		util.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload size limit", rid)
	case errors.Is(err, store.ErrNotFound):
		util.WriteError(w, http.StatusNotFound, "not_found", "resource not found", rid)
	case errors.Is(err, store.ErrConflict):
		util.WriteError(w, http.StatusConflict, "conflict", "conflicting state", rid)
	default:
		util.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), rid)
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func parsePagination(r *http.Request) (int, int) {
	page := 1
	pageSize := 25
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil {
			if ps < 1 {
				ps = 1
			}
			if ps > 100 {
				ps = 100
			}
			pageSize = ps
		}
	}
	return page, pageSize
}

func randomToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func (h *Handlers) setAuthCookies(w http.ResponseWriter, sessionToken, csrfToken string) {
	maxAge := int(h.cfg.SessionAbsoluteDuration().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	expiredAt := time.Unix(1, 0).UTC()
	for _, c := range []struct {
		name     string
		httpOnly bool
	}{
		{h.cfg.SessionCookieName, true},
		{h.cfg.CSRFCookieName, false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     "/",
			HttpOnly: c.httpOnly,
			Secure:   h.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
			Expires:  expiredAt,
		})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}
