package api

import (
	"errors"
	"io"
	"net/http"
	"os"

	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/service"
	"picshare/internal/store"
	"picshare/internal/util"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			util.WriteError(w, http.StatusConflict, "email_taken", "an account with this email already exists", middleware.RequestID(r.Context()))
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	csrf := randomToken()
	h.setAuthCookies(w, token, csrf)
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"user":       toUserDTO(service.Redact(u)),
		"csrf_token": csrf,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.SessionCookieName); err == nil && c.Value != "" {
		h.svc.Logout(c.Value)
	}
	h.clearAuthCookies(w)
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	var req struct {
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		Picture   string `json:"picture"`
		Website   string `json:"website"`
		Twitter   string `json:"twitter"`
		Instagram string `json:"instagram"`
		Theme     string `json:"theme"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), actor, actor.ID, models.ProfileUpdate{
		Name:      req.Name,
		Bio:       req.Bio,
		Picture:   req.Picture,
		Website:   req.Website,
		Twitter:   req.Twitter,
		Instagram: req.Instagram,
		Theme:     req.Theme,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) VerifyRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	if actor.Verified {
		util.WriteError(w, http.StatusConflict, "already_verified", "account is already verified", middleware.RequestID(r.Context()))
		return
	}
	if _, err := h.svc.IssueVerificationToken(r.Context(), actor.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "verification_sent"})
}

func (h *Handlers) VerifyConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "token is required", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.ConsumeVerificationToken(r.Context(), req.Token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid multipart form", middleware.RequestID(r.Context()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "file field is required", middleware.RequestID(r.Context()))
		return
	}
	defer file.Close()

	img, err := h.svc.SubmitImage(r.Context(), actor,
		r.FormValue("title"), r.FormValue("description"),
		header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{"image": toImageDTO(img)})
}

func (h *Handlers) ListGallery(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	images, err := h.svc.ListGallery(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"images":    toImageDTOs(images),
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	img, err := h.svc.GetImage(r.Context(), actorPtr(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"image": toImageDTO(img)})
}

func (h *Handlers) GetImageFile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	img, err := h.svc.GetImage(r.Context(), actorPtr(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	f, contentType, err := h.svc.Files().Open(img.Filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			util.WriteError(w, http.StatusNotFound, "not_found", "image file not found", middleware.RequestID(r.Context()))
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = io.Copy(w, f)
}

func (h *Handlers) ListOwnImages(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	images, err := h.svc.ListOwnImages(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"images": toImageDTOs(images)})
}

func (h *Handlers) SetImageVisibility(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	var req struct {
		IsPublic bool `json:"is_public"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	img, err := h.svc.SetImageVisibility(r.Context(), actor, id, req.IsPublic)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"image": toImageDTO(img)})
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.DeleteImage(r.Context(), actor, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) DecideImage(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	img, err := h.svc.DecideImage(r.Context(), actor, id, models.ImageStatus(req.Status), req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"image": toImageDTO(img)})
}

func (h *Handlers) ModerationQueue(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	page, pageSize := parsePagination(r)
	images, err := h.svc.ModerationQueue(r.Context(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"images":    toImageDTOs(images),
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handlers) ModerationStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	stats, err := h.svc.ModerationStats(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handlers) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	a, err := h.svc.CreateAlbum(r.Context(), actor, req.Title, req.Description, req.IsPublic)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{"album": toAlbumDTO(a)})
}

func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid album id", middleware.RequestID(r.Context()))
		return
	}
	a, images, err := h.svc.GetAlbum(r.Context(), actorPtr(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"album":  toAlbumDTO(a),
		"images": toImageDTOs(images),
	})
}

func (h *Handlers) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid album id", middleware.RequestID(r.Context()))
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	a, err := h.svc.UpdateAlbum(r.Context(), actor, id, req.Title, req.Description, req.IsPublic)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"album": toAlbumDTO(a)})
}

func (h *Handlers) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid album id", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.DeleteAlbum(r.Context(), actor, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) AddAlbumImage(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	albumID, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid album id", middleware.RequestID(r.Context()))
		return
	}
	imageID, err := idParam(r, "imageID")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	added, err := h.svc.AddImageToAlbum(r.Context(), actor, albumID, imageID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"added": added})
}

func (h *Handlers) RemoveAlbumImage(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	albumID, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid album id", middleware.RequestID(r.Context()))
		return
	}
	imageID, err := idParam(r, "imageID")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid image id", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.RemoveImageFromAlbum(r.Context(), actor, albumID, imageID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handlers) ListOwnAlbums(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	albums, err := h.svc.ListOwnAlbums(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]albumDTO, 0, len(albums))
	for _, a := range albums {
		out = append(out, toAlbumDTO(a))
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"albums": out})
}

func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	page, pageSize := parsePagination(r)
	users, err := h.svc.ListUsers(r.Context(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"users":     out,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handlers) AdminSetRoles(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id", middleware.RequestID(r.Context()))
		return
	}
	var req struct {
		IsModerator bool `json:"is_moderator"`
		IsAdmin     bool `json:"is_admin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.SetUserRoles(r.Context(), actor, id, req.IsModerator, req.IsAdmin)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) AdminBanUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id", middleware.RequestID(r.Context()))
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.BanUser(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

func (h *Handlers) AdminUnbanUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.UnbanUser(r.Context(), actor, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(service.Redact(u))})
}

// actorPtr returns the authenticated user for optional-auth routes, or
// nil for anonymous requests.
func actorPtr(r *http.Request) *models.User {
	if u, ok := middleware.User(r.Context()); ok {
		return &u
	}
	return nil
}
