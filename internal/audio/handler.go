package audio

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/middleware"
	"github.com/fe2audio/service/internal/response"
)

const maxBodyBytes = 64 << 10

// Handler holds HTTP handlers for the upload metadata endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new audio Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the upload endpoints. Reads accept anonymous callers; every
// other method requires a bearer session.
func (h *Handler) Routes(jwtSecret string) func(chi.Router) {
	return func(r chi.Router) {
		r.With(middleware.OptionalAuth(jwtSecret)).Get("/", h.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwtSecret))
			r.Post("/", h.Create)
			r.Patch("/", h.Patch)
			r.Delete("/", h.Delete)
		})
	}
}

type createRequest struct {
	Identity    string     `json:"identity,omitempty" example:"u1@example.com"`
	AudioLink   string     `json:"audioLink"          example:"https://cdn.jaylen.nyc/a.mp3"`
	Title       string     `json:"title"              example:"Song A"`
	Private     *bool      `json:"private,omitempty"  example:"true"`
	DeletionURL string     `json:"deletionUrl"        example:"https://api.tixte.com/v1/upload/a/delete"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

type patchRequest struct {
	Identity  string  `json:"identity,omitempty" example:"u1@example.com"`
	AudioLink string  `json:"audioLink"          example:"https://cdn.jaylen.nyc/a.mp3"`
	Title     *string `json:"title,omitempty"    example:"Song B"`
	Public    *bool   `json:"public,omitempty"   example:"false"`
}

type deleteRequest struct {
	AudioLink string `json:"audioLink" example:"https://cdn.jaylen.nyc/a.mp3"`
}

// Get godoc
//
//	@Summary		List uploads or read one
//	@Description	With audioLink: returns title, visibility and whether the caller owns it. Otherwise lists the caller's uploads (unsorted).
//	@Tags			uploads
//	@Produce		json
//	@Security		BearerAuth
//	@Param			audioLink	query		string	false	"Public link of one upload"
//	@Param			identity	query		string	false	"Identity to list; must match the token"
//	@Success		200			{object}	response.Envelope{data=[]Summary}
//	@Failure		401			{object}	response.Envelope
//	@Failure		403			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Router			/uploads [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caller, authed := middleware.Identity(r.Context())

	if link := q.Get("audioLink"); link != "" {
		d, err := h.svc.Get(r.Context(), link, caller)
		if err != nil {
			h.writeError(w, err)
			return
		}
		response.OK(w, d)
		return
	}

	if !authed {
		response.Unauthorized(w, "authorization header required")
		return
	}
	identity := q.Get("identity")
	if identity == "" {
		identity = caller
	}
	if identity != caller {
		response.Forbidden(w, "cannot list uploads of another user")
		return
	}

	list, err := h.svc.List(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, list)
}

// Create godoc
//
//	@Summary		Save upload metadata
//	@Description	Appends a record to the caller's profile, creating the profile on first use. Not idempotent. deletionUrl must point at an allowed deletion host.
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createRequest	true	"Upload metadata"
//	@Success		200		{object}	response.Envelope{data=Profile}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/uploads [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	identity, ok := actingIdentity(w, r, req.Identity)
	if !ok {
		return
	}

	rec := Record{
		Title:       req.Title,
		AudioLink:   req.AudioLink,
		Private:     true,
		DeletionURL: req.DeletionURL,
	}
	if req.Private != nil {
		rec.Private = *req.Private
	}
	if req.CreatedAt != nil {
		rec.CreatedAt = req.CreatedAt.UTC()
	}

	p, err := h.svc.Append(r.Context(), identity, rec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, p)
}

// Patch godoc
//
//	@Summary		Edit upload details
//	@Description	Changes title and/or visibility of one of the caller's uploads. Omitted or null fields stay unchanged.
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		patchRequest	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Record}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/uploads [patch]
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !decode(w, r, &req) {
		return
	}
	identity, ok := actingIdentity(w, r, req.Identity)
	if !ok {
		return
	}

	rec, err := h.svc.Patch(r.Context(), identity, req.AudioLink, Patch{Title: req.Title, Public: req.Public})
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, rec)
}

// Delete godoc
//
//	@Summary		Delete an upload
//	@Description	Revokes the blob through its deletion URL, then removes the metadata. A failed revocation keeps the record.
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		deleteRequest	true	"Upload to delete"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/uploads [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decode(w, r, &req) {
		return
	}
	identity, ok := actingIdentity(w, r, "")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), identity, req.AudioLink); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"message": "file metadata and audio deleted"})
}

// Trim godoc
//
//	@Summary		Trim audio
//	@Description	Disabled. Always answers 403.
//	@Tags			uploads
//	@Produce		json
//	@Failure		403	{object}	response.Envelope
//	@Router			/trim [post]
func (h *Handler) Trim(w http.ResponseWriter, r *http.Request) {
	response.Forbidden(w, "Forbidden")
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrProfileNotFound):
		response.NotFound(w, ErrProfileNotFound.Error())
	case errors.Is(err, ErrRecordNotFound):
		response.NotFound(w, ErrRecordNotFound.Error())
	case errors.Is(err, ErrRevokeFailed):
		log.Error().Err(err).Msg("blob revocation failed")
		response.UpstreamError(w, ErrRevokeFailed.Error())
	default:
		log.Error().Err(err).Msg("upload metadata operation failed")
		response.InternalError(w)
	}
}

// actingIdentity returns the token identity. A body identity is only accepted
// as a consistency check, never as the source of truth.
func actingIdentity(w http.ResponseWriter, r *http.Request, claimed string) (string, bool) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return "", false
	}
	if claimed != "" && claimed != identity {
		response.Forbidden(w, "identity does not match session")
		return "", false
	}
	return identity, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}
