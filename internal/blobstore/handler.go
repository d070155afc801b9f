// Package blobstore serves a Tixte-compatible upload API on top of object
// storage, so a deployment can host its own audio blobs.
package blobstore

import (
	"crypto/subtle"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/response"
	"github.com/fe2audio/service/internal/storage"
)

const (
	maxUploadBytes = 20 << 20
	deleteAudience = "blob-delete"
)

var (
	errBadToken = errors.New("invalid deletion token")

	allowedTypes = map[string]bool{
		"audio/mp3":  true,
		"audio/mpeg": true,
		"audio/ogg":  true,
	}
)

// Handler implements the upload and deletion endpoints.
type Handler struct {
	store      storage.Storage
	apiKey     string
	secret     []byte
	publicBase string
	now        func() time.Time
}

// NewHandler creates a Handler. publicBase is this server's external URL and
// prefixes generated deletion links.
func NewHandler(store storage.Storage, apiKey, signingSecret, publicBase string) *Handler {
	return &Handler{
		store:      store,
		apiKey:     apiKey,
		secret:     []byte(signingSecret),
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

// Routes mounts the blob endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Get("/delete/{token}", h.Delete)
}

type uploadPayload struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

type uploadResult struct {
	DirectURL   string `json:"direct_url"   example:"http://localhost:9000/audios/2024/05/01/6f1c.mp3"`
	DeletionURL string `json:"deletion_url" example:"http://localhost:8080/api/blobs/delete/eyJhbGciOi..."`
}

// Upload godoc
//
//	@Summary		Upload an audio blob
//	@Description	Tixte-compatible upload. Multipart form with payload_json ({domain, name}) and file. Authorization carries the raw API key.
//	@Tags			blobs
//	@Accept			mpfd
//	@Produce		json
//	@Param			Authorization	header		string	true	"Storage API key"
//	@Param			payload_json	formData	string	true	"{\"domain\":\"...\",\"name\":\"a.mp3\"}"
//	@Param			file			formData	file	true	"Audio file"
//	@Success		200				{object}	response.Envelope{data=uploadResult}
//	@Failure		400				{object}	response.Envelope
//	@Failure		401				{object}	response.Envelope
//	@Failure		415				{object}	response.Envelope
//	@Failure		500				{object}	response.Envelope
//	@Router			/blobs/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Authorization")
	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		response.Unauthorized(w, "invalid api key")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var payload uploadPayload
	if raw := r.FormValue("payload_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			response.BadRequest(w, "invalid payload_json")
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	name := payload.Name
	if name == "" {
		name = header.Filename
	}
	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if !allowedTypes[contentType] {
		response.Error(w, http.StatusUnsupportedMediaType, "only mp3 and ogg audio is accepted")
		return
	}

	objectKey := h.objectKey(name)
	if err := h.store.Upload(r.Context(), objectKey, file, header.Size, contentType); err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("store blob")
		response.InternalError(w)
		return
	}

	token, err := h.deletionToken(objectKey)
	if err != nil {
		log.Error().Err(err).Msg("sign deletion token")
		response.InternalError(w)
		return
	}

	log.Info().Str("key", objectKey).Int64("size", header.Size).Msg("blob stored")
	response.OK(w, uploadResult{
		DirectURL:   h.store.PublicURL(objectKey),
		DeletionURL: h.publicBase + "/blobs/delete/" + token,
	})
}

// Delete godoc
//
//	@Summary		Delete an audio blob
//	@Description	Follows a deletion link issued by the upload endpoint.
//	@Tags			blobs
//	@Produce		json
//	@Param			token	path		string	true	"Deletion token"
//	@Success		200		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/blobs/delete/{token} [get]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	objectKey, err := h.parseDeletionToken(chi.URLParam(r, "token"))
	if err != nil {
		response.NotFound(w, "unknown deletion link")
		return
	}

	if err := h.store.Delete(r.Context(), objectKey); err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("delete blob")
		response.InternalError(w)
		return
	}
	log.Info().Str("key", objectKey).Msg("blob deleted")
	response.OK(w, map[string]string{"message": "deleted"})
}

// objectKey lays objects out by upload day and keeps the original extension.
func (h *Handler) objectKey(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	if ext != ".mp3" && ext != ".ogg" {
		ext = ""
	}
	return h.now().UTC().Format("2006/01/02") + "/" + uuid.NewString() + ext
}

// deletionToken signs the object key. Deletion links do not expire.
func (h *Handler) deletionToken(objectKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  objectKey,
		Audience: jwt.ClaimStrings{deleteAudience},
		IssuedAt: jwt.NewNumericDate(h.now()),
	})
	return token.SignedString(h.secret)
}

func (h *Handler) parseDeletionToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.secret, nil
	}, jwt.WithAudience(deleteAudience))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", errBadToken
	}
	return claims.Subject, nil
}
