package credential

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/middleware"
	"github.com/fe2audio/service/internal/response"
)

// Handler serves upload credentials to signed-in users.
type Handler struct {
	sealer *Sealer
	apiKey string
}

// NewHandler creates a credential Handler. sealer may be nil when the server
// has no shared secret; the endpoint then reports a server error.
func NewHandler(sealer *Sealer, apiKey string) *Handler {
	return &Handler{sealer: sealer, apiKey: apiKey}
}

type credentialData struct {
	APIKey string `json:"apiKey" example:"q83vEjRWeJq8..."`
}

// Get godoc
//
//	@Summary		Get upload credential
//	@Description	Returns the blob service API key sealed with the shared credential secret. Expires after the configured TTL.
//	@Tags			uploads
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=credentialData}
//	@Failure		403	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/credential [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.Identity(r.Context()); !ok {
		response.Forbidden(w, "Forbidden")
		return
	}
	if h.sealer == nil || h.apiKey == "" {
		log.Error().Msg("credential endpoint misconfigured: missing secret or blob api key")
		response.InternalError(w)
		return
	}

	token, err := h.sealer.Seal(h.apiKey)
	if err != nil {
		log.Error().Err(err).Msg("seal credential")
		response.InternalError(w)
		return
	}
	response.OK(w, credentialData{APIKey: token})
}
