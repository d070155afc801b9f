package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/response"
)

const stateCookie = "oauth_state"

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Login godoc
//
//	@Summary		Start sign-in
//	@Description	Redirects to the OAuth session provider. A state cookie guards the callback.
//	@Tags			auth
//	@Success		302
//	@Failure		500	{object}	response.Envelope
//	@Router			/auth/login [get]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		log.Error().Err(err).Msg("generate oauth state")
		response.InternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.svc.LoginURL(state), http.StatusFound)
}

// Callback godoc
//
//	@Summary		Finish sign-in
//	@Description	Exchanges the provider code and returns a bearer token whose subject is the user's identity.
//	@Tags			auth
//	@Produce		json
//	@Param			code	query		string	true	"Authorization code"
//	@Param			state	query		string	true	"State echoed by the provider"
//	@Success		200		{object}	response.Envelope{data=Session}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/callback [get]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		response.Unauthorized(w, "sign-in was declined")
		return
	}

	cookie, err := r.Cookie(stateCookie)
	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		response.BadRequest(w, "invalid oauth state")
		return
	}
	code := q.Get("code")
	if code == "" {
		response.BadRequest(w, "missing authorization code")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	session, err := h.svc.Complete(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oauth callback")
		response.Unauthorized(w, "authentication failed")
		return
	}

	response.OK(w, session)
}
