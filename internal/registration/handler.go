// AngelaMos | 2026
// handler.go

package registration

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/gatekeeper/internal/core"
	"github.com/angelamos/gatekeeper/internal/synapse"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
}

// Register accepts the invitation form as either JSON or
// application/x-www-form-urlencoded.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRegisterRequest(w, r)
	if !ok {
		return
	}

	resp, fieldErrs, err := h.service.Register(r.Context(), req, clientIP(r))
	if err != nil {
		var rejected *synapse.RejectedError
		if errors.As(err, &rejected) {
			core.Error(
				w,
				http.StatusBadRequest,
				rejected.Errcode,
				rejected.Message,
			)
			return
		}
		core.SetSpanError(r.Context(), err)
		core.InternalServerError(w, err)
		return
	}

	if fieldErrs != nil {
		core.BadRequest(w, fieldErrs)
		return
	}

	core.OK(w, resp)
}

func decodeRegisterRequest(
	w http.ResponseWriter,
	r *http.Request,
) (RegisterRequest, bool) {
	var req RegisterRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		core.BadRequest(w, "invalid form body")
		return req, false
	}

	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	req.Confirm = r.PostFormValue("confirm")
	req.Token = r.PostFormValue("token")
	return req, true
}

// clientIP prefers the first hop of X-Forwarded-For, keeping the peer
// address alongside it so a spoofed header is still attributable.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return r.RemoteAddr
	}

	first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if first == "" {
		return r.RemoteAddr
	}
	return first + ", " + r.RemoteAddr
}
