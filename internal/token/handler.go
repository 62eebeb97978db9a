// AngelaMos | 2026
// handler.go

package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/gatekeeper/internal/core"
)

type Handler struct {
	store     *Store
	validator *validator.Validate
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store:     store,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/tokens", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.CreateToken)
		r.Get("/", h.ListTokens)
		r.Get("/{name}", h.GetToken)
		r.Patch("/{name}", h.UpdateToken)
		r.Post("/{name}/disable", h.DisableToken)
		r.Delete("/{name}", h.DeleteToken)
	})
}

var createFields = map[string]struct{}{
	"expiration_date": {},
	"max_usage":       {},
}

var updateFields = map[string]struct{}{
	"expiration_date": {},
	"max_usage":       {},
	"used":            {},
	"disabled":        {},
}

// CreateToken mints a new invitation token. An empty body means default
// options (unlimited usage, no expiry).
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.BadRequest(w, "unreadable request body")
		return
	}

	if len(body) > 0 {
		if err := checkAllowedFields(body, createFields); err != nil {
			core.BadRequest(w, err.Error())
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			core.BadRequest(w, core.FormatValidationError(err))
			return
		}
	}

	var expiration *time.Time
	if req.ExpirationDate != nil && *req.ExpirationDate != "" {
		parsed, err := ParseExpiration(*req.ExpirationDate)
		if err != nil {
			core.Error(
				w,
				http.StatusBadRequest,
				core.CodeBadDateFormat,
				"expiration_date is not an ISO-8601 date",
			)
			return
		}
		expiration = parsed
	}

	maxUsage := 0
	if req.MaxUsage != nil {
		maxUsage = *req.MaxUsage
	}

	created, err := h.store.New(r.Context(), expiration, maxUsage)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "max_usage must not be negative")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToTokenResponse(created))
}

func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.store.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTokenResponseList(tokens))
}

func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	found, err := h.store.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTokenResponse(found))
}

// UpdateToken overwrites administrative fields. Requests naming any other
// field, notably name, ips or active, are rejected outright.
func (h *Handler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.BadRequest(w, "unreadable request body")
		return
	}

	if err := checkAllowedFields(body, updateFields); err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	var req UpdateTokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	updated, err := h.store.Update(r.Context(), name, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "token")
			return
		}
		if errors.Is(err, core.ErrDateFormat) {
			core.Error(
				w,
				http.StatusBadRequest,
				core.CodeBadDateFormat,
				"expiration_date is not an ISO-8601 date",
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTokenResponse(updated))
}

// DisableToken permanently deactivates a token. Absent and
// already-disabled tokens answer identically, matching the original
// protocol's PUT semantics.
func (h *Handler) DisableToken(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	disabled, err := h.store.Disable(r.Context(), name)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	if !disabled {
		core.Error(
			w,
			http.StatusNotFound,
			core.CodeTokenNotFound,
			"token does not exist or is already disabled",
		)
		return
	}

	found, err := h.store.Get(r.Context(), name)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTokenResponse(found))
}

func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.store.Delete(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func checkAllowedFields(body []byte, allowed map[string]struct{}) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("invalid request body")
	}

	for field := range raw {
		if _, ok := allowed[field]; !ok {
			return fmt.Errorf("field %q cannot be set", field)
		}
	}
	return nil
}
