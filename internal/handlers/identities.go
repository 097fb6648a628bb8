package handlers

import (
	"net/http"

	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/services"
)

type IdentityHandler struct {
	Identities *services.IdentityService
}

func (h *IdentityHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.Identities.List(r.Context(), middleware.AccountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identities)
}

func (h *IdentityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.IdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	identity, err := h.Identities.Create(r.Context(), middleware.AccountFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Identity")
	if err != nil {
		writeError(w, r, err)
		return
	}

	identity, err := h.Identities.Get(r.Context(), middleware.AccountFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *IdentityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Identity")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.IdentityPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	identity, err := h.Identities.Update(r.Context(), middleware.AccountFrom(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *IdentityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Identity")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Identities.Delete(r.Context(), middleware.AccountFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Identity deleted successfully"})
}
