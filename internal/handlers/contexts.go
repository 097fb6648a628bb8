package handlers

import (
	"net/http"

	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/services"
)

type ContextHandler struct {
	Contexts *services.ContextService
}

func (h *ContextHandler) List(w http.ResponseWriter, r *http.Request) {
	contexts, err := h.Contexts.List(r.Context(), middleware.AccountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contexts)
}

func (h *ContextHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.ContextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Contexts.Create(r.Context(), middleware.AccountFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ContextHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Contexts.Get(r.Context(), middleware.AccountFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ContextHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.ContextPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Contexts.Update(r.Context(), middleware.AccountFrom(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ContextHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Contexts.Delete(r.Context(), middleware.AccountFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Context deleted successfully"})
}

func (h *ContextHandler) pair(r *http.Request) (contextID, identityID int64, err error) {
	if contextID, err = pathID(r, "id", "Context"); err != nil {
		return 0, 0, err
	}
	if identityID, err = pathID(r, "identityID", "Identity"); err != nil {
		return 0, 0, err
	}
	return contextID, identityID, nil
}

// AddIdentity answers 201 for a new pair and 200 when it already existed.
func (h *ContextHandler) AddIdentity(w http.ResponseWriter, r *http.Request) {
	contextID, identityID, err := h.pair(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	notice, err := h.Contexts.AddIdentity(r.Context(), middleware.AccountFrom(r.Context()), contextID, identityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if notice.Changed {
		status = http.StatusCreated
	}
	writeJSON(w, status, message{notice.Message})
}

func (h *ContextHandler) RemoveIdentity(w http.ResponseWriter, r *http.Request) {
	contextID, identityID, err := h.pair(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	notice, err := h.Contexts.RemoveIdentity(r.Context(), middleware.AccountFrom(r.Context()), contextID, identityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{notice.Message})
}

func (h *ContextHandler) Identities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}

	identities, err := h.Contexts.ListIdentities(r.Context(), middleware.AccountFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identities)
}

func (h *ContextHandler) UnassignedIdentities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}

	identities, err := h.Contexts.ListUnassigned(r.Context(), middleware.AccountFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identities)
}

func (h *ContextHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Context")
	if err != nil {
		writeError(w, r, err)
		return
	}

	resolution, err := h.Contexts.Resolve(r.Context(), middleware.AccountFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}
