package handlers

import (
	"mime"
	"net/http"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/services"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Accounts *services.AccountService
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Token logs in with either an OAuth2 password form or a JSON body. The
// username field may hold an email address.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	default:
		if err := decodeJSON(r, &creds); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, r, common.Errorf(common.ErrValidation, "username and password are required"))
		return
	}

	token, err := h.Accounts.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Verify(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Email verified successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.AccountFrom(r.Context()))
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch services.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.Accounts.UpdateProfile(r.Context(), middleware.AccountFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
