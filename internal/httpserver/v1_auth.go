package httpserver

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"friendsnet-backend/internal/storage"
)

const tokenDuration = 7 * 24 * time.Hour

type registerRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	FirstName     string  `json:"firstName"`
	MiddleName    *string `json:"middleName,omitempty"`
	Surname       string  `json:"surname"`
	ProfPictureID *int64  `json:"profPictureId,omitempty"`
	Age           int64   `json:"age"`
	Gender        int64   `json:"gender"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      userItem `json:"user"`
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
}

type meResponse struct {
	User userItem `json:"user"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

func (api *v1API) handleAuth(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/auth/")
	switch rest {
	case "register":
		if r.Method != http.MethodPost {
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
			return
		}
		api.handleRegister(w, r)
	case "login":
		if r.Method != http.MethodPost {
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
			return
		}
		api.handleLogin(w, r)
	case "logout":
		if r.Method != http.MethodPost {
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
			return
		}
		api.handleLogout(w, r)
	case "me":
		if r.Method != http.MethodGet {
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
			return
		}
		api.handleMe(w, r)
	default:
		writeAPIError(w, ErrCodeNotFound, "not found")
	}
}

func (api *v1API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Surname = strings.TrimSpace(req.Surname)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeAPIError(w, ErrCodeValidation, "password must be at least 8 characters")
		return
	}
	if req.FirstName == "" || req.Surname == "" {
		writeAPIError(w, ErrCodeValidation, "firstName and surname are required")
		return
	}
	if req.Age < 0 {
		writeAPIError(w, ErrCodeValidation, "age must not be negative")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.logger.Error("bcrypt hash failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	nowMs := time.Now().UnixMilli()
	userID, err := api.store.CreateUser(r.Context(), storage.NewUser{
		Email:         req.Email,
		Password:      string(passwordHash),
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		Surname:       req.Surname,
		ProfPictureID: req.ProfPictureID,
		Age:           req.Age,
		Gender:        req.Gender,
	}, nowMs)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "user")
		return
	}

	profile, err := api.store.GetUserProfile(r.Context(), userID)
	if err != nil {
		api.logger.Error("get profile after register failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	expiresAtMs := nowMs + tokenDuration.Milliseconds()
	tokenRow, err := api.store.CreateAuthToken(r.Context(), userID, nowMs, expiresAtMs)
	if err != nil {
		api.logger.Error("create token failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:      toUserItem(profile),
		Token:     tokenRow.Token,
		ExpiresAt: tokenRow.ExpiresAtMs,
	})
}

func (api *v1API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeAPIError(w, ErrCodeValidation, "email and password are required")
		return
	}

	creds, err := api.store.GetUserCredentialsByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeAPIError(w, ErrCodeInvalidCredentials, "invalid email or password")
			return
		}
		api.logger.Error("get credentials failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.Password), []byte(req.Password)); err != nil {
		writeAPIError(w, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}

	profile, err := api.store.GetUserProfile(r.Context(), creds.UserID)
	if err != nil {
		api.logger.Error("get profile failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	nowMs := time.Now().UnixMilli()
	expiresAtMs := nowMs + tokenDuration.Milliseconds()
	tokenRow, err := api.store.CreateAuthToken(r.Context(), creds.UserID, nowMs, expiresAtMs)
	if err != nil {
		api.logger.Error("create token failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:      toUserItem(profile),
		Token:     tokenRow.Token,
		ExpiresAt: tokenRow.ExpiresAtMs,
	})
}

func (api *v1API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		writeAPIError(w, ErrCodeTokenInvalid, "token required")
		return
	}

	_ = api.store.DeleteToken(r.Context(), token)
	writeJSON(w, http.StatusOK, logoutResponse{Success: true})
}

func (api *v1API) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := api.store.GetUserProfile(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserItem(profile)})
}
