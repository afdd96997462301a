package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"icarus/internal/apperror"
	mw "icarus/internal/middleware"
	"icarus/internal/models"
)

const minPasswordLen = 6

// UserStore is the part of the store the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users        UserStore
	jwtSecret    []byte
	tokenTTL     time.Duration
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(users UserStore, jwtSecret []byte, tokenTTL time.Duration, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid body"})
		return
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.Username = strings.TrimSpace(c.Username)
	if c.Email == "" || c.Username == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "All fields are required"})
		return
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "Invalid email address"})
		return
	}
	if len(c.Password) < minPasswordLen {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "Password must be at least 6 characters"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "could not hash password"})
		return
	}

	user := &models.User{Email: c.Email, Username: c.Username, PasswordHash: string(hashed)}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			writeJSON(w, statusFor(err), authResponse{Message: appErr.Message})
			return
		}
		h.logger.Error("create user", zap.String("email", c.Email), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "could not create user"})
		return
	}

	h.logger.Info("user signed up", zap.Int("user_id", user.ID))
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Message: "Account created"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid body"})
		return
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "All fields are required"})
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), c.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, authResponse{Message: "Incorrect password or email"})
			return
		}
		h.logger.Error("login lookup", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "server error"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, authResponse{Message: "Incorrect password or email"})
		return
	}

	token, err := h.issueJWT(user.ID)
	if err != nil {
		h.logger.Error("issue token", zap.Int("user_id", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "could not issue token"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     mw.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: token})
}

// Verify answers whether the caller's token is still good. RequireAuth has already
// rejected bad tokens by the time this runs.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := mw.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "user": user.Username})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     mw.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) issueJWT(userID int) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(h.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
