package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"icarus/internal/apperror"
	"icarus/internal/models"
)

// TokenCookie is the cookie the login handler sets and RequireAuth reads.
const TokenCookie = "token"

type contextKey string

const userKey contextKey = "user"

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtSecret []byte
	users     UserLookup
	logger    *zap.Logger
}

func NewAuthMiddleware(secret []byte, users UserLookup, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: secret, users: users, logger: logger}
}

// RequireAuth accepts the token as a Bearer header or the token cookie. A valid token whose
// user no longer exists is answered with 404.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)
		if tokenStr == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}
		userID, err := m.ParseToken(tokenStr)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				writeMessage(w, http.StatusNotFound, "User not found")
				return
			}
			m.logger.Error("auth user lookup failed", zap.Int("user_id", userID), zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}

		noteUser(r.Context(), user.ID)
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseToken verifies an HS256 token and returns its numeric subject.
func (m *AuthMiddleware) ParseToken(tokenStr string) (int, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, apperror.Unauthorized("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperror.Unauthorized("invalid claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, apperror.Unauthorized("invalid subject")
	}
	return int(sub), nil
}

func tokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// UserFromContext returns the user RequireAuth attached to the request.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// WithUser is used by tests and by handlers that authenticate outside RequireAuth.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
