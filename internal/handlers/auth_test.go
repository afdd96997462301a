package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"icarus/internal/apperror"
	mw "icarus/internal/middleware"
	"icarus/internal/models"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	nextID  int
	failErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*models.User{}, nextID: 1}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *models.User) error {
	if f.failErr != nil {
		return f.failErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return apperror.Conflict("A user with that email or username already exists")
	}
	u.ID = f.nextID
	f.nextID++
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

func newTestAuthHandler(store UserStore) *AuthHandler {
	return NewAuthHandler(store, []byte("test-secret"), 72*time.Hour, false, zap.NewNop())
}

func post(h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestSignup(t *testing.T) {
	store := newFakeUserStore()
	h := newTestAuthHandler(store)

	rec, body := post(h.Signup, `{"email":" Ada@Example.com ","username":"ada","password":"secret123"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])

	u := store.byEmail["ada@example.com"]
	require.NotNil(t, u)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))

	rec, body = post(h.Signup, `{"email":"ada@example.com","username":"ada","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])

	for _, bad := range []string{
		`{"email":"","username":"x","password":"secret123"}`,
		`{"email":"not-an-email","username":"x","password":"secret123"}`,
		`{"email":"b@example.com","username":"x","password":"123"}`,
		`{"email":`,
	} {
		rec, body = post(h.Signup, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, false, body["success"], bad)
	}

	store.failErr = errors.New("db down")
	rec, _ = post(h.Signup, `{"email":"c@example.com","username":"c","password":"secret123"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	h := newTestAuthHandler(store)
	post(h.Signup, `{"email":"ada@example.com","username":"ada","password":"secret123"}`)

	rec, body := post(h.Login, `{"email":"ADA@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	token := body["token"].(string)
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(1), claims["sub"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, mw.TokenCookie, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.Equal(t, 72*3600, cookies[0].MaxAge)

	rec, body = post(h.Login, `{"email":"ada@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect password or email", body["message"])

	rec, _ = post(h.Login, `{"email":"nobody@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(h.Login, `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify(t *testing.T) {
	h := newTestAuthHandler(newFakeUserStore())

	rec := httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(mw.WithUser(req.Context(), &models.User{ID: 1, Username: "ada"}))
	rec = httptest.NewRecorder()
	h.Verify(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":true,"user":"ada"}`, rec.Body.String())
}
