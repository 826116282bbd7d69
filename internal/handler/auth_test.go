package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arunika-pos/api/internal/auth"
	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/handler"
)

type mockAuthStore struct {
	getUserByEmailFn func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn    func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doJSONRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func testUser(t *testing.T, password string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.User{
		ID:           uuid.New(),
		BranchID:     uuid.New(),
		FullName:     "Dewi Lestari",
		Email:        "dewi@arunika.id",
		PasswordHash: string(hash),
		Role:         "CASHIER",
	}
}

func TestLogin_HappyPath(t *testing.T) {
	user := testUser(t, "rahasia123")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			if email != user.Email {
				return database.User{}, pgx.ErrNoRows
			}
			return user, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "rahasia123",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	accessToken, _ := resp["access_token"].(string)
	if accessToken == "" {
		t.Fatal("access_token missing from response")
	}
	if resp["refresh_token"] == "" {
		t.Error("refresh_token missing from response")
	}

	claims, err := auth.ValidateToken(testJWTSecret, accessToken)
	if err != nil {
		t.Fatalf("returned access token does not validate: %v", err)
	}
	if claims.UserID != user.ID || claims.BranchID != user.BranchID || claims.Role != user.Role {
		t.Errorf("claims mismatch: %+v", claims)
	}

	userResp, _ := resp["user"].(map[string]interface{})
	if userResp["email"] != user.Email {
		t.Errorf("user.email: got %v", userResp["email"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "rahasia123")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return user, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "salah-total",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@arunika.id",
		"password": "whatever",
	})

	// Same response as wrong password so the endpoint does not leak
	// which emails exist.
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{"email": "dewi@arunika.id"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestRefresh_HappyPath(t *testing.T) {
	user := testUser(t, "rahasia123")
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != user.ID {
				return database.User{}, pgx.ErrNoRows
			}
			return user, nil
		},
	}

	refreshToken, err := auth.GenerateRefreshToken(testJWTSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == "" {
		t.Error("access_token missing from response")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doJSONRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": "not-a-jwt",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestRefresh_AccessTokenSignedWithOtherSecret(t *testing.T) {
	user := testUser(t, "rahasia123")
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return user, nil
		},
	}

	refreshToken, err := auth.GenerateRefreshToken("a-different-secret", user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}
