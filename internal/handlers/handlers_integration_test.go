package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"microblog/internal/handlers"
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/repositories"
	"microblog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all
// handlers/services. Each test gets its own named database so state never
// leaks between tests.
func setupApp(dbName string) (*fiber.App, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}, &models.Comment{})
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)

	authService := services.NewAuthService(userRepo, "test_jwt_secret")
	postService := services.NewPostService(postRepo, nil) // nil for RabbitMQ client

	authHandler := handlers.NewAuthHandler(authService)
	postHandler := handlers.NewPostHandler(postService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	authHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protectedRoutes)
	postHandler.RegisterRoutes(protectedRoutes)

	return app, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// doJSON performs a JSON request, optionally authenticated with a bearer
// token, and returns the response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// registerUser registers a user and returns its id and the issued token.
func registerUser(t *testing.T, app *fiber.App, username, email string) (string, string) {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var registerResp struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	decodeBody(t, resp, &registerResp)
	assert.NotEmpty(t, registerResp.Token)
	assert.NotEmpty(t, registerResp.User.ID)

	return registerResp.User.ID, registerResp.Token
}

func TestAuthFlow(t *testing.T) {
	app, err := setupApp("authflow")
	assert.NoError(t, err)

	userID, _ := registerUser(t, app, "testuser", "test@example.com")

	// Duplicate email is a conflict.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "otheruser",
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Short username is a validation failure.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "ab",
		"email":    "ab@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Login succeeds and returns a token plus the profile without a password.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]interface{}
	decodeBody(t, resp, &loginResp)
	token, _ := loginResp["token"].(string)
	assert.NotEmpty(t, token)
	userJSON, _ := json.Marshal(loginResp["user"])
	assert.NotContains(t, string(userJSON), "password123")

	// Wrong password and unknown email produce identical 401 bodies.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	wrongPasswordBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	unknownEmailBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, string(wrongPasswordBody), string(unknownEmailBody))

	// Me returns the caller's profile.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "testuser", me.Username)

	// Me without a token is unauthenticated.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The cookie set at login also authenticates.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	cookieResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, cookieResp.StatusCode)
	cookieResp.Body.Close()

	// Logout clears the token cookie.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, middleware.TokenCookie+"=")
	resp.Body.Close()
}

func TestPostLifecycle(t *testing.T) {
	app, err := setupApp("postlifecycle")
	assert.NoError(t, err)

	_, tokenA := registerUser(t, app, "alice", "alice@example.com")
	_, tokenB := registerUser(t, app, "bob", "bob@example.com")

	// Alice creates a public post.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/posts", tokenA, map[string]interface{}{
		"content": "hello from alice",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var post models.Post
	decodeBody(t, resp, &post)
	assert.Equal(t, "hello from alice", post.Content)
	assert.Equal(t, "alice", post.AuthorUsername)
	assert.True(t, post.IsPublic)

	// Bob sees it in the public feed.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts", tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var feed []models.Post
	decodeBody(t, resp, &feed)
	assert.Len(t, feed, 1)
	assert.Equal(t, post.ID, feed[0].ID)

	// Bob cannot update or delete it.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/posts/"+post.ID, tokenB, map[string]interface{}{
		"content": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/posts/"+post.ID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Alice updates the content.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/posts/"+post.ID, tokenA, map[string]interface{}{
		"content": "edited by alice",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Post
	decodeBody(t, resp, &updated)
	assert.Equal(t, "edited by alice", updated.Content)
	assert.Equal(t, "alice", updated.AuthorUsername)

	// Oversized content is a validation failure.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/posts/"+post.ID, tokenA, map[string]interface{}{
		"content": strings.Repeat("a", 5001),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed ids are rejected before any lookup; unknown valid ids are 404.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/not-a-uuid", tokenA, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/6f1f3f9a-0000-4000-8000-00000000ffff", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Alice deletes her post.
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/posts/"+post.ID, tokenA, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/"+post.ID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPrivatePostVisibility(t *testing.T) {
	app, err := setupApp("privatevisibility")
	assert.NoError(t, err)

	aliceID, tokenA := registerUser(t, app, "alice", "alice@example.com")
	_, tokenB := registerUser(t, app, "bob", "bob@example.com")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/posts", tokenA, map[string]interface{}{
		"content":   "private note",
		"is_public": false,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var private models.Post
	decodeBody(t, resp, &private)
	assert.False(t, private.IsPublic)

	// Absent from the public feed.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts", tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var feed []models.Post
	decodeBody(t, resp, &feed)
	assert.Empty(t, feed)

	// Absent from alice's profile as seen by bob, present for alice herself.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/user/"+aliceID, tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var bobView []models.Post
	decodeBody(t, resp, &bobView)
	assert.Empty(t, bobView)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/user/"+aliceID, tokenA, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var aliceView []models.Post
	decodeBody(t, resp, &aliceView)
	assert.Len(t, aliceView, 1)
	assert.Equal(t, private.ID, aliceView[0].ID)

	// Direct reads of a private post are author-only.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/"+private.ID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts/"+private.ID, tokenA, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLikesAndComments(t *testing.T) {
	app, err := setupApp("likescomments")
	assert.NoError(t, err)

	_, tokenA := registerUser(t, app, "alice", "alice@example.com")
	bobID, tokenB := registerUser(t, app, "bob", "bob@example.com")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/posts", tokenA, map[string]interface{}{
		"content": "like and comment here",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var post models.Post
	decodeBody(t, resp, &post)

	// Bob likes the post.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/posts/"+post.ID+"/like", tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var liked models.Post
	decodeBody(t, resp, &liked)
	assert.Len(t, liked.Likes, 1)
	assert.Equal(t, bobID, liked.Likes[0].UserID)

	// Liking again removes the like.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/posts/"+post.ID+"/like", tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &liked)
	assert.Empty(t, liked.Likes)

	// Empty and oversized comments fail validation.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", tokenB, map[string]string{
		"text": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", tokenB, map[string]string{
		"text": strings.Repeat("x", 1001),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Valid comments append in order.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", tokenB, map[string]string{
		"text": "first!",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", tokenA, map[string]string{
		"text": "thanks bob",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var commented models.Post
	decodeBody(t, resp, &commented)
	assert.Len(t, commented.Comments, 2)
	assert.Equal(t, "first!", commented.Comments[0].Text)
	assert.Equal(t, "bob", commented.Comments[0].AuthorUsername)
	assert.Equal(t, "thanks bob", commented.Comments[1].Text)
	assert.Equal(t, "alice", commented.Comments[1].AuthorUsername)
}

func TestPublicFeedPagination(t *testing.T) {
	app, err := setupApp("pagination")
	assert.NoError(t, err)

	_, token := registerUser(t, app, "alice", "alice@example.com")

	for i := 1; i <= 3; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/posts", token, map[string]interface{}{
			"content": fmt.Sprintf("post number %d", i),
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
		time.Sleep(time.Millisecond) // keep creation timestamps distinct
	}

	// Newest first.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/posts?limit=2", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var page []models.Post
	decodeBody(t, resp, &page)
	assert.Len(t, page, 2)
	assert.Equal(t, "post number 3", page[0].Content)
	assert.Equal(t, "post number 2", page[1].Content)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts?limit=2&offset=2", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Len(t, page, 1)
	assert.Equal(t, "post number 1", page[0].Content)

	// Out-of-range values are clamped rather than rejected.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/posts?limit=9999&offset=-1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Len(t, page, 3)
}
