package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

func testServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(
		&models.Admin{}, &models.User{}, &models.Thread{}, &models.Message{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	engine := gin.New()
	RegisterAdminRoutes(engine, db, config.JWTConfig{Secret: "admin-test-secret", Expiry: time.Hour})
	return engine, db
}

func seedAdmin(t *testing.T, db *gorm.DB, totpSecret string) *models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword("rootroot")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := &models.Admin{
		Username:   "root",
		Password:   hash,
		TOTPSecret: totpSecret,
		Active:     true,
	}
	if errCreate := db.Create(admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
	return admin
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:         username,
		Email:            username + "@example.com",
		Password:         "x",
		Plan:             models.PlanBase,
		SubscriptionTier: "BASE",
	}
	if errCreate := db.Create(user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return user
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var errMarshal error
		raw, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
	return out
}

func login(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "rootroot",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	token, _ := decodeJSON(t, w)["token"].(string)
	if token == "" {
		t.Fatal("no token in login response")
	}
	return token
}

func TestLoginAndAuthRequired(t *testing.T) {
	engine, db := testServer(t)
	seedAdmin(t, db, "")

	w := doJSON(t, engine, http.MethodGet, "/v0/admin/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", w.Code)
	}

	token := login(t, engine)
	w = doJSON(t, engine, http.MethodGet, "/v0/admin/users", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	engine, db := testServer(t)
	seedAdmin(t, db, "")

	w := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLoginDisabledAdmin(t *testing.T) {
	engine, db := testServer(t)
	admin := seedAdmin(t, db, "")
	if errUpdate := db.Model(admin).Update("active", false).Error; errUpdate != nil {
		t.Fatalf("disable admin: %v", errUpdate)
	}

	w := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "rootroot",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLoginWithTOTP(t *testing.T) {
	engine, db := testServer(t)
	secret, _, errSecret := security.GenerateTOTPSecret("edchat", "root")
	if errSecret != nil {
		t.Fatalf("generate secret: %v", errSecret)
	}
	seedAdmin(t, db, secret)

	// Password-only login is redirected to the TOTP step.
	w := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "rootroot",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	out := decodeJSON(t, w)
	if out["mfa_required"] != true {
		t.Fatalf("login response = %v", out)
	}
	if out["token"] != nil {
		t.Fatal("token issued before TOTP step")
	}

	code, errCode := totp.GenerateCode(secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = doJSON(t, engine, http.MethodPost, "/v0/admin/login/totp", "", gin.H{
		"username": "root",
		"password": "rootroot",
		"code":     code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("totp login status = %d: %s", w.Code, w.Body.String())
	}
	if decodeJSON(t, w)["token"] == "" {
		t.Fatal("no token after TOTP login")
	}

	w = doJSON(t, engine, http.MethodPost, "/v0/admin/login/totp", "", gin.H{
		"username": "root",
		"password": "rootroot",
		"code":     "000000",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad code status = %d", w.Code)
	}
}

func TestListUsersSearchAndPlanFilter(t *testing.T) {
	engine, db := testServer(t)
	seedAdmin(t, db, "")
	seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	if errUpdate := db.Model(bob).Update("plan", models.PlanPremium).Error; errUpdate != nil {
		t.Fatalf("upgrade bob: %v", errUpdate)
	}
	token := login(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/v0/admin/users?search=ALI", token, nil)
	users, _ := decodeJSON(t, w)["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("search returned %d users", len(users))
	}
	first, _ := users[0].(map[string]any)
	if first["username"] != "alice" {
		t.Fatalf("user = %v", first)
	}

	w = doJSON(t, engine, http.MethodGet, "/v0/admin/users?plan=premium", token, nil)
	users, _ = decodeJSON(t, w)["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("plan filter returned %d users", len(users))
	}
	first, _ = users[0].(map[string]any)
	if first["username"] != "bob" {
		t.Fatalf("user = %v", first)
	}
}

func TestGetUserNotFound(t *testing.T) {
	engine, db := testServer(t)
	seedAdmin(t, db, "")
	token := login(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/v0/admin/users/9999", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestThreadListingAndDetail(t *testing.T) {
	engine, db := testServer(t)
	seedAdmin(t, db, "")
	user := seedUser(t, db, "carol")
	title := "support request"
	thread := &models.Thread{UserID: user.ID, Title: &title}
	if errCreate := db.Create(thread).Error; errCreate != nil {
		t.Fatalf("seed thread: %v", errCreate)
	}
	for _, msg := range []models.Message{
		{ThreadID: thread.ID, Role: "user", Content: "hello"},
		{ThreadID: thread.ID, Role: "assistant", Content: "hi there"},
	} {
		if errCreate := db.Create(&msg).Error; errCreate != nil {
			t.Fatalf("seed message: %v", errCreate)
		}
	}
	token := login(t, engine)

	w := doJSON(t, engine, http.MethodGet, fmt.Sprintf("/v0/admin/users/%d/threads", user.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", w.Code, w.Body.String())
	}
	threads, _ := decodeJSON(t, w)["threads"].([]any)
	if len(threads) != 1 {
		t.Fatalf("listed %d threads", len(threads))
	}

	w = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/v0/admin/threads/%d", thread.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d: %s", w.Code, w.Body.String())
	}
	out := decodeJSON(t, w)
	messages, _ := out["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("detail has %d messages", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "user" {
		t.Fatalf("first message = %v", first)
	}
}
