package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"videgrenier-backend/internal/config"
	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeMailer struct {
	failVerification bool
	verificationSent int
	welcomeSent      int
	resetSent        int
	lastToken        string
}

func (m *fakeMailer) SendVerificationEmail(to, token, firstName string) error {
	if m.failVerification {
		return errors.New("smtp indisponible")
	}
	m.verificationSent++
	m.lastToken = token
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(to, firstName string) error {
	m.welcomeSent++
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(to, token, firstName string) error {
	m.resetSent++
	m.lastToken = token
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	database.Migrate(db)
	database.DB = db
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "une-clef-de-test-suffisamment-longue-0123",
		FrontendURL: "http://localhost:5173",
	}
}

func newTestApp(cfg *config.Config, mail Mailer) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	app.Post("/api/auth/register", RegisterHandler(cfg, mail))
	app.Post("/api/auth/login", LoginHandler(cfg))
	app.Get("/api/auth/verify-email", VerifyEmailHandler(mail))
	app.Post("/api/auth/forgot-password", ForgotPasswordHandler(cfg, mail))
	app.Post("/api/auth/reset-password", ResetPasswordHandler(cfg))
	return app
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func seedVerifiedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := models.User{
		FirstName:     "Marie",
		LastName:      "Ngo",
		Email:         email,
		PasswordHash:  string(hash),
		Role:          models.RoleSeller,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestRegisterThenVerifyThenLogin(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{}
	app := newTestApp(testConfig(), mail)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", RegisterRequest{
		FirstName: "Marie",
		LastName:  "Ngo",
		Email:     "Marie@Example.com",
		Password:  "motdepasse",
		UserType:  "vendeur",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, mail.verificationSent)

	// L'email est normalisé en minuscules
	var user models.User
	require.NoError(t, db.Where("email = ?", "marie@example.com").First(&user).Error)
	assert.False(t, user.EmailVerified)

	// Connexion refusée avant vérification
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "marie@example.com", Password: "motdepasse",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Vérification par le jeton reçu
	resp, err = app.Test(httptest.NewRequest(http.MethodGet,
		"/api/auth/verify-email?token="+mail.lastToken, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, mail.welcomeSent)

	// Connexion acceptée après vérification
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "marie@example.com", Password: "motdepasse",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["token"])
}

func TestRegisterRollsBackWhenEmailFails(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{failVerification: true}
	app := newTestApp(testConfig(), mail)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", RegisterRequest{
		FirstName: "Marie",
		LastName:  "Ngo",
		Email:     "marie@example.com",
		Password:  "motdepasse",
		UserType:  "client",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["emailError"])

	// Le compte invérifiable ne doit pas rester en base
	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	setupTestDB(t)
	app := newTestApp(testConfig(), &fakeMailer{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", RegisterRequest{
		FirstName: "Eve",
		LastName:  "Admin",
		Email:     "eve@example.com",
		Password:  "motdepasse",
		UserType:  "admin",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLoginBlockedAccount(t *testing.T) {
	db := setupTestDB(t)
	user := seedVerifiedUser(t, db, "marie@example.com", "motdepasse")
	require.NoError(t, db.Model(user).Update("is_blocked", true).Error)

	app := newTestApp(testConfig(), &fakeMailer{})
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "marie@example.com", Password: "motdepasse",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["blocked"])
}

func TestForgotPasswordDoesNotLeakAccounts(t *testing.T) {
	db := setupTestDB(t)
	seedVerifiedUser(t, db, "marie@example.com", "motdepasse")

	mail := &fakeMailer{}
	app := newTestApp(testConfig(), mail)

	// Compte existant: email envoyé
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/forgot-password",
		fiber.Map{"email": "marie@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, mail.resetSent)

	// Compte inconnu: même réponse, pas d'email
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/forgot-password",
		fiber.Map{"email": "inconnu@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, mail.resetSent)
}

func TestResetPasswordWithToken(t *testing.T) {
	db := setupTestDB(t)
	seedVerifiedUser(t, db, "marie@example.com", "ancien-mdp")

	mail := &fakeMailer{}
	cfg := testConfig()
	app := newTestApp(cfg, mail)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/forgot-password",
		fiber.Map{"email": "marie@example.com"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotEmpty(t, mail.lastToken)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/reset-password",
		fiber.Map{"token": mail.lastToken, "newPassword": "nouveau-mdp"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// L'ancien mot de passe ne passe plus, le nouveau oui
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "marie@example.com", Password: "ancien-mdp",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "marie@example.com", Password: "nouveau-mdp",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Un jeton ordinaire ne doit pas réinitialiser un mot de passe
	var user models.User
	require.NoError(t, db.Where("email = ?", "marie@example.com").First(&user).Error)
	sessionToken, err := GenerateToken(cfg.JWTSecret, &user)
	require.NoError(t, err)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/auth/reset-password",
		fiber.Map{"token": sessionToken, "newPassword": "encore-un-autre"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	db := setupTestDB(t)

	token := "jeton-expire"
	past := time.Now().Add(-time.Hour)
	user := models.User{
		FirstName:                "Marie",
		LastName:                 "Ngo",
		Email:                    "marie@example.com",
		PasswordHash:             "x",
		Role:                     models.RoleClient,
		VerificationToken:        &token,
		VerificationTokenExpires: &past,
	}
	require.NoError(t, db.Create(&user).Error)

	app := newTestApp(testConfig(), &fakeMailer{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/auth/verify-email?token=jeton-expire", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["expired"])

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.EmailVerified)
}
