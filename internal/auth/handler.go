package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"videgrenier-backend/internal/config"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Mailer: contrat minimal attendu du service d'emails transactionnels.
type Mailer interface {
	SendVerificationEmail(to, token, firstName string) error
	SendWelcomeEmail(to, firstName string) error
	SendPasswordResetEmail(to, token, firstName string) error
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"userType"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newVerificationToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":            u.ID,
		"firstName":     u.FirstName,
		"lastName":      u.LastName,
		"email":         u.Email,
		"role":          u.Role,
		"emailVerified": u.EmailVerified,
	}
}

// POST /api/auth/register
func RegisterHandler(cfg *config.Config, mail Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.FirstName == "" || body.LastName == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Prénom, nom, email et mot de passe sont obligatoires")
		}

		role := models.UserRole(body.UserType)
		if role != models.RoleSeller && role != models.RoleClient {
			return fiber.NewError(fiber.StatusBadRequest, "Type de compte invalide (vendeur ou client)")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Cet email est déjà enregistré")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le mot de passe n'a pas pu être haché")
		}

		token := newVerificationToken()
		expires := time.Now().Add(24 * time.Hour)

		user := models.User{
			FirstName:                body.FirstName,
			LastName:                 body.LastName,
			Email:                    body.Email,
			PasswordHash:             string(hash),
			Role:                     role,
			EmailVerified:            false,
			VerificationToken:        &token,
			VerificationTokenExpires: &expires,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le compte n'a pas pu être créé")
		}

		// Un compte dont l'email de vérification n'est pas parti est invérifiable:
		// on préfère annuler l'inscription plutôt que laisser un compte mort.
		if err := mail.SendVerificationEmail(user.Email, token, user.FirstName); err != nil {
			log.Printf("Email de vérification en échec pour %s: %v", user.Email, err)
			database.DB.Delete(&user)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message":    "L'email de vérification n'a pas pu être envoyé. Réessayez ou contactez le support.",
				"emailError": true,
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Compte créé ! Vérifiez votre boîte mail pour activer votre compte.",
			"user":    userPayload(&user),
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email ou mot de passe incorrect")
		}

		if user.IsBlocked {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Votre compte a été bloqué. Contactez le support.",
				"blocked": true,
			})
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email ou mot de passe incorrect")
		}

		if !user.EmailVerified {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message":          "Veuillez vérifier votre email avant de vous connecter.",
				"emailNotVerified": true,
				"email":            user.Email,
			})
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le jeton n'a pas pu être généré")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userPayload(&user),
		})
	}
}

// GET /api/auth/verify-email?token=...
func VerifyEmailHandler(mail Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le jeton de vérification est obligatoire")
		}

		var user models.User
		if err := database.DB.Where("verification_token = ?", token).First(&user).Error; err != nil {
			// Jeton déjà consommé: probablement un second clic sur le lien.
			return c.JSON(fiber.Map{
				"message":         "Votre email a été vérifié ! Vous pouvez vous connecter.",
				"success":         true,
				"alreadyVerified": true,
			})
		}

		if user.EmailVerified {
			return c.JSON(fiber.Map{
				"message":         "Votre email est déjà vérifié ! Vous pouvez vous connecter.",
				"success":         true,
				"alreadyVerified": true,
			})
		}

		if user.VerificationTokenExpires != nil && user.VerificationTokenExpires.Before(time.Now()) {
			return c.JSON(fiber.Map{
				"message": "Le lien de vérification a expiré. Demandez-en un nouveau.",
				"success": true,
				"expired": true,
				"email":   user.Email,
			})
		}

		updates := map[string]interface{}{
			"email_verified":             true,
			"verification_token":         nil,
			"verification_token_expires": nil,
		}
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La vérification a échoué")
		}

		// Email de bienvenue: le compte est déjà valide, un échec ici est toléré.
		if err := mail.SendWelcomeEmail(user.Email, user.FirstName); err != nil {
			log.Printf("Email de bienvenue en échec pour %s: %v", user.Email, err)
		}

		return c.JSON(fiber.Map{
			"message": "Email vérifié avec succès ! Vous pouvez vous connecter.",
			"success": true,
			"user": fiber.Map{
				"firstName": user.FirstName,
				"email":     user.Email,
			},
		})
	}
}

// POST /api/auth/resend-verification
func ResendVerificationHandler(mail Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		var user models.User
		if err := database.DB.Where("email = ?", strings.ToLower(body.Email)).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		if user.EmailVerified {
			return fiber.NewError(fiber.StatusBadRequest, "Email déjà vérifié")
		}

		token := newVerificationToken()
		expires := time.Now().Add(24 * time.Hour)
		if err := database.DB.Model(&user).Updates(map[string]interface{}{
			"verification_token":         token,
			"verification_token_expires": expires,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le jeton n'a pas pu être renouvelé")
		}

		if err := mail.SendVerificationEmail(user.Email, token, user.FirstName); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "L'email de vérification n'a pas pu être envoyé")
		}

		return c.JSON(fiber.Map{
			"message": "Email de vérification renvoyé. Vérifiez votre boîte de réception et vos spams.",
		})
	}
}

// POST /api/auth/forgot-password
func ForgotPasswordHandler(cfg *config.Config, mail Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "L'email est obligatoire")
		}

		// Toujours la même réponse, que le compte existe ou non.
		neutral := fiber.Map{
			"message": "Si un compte existe avec cet email, un lien de réinitialisation a été envoyé.",
		}

		var user models.User
		if err := database.DB.Where("email = ?", strings.ToLower(body.Email)).First(&user).Error; err != nil {
			return c.JSON(neutral)
		}

		token, err := GenerateResetToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le jeton n'a pas pu être généré")
		}

		if err := mail.SendPasswordResetEmail(user.Email, token, user.FirstName); err != nil {
			log.Printf("Email de réinitialisation en échec pour %s: %v", user.Email, err)
		}

		return c.JSON(neutral)
	}
}

// POST /api/auth/reset-password
func ResetPasswordHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Token       string `json:"token"`
			NewPassword string `json:"newPassword"`
		}
		if err := c.BodyParser(&body); err != nil || body.Token == "" || body.NewPassword == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le jeton et le nouveau mot de passe sont obligatoires")
		}

		if len(body.NewPassword) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Le mot de passe doit faire au moins 6 caractères")
		}

		userID, err := ParseResetToken(cfg.JWTSecret, body.Token)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Lien de réinitialisation invalide ou expiré")
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le mot de passe n'a pas pu être haché")
		}

		if err := database.DB.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le mot de passe n'a pas pu être mis à jour")
		}

		return c.JSON(fiber.Map{
			"message": "Mot de passe réinitialisé. Vous pouvez vous connecter avec le nouveau.",
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user": userPayload(user)})
	}
}
