package auth

import (
	"fmt"
	"strings"

	"videgrenier-backend/internal/config"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxUserEmailKey = "user_email"
	CtxUserNameKey  = "user_name"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentification requise, veuillez vous connecter")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Le format attendu est 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("méthode de signature invalide")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Jeton invalide ou expiré, veuillez vous reconnecter")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Jeton illisible")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxUserEmailKey, claims.Email)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleVal := c.Locals(CtxUserRoleKey)
		role, ok := roleVal.(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Rôle introuvable")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Vous n'avez pas les droits pour cette opération")
	}
}

// CheckBlocked relit le statut bloqué en base à chaque requête: un compte
// bloqué après l'émission de son jeton doit être coupé immédiatement. En cas
// d'erreur de lecture on laisse passer, comme pour un simple filtre.
func CheckBlocked() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(CtxUserIDKey).(uint)
		if !ok {
			return c.Next()
		}

		var user models.User
		if err := database.DB.Select("is_blocked").First(&user, userID).Error; err != nil {
			return c.Next()
		}

		if user.IsBlocked {
			return fiber.NewError(fiber.StatusForbidden, "Votre compte a été bloqué. Contactez le support.")
		}

		return c.Next()
	}
}

// CurrentUser recharge l'utilisateur du jeton depuis la base.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Authentification requise")
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Utilisateur introuvable")
	}

	return &user, nil
}
