package auth

import (
	"fmt"
	"time"

	"videgrenier-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type JWTCustomClaims struct {
	UserID        uint            `json:"id"`
	Email         string          `json:"email"`
	Role          models.UserRole `json:"role"`
	EmailVerified bool            `json:"email_verified"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, user *models.User) (string, error) {
	claims := &JWTCustomClaims{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)), // 7 jours
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

type resetClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateResetToken signe un jeton court (1h) dédié à la réinitialisation de
// mot de passe. Le champ Type évite qu'un jeton de session soit rejoué ici.
func GenerateResetToken(secret string, user *models.User) (string, error) {
	claims := &resetClaims{
		UserID: user.ID,
		Email:  user.Email,
		Type:   "password-reset",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseResetToken(secret, tokenStr string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &resetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature invalide")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("jeton invalide ou expiré")
	}

	claims, ok := token.Claims.(*resetClaims)
	if !ok || claims.Type != "password-reset" {
		return 0, fmt.Errorf("jeton de réinitialisation invalide")
	}

	return claims.UserID, nil
}
