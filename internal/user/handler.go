package user

import (
	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// GET /api/users?role= (admin)
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.User{})

		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}

		var users []models.User
		if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les utilisateurs n'ont pas pu être lus")
		}

		return c.JSON(users)
	}
}

// GET /api/users/:id
// Un utilisateur ne voit que sa propre fiche, l'admin voit tout le monde.
func GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		requesterID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if role != models.RoleAdmin && requesterID != uint(id) {
			return fiber.NewError(fiber.StatusForbidden, "Vous ne pouvez consulter que votre propre profil")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		return c.JSON(user)
	}
}

// PUT /api/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		requesterID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if role != models.RoleAdmin && requesterID != uint(id) {
			return fiber.NewError(fiber.StatusForbidden, "Vous ne pouvez modifier que votre propre profil")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		var body struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		updates := map[string]interface{}{}
		if body.FirstName != nil && *body.FirstName != "" {
			updates["first_name"] = *body.FirstName
		}
		if body.LastName != nil && *body.LastName != "" {
			updates["last_name"] = *body.LastName
		}

		if len(updates) > 0 {
			if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Le profil n'a pas pu être mis à jour")
			}
		}

		return c.JSON(fiber.Map{
			"message": "Profil mis à jour",
			"user":    user,
		})
	}
}

// PUT /api/users/:id/password
// Exige le mot de passe actuel, même pour sa propre fiche.
func UpdatePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		requesterID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if requesterID != uint(id) {
			return fiber.NewError(fiber.StatusForbidden, "Vous ne pouvez changer que votre propre mot de passe")
		}

		var body struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if len(body.NewPassword) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Le nouveau mot de passe doit faire au moins 6 caractères")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.CurrentPassword)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Mot de passe actuel incorrect")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le mot de passe n'a pas pu être chiffré")
		}

		if err := database.DB.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le mot de passe n'a pas pu être enregistré")
		}

		return c.JSON(fiber.Map{"message": "Mot de passe mis à jour"})
	}
}

// PUT /api/users/:id/block
// Bascule le blocage (admin). Les comptes admin ne se bloquent pas entre
// eux.
func ToggleBlockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		if user.Role == models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "Un compte administrateur ne peut pas être bloqué")
		}

		newState := !user.IsBlocked
		if err := database.DB.Model(&user).Update("is_blocked", newState).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le statut n'a pas pu être modifié")
		}

		msg := "Utilisateur débloqué"
		if newState {
			msg = "Utilisateur bloqué"
		}
		return c.JSON(fiber.Map{
			"message":    msg,
			"is_blocked": newState,
		})
	}
}

// DELETE /api/users/:id (admin)
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		requesterID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if requesterID == uint(id) {
			return fiber.NewError(fiber.StatusBadRequest, "Vous ne pouvez pas supprimer votre propre compte")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		var productsCount int64
		database.DB.Model(&models.Product{}).Where("id_user = ?", user.ID).Count(&productsCount)
		if productsCount > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message":  "Suppression impossible: ce vendeur a encore des produits au catalogue",
				"products": productsCount,
			})
		}

		if err := database.DB.Delete(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'utilisateur n'a pas pu être supprimé")
		}

		return c.JSON(fiber.Map{"message": "Utilisateur supprimé"})
	}
}
