package newsletter

import (
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/newsletters/subscribe
// Réactive silencieusement un abonnement désactivé plutôt que d'échouer
// sur l'index unique.
func SubscribeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubscribeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Un email valide est obligatoire")
		}

		var existing models.NewsletterSubscriber
		err := database.DB.Where("email = ?", body.Email).First(&existing).Error
		if err == nil {
			if existing.IsActive {
				return fiber.NewError(fiber.StatusConflict, "Cet email est déjà abonné")
			}
			if err := database.DB.Model(&existing).Update("is_active", true).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "L'abonnement n'a pas pu être réactivé")
			}
			return c.JSON(fiber.Map{"message": "Abonnement réactivé"})
		} else if err != gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusInternalServerError, "Les abonnements n'ont pas pu être vérifiés")
		}

		sub := models.NewsletterSubscriber{Email: body.Email, IsActive: true}
		if err := database.DB.Create(&sub).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'abonnement n'a pas pu être enregistré")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Abonnement enregistré"})
	}
}

// GET /api/newsletters?active= (admin)
func ListSubscribersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.NewsletterSubscriber{})

		if active := c.Query("active"); active == "true" {
			q = q.Where("is_active = ?", true)
		} else if active == "false" {
			q = q.Where("is_active = ?", false)
		}

		var subs []models.NewsletterSubscriber
		if err := q.Order("subscribed_at DESC").Find(&subs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les abonnés n'ont pas pu être lus")
		}

		return c.JSON(subs)
	}
}

// GET /api/newsletters/stats (admin)
func StatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var total, active int64
		if err := database.DB.Model(&models.NewsletterSubscriber{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les statistiques n'ont pas pu être calculées")
		}
		if err := database.DB.Model(&models.NewsletterSubscriber{}).
			Where("is_active = ?", true).Count(&active).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les statistiques n'ont pas pu être calculées")
		}

		return c.JSON(fiber.Map{
			"total":    total,
			"active":   active,
			"inactive": total - active,
		})
	}
}

// DELETE /api/newsletters/:id?permanent=true
// Désinscription douce par défaut, suppression définitive sur demande
// (admin).
func UnsubscribeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sub models.NewsletterSubscriber
		if err := database.DB.First(&sub, "id_newsletter = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Abonné introuvable")
		}

		if c.Query("permanent") == "true" {
			if err := database.DB.Delete(&sub).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "L'abonné n'a pas pu être supprimé")
			}
			return c.JSON(fiber.Map{"message": "Abonné supprimé définitivement"})
		}

		if err := database.DB.Model(&sub).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'abonnement n'a pas pu être désactivé")
		}

		return c.JSON(fiber.Map{"message": "Abonnement désactivé"})
	}
}

// PUT /api/newsletters/:id/reactivate (admin)
func ReactivateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sub models.NewsletterSubscriber
		if err := database.DB.First(&sub, "id_newsletter = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Abonné introuvable")
		}

		if err := database.DB.Model(&sub).Update("is_active", true).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'abonnement n'a pas pu être réactivé")
		}

		return c.JSON(fiber.Map{"message": "Abonnement réactivé"})
	}
}
