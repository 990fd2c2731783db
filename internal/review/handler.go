package review

import (
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

// GET /api/reviews?productId=&status=
func ListReviewsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Review{})

		if productID := c.Query("productId"); productID != "" {
			q = q.Where("id_produit = ?", productID)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var reviews []models.Review
		if err := q.Order("review_date DESC").Find(&reviews).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les avis n'ont pas pu être lus")
		}

		return c.JSON(reviews)
	}
}

type CreateReviewRequest struct {
	ProductID     uint   `json:"id_produit" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	Rating        int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title         string `json:"title"`
	Comment       string `json:"comment"`
}

// POST /api/reviews
// Un seul avis par (produit, email client). L'avis naît en attente de
// modération; "verified" est posé si l'email correspond à un achat.
func CreateReviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateReviewRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id_produit, customer_name, un email valide et une note de 1 à 5 sont obligatoires")
		}

		var product models.Product
		if err := database.DB.First(&product, body.ProductID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		var existing models.Review
		err := database.DB.
			Where("id_produit = ? AND customer_email = ?", body.ProductID, body.CustomerEmail).
			First(&existing).Error
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "Vous avez déjà laissé un avis sur ce produit")
		} else if err != gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusInternalServerError, "Les avis existants n'ont pas pu être vérifiés")
		}

		var purchases int64
		database.DB.Model(&models.Sale{}).
			Where("id_produit = ? AND buyer_email = ?", body.ProductID, body.CustomerEmail).
			Count(&purchases)

		review := models.Review{
			ProductID:     body.ProductID,
			CustomerName:  body.CustomerName,
			CustomerEmail: body.CustomerEmail,
			Rating:        body.Rating,
			Title:         body.Title,
			Comment:       body.Comment,
			Status:        models.ReviewPending,
			Verified:      purchases > 0,
		}
		if err := database.DB.Create(&review).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'avis n'a pas pu être enregistré")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Avis enregistré, en attente de modération",
			"review":  review,
		})
	}
}

// GET /api/reviews/stats?productId=
func ReviewStatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID := c.Query("productId")
		if productID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "productId est obligatoire")
		}

		var stats struct {
			Total   int64   `json:"total"`
			Average float64 `json:"average"`
		}
		q := database.DB.Model(&models.Review{}).
			Where("id_produit = ? AND status = ?", productID, models.ReviewApproved)
		if err := q.Count(&stats.Total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les statistiques n'ont pas pu être calculées")
		}
		if stats.Total > 0 {
			row := database.DB.Model(&models.Review{}).
				Where("id_produit = ? AND status = ?", productID, models.ReviewApproved).
				Select("AVG(rating)").Row()
			if err := row.Scan(&stats.Average); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Les statistiques n'ont pas pu être calculées")
			}
		}

		var byRating []struct {
			Rating int   `json:"rating"`
			Count  int64 `json:"count"`
		}
		if err := database.DB.Model(&models.Review{}).
			Where("id_produit = ? AND status = ?", productID, models.ReviewApproved).
			Select("rating, COUNT(*) AS count").
			Group("rating").
			Scan(&byRating).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les statistiques n'ont pas pu être calculées")
		}

		return c.JSON(fiber.Map{
			"total":     stats.Total,
			"average":   stats.Average,
			"by_rating": byRating,
		})
	}
}

// PUT /api/reviews/:id/helpful
func MarkHelpfulHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var review models.Review
		if err := database.DB.First(&review, "id_review = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Avis introuvable")
		}

		if err := database.DB.Model(&review).
			Update("helpful", gorm.Expr("helpful + 1")).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le compteur n'a pas pu être incrémenté")
		}

		review.Helpful++
		return c.JSON(fiber.Map{
			"message": "Merci pour votre retour",
			"helpful": review.Helpful,
		})
	}
}

// PUT /api/reviews/:id/status
// Modération (admin).
func UpdateReviewStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body struct {
			Status models.ReviewStatus `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		switch body.Status {
		case models.ReviewPending, models.ReviewApproved, models.ReviewRejected:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Statut invalide: pending, approved ou rejected attendu")
		}

		var review models.Review
		if err := database.DB.First(&review, "id_review = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Avis introuvable")
		}

		if err := database.DB.Model(&review).Update("status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le statut n'a pas pu être mis à jour")
		}

		review.Status = body.Status
		return c.JSON(fiber.Map{
			"message": "Statut de l'avis mis à jour",
			"review":  review,
		})
	}
}

// DELETE /api/reviews/:id (admin)
func DeleteReviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var review models.Review
		if err := database.DB.First(&review, "id_review = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Avis introuvable")
		}

		if err := database.DB.Delete(&review).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'avis n'a pas pu être supprimé")
		}

		return c.JSON(fiber.Map{"message": "Avis supprimé"})
	}
}
