package catalog

import (
	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"
	"videgrenier-backend/internal/stock"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// GET /api/products?userId=&categorie=
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Product{})

		if userID := c.Query("userId"); userID != "" {
			q = q.Where("id_user = ?", userID)
		}
		if category := c.Query("categorie"); category != "" {
			q = q.Where("categorie = ?", category)
		}

		var products []models.Product
		if err := q.Order("date_creation DESC").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les produits n'ont pas pu être lus")
		}

		return c.JSON(products)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id_produit = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		return c.JSON(product)
	}
}

type CreateProductRequest struct {
	Name        string  `json:"nom_produit" validate:"required"`
	CreatorName string  `json:"nom_createur"`
	Category    string  `json:"categorie" validate:"required"`
	Price       float64 `json:"prix" validate:"required,gt=0"`
	Quantity    int     `json:"quantite" validate:"gte=0"`
	Photo       string  `json:"photo"`
	Description string  `json:"description"`
}

// POST /api/products
// La ligne de stock du mois est ouverte avec le produit: un produit neuf est
// déjà réconcilié avec son grand livre.
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "nom_produit, categorie et un prix positif sont obligatoires")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		product := models.Product{
			UserID:      userID,
			Name:        body.Name,
			CreatorName: body.CreatorName,
			Category:    body.Category,
			Price:       body.Price,
			Quantity:    body.Quantity,
			Photo:       body.Photo,
			Description: body.Description,
		}
		if err := tx.Create(&product).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être créé")
		}

		if err := stock.SeedRecord(tx, &product); err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock initiale n'a pas pu être créée")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La création n'a pas pu être validée")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Produit créé",
			"product": product,
		})
	}
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id_produit = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if role != models.RoleAdmin && product.UserID != userID {
			return fiber.NewError(fiber.StatusForbidden, "Seul l'administrateur ou le vendeur propriétaire peut modifier ce produit")
		}

		var body struct {
			Name        *string  `json:"nom_produit"`
			CreatorName *string  `json:"nom_createur"`
			Category    *string  `json:"categorie"`
			Price       *float64 `json:"prix"`
			Quantity    *int     `json:"quantite"`
			Photo       *string  `json:"photo"`
			Description *string  `json:"description"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		updates := map[string]interface{}{}
		if body.Name != nil {
			updates["nom_produit"] = *body.Name
		}
		if body.CreatorName != nil {
			updates["nom_createur"] = *body.CreatorName
		}
		if body.Category != nil {
			updates["categorie"] = *body.Category
		}
		if body.Price != nil {
			if *body.Price <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Le prix doit rester positif")
			}
			updates["prix"] = *body.Price
		}
		if body.Quantity != nil {
			if *body.Quantity < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "La quantité ne peut pas être négative")
			}
			updates["quantite"] = *body.Quantity
		}
		if body.Photo != nil {
			updates["photo"] = *body.Photo
		}
		if body.Description != nil {
			updates["description"] = *body.Description
		}

		if len(updates) == 0 {
			return c.JSON(fiber.Map{"message": "Rien à modifier", "product": product})
		}

		if err := database.DB.Model(&product).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être mis à jour")
		}

		return c.JSON(fiber.Map{
			"message": "Produit mis à jour",
			"product": product,
		})
	}
}

type dependencyItem struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// DELETE /api/products/:id
// Refuse tant qu'il reste des ventes, des approvisionnements ou des avis
// attachés au produit; l'historique comptable ne doit jamais perdre sa
// référence. Les lignes de stock, elles, suivent le produit dans sa
// suppression.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id_produit = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if role != models.RoleAdmin && product.UserID != userID {
			return fiber.NewError(fiber.StatusForbidden, "Seul l'administrateur ou le vendeur propriétaire peut supprimer ce produit")
		}

		var salesCount, suppliesCount, reviewsCount int64
		database.DB.Model(&models.Sale{}).Where("id_produit = ?", product.ID).Count(&salesCount)
		database.DB.Model(&models.Supply{}).Where("id_produit = ?", product.ID).Count(&suppliesCount)
		database.DB.Model(&models.Review{}).Where("id_produit = ?", product.ID).Count(&reviewsCount)

		var deps []dependencyItem
		if salesCount > 0 {
			deps = append(deps, dependencyItem{Type: "ventes", Count: salesCount})
		}
		if suppliesCount > 0 {
			deps = append(deps, dependencyItem{Type: "approvisionnements", Count: suppliesCount})
		}
		if reviewsCount > 0 {
			deps = append(deps, dependencyItem{Type: "avis", Count: reviewsCount})
		}
		if len(deps) > 0 {
			return apperr.New(fiber.StatusConflict, apperr.ReasonConflict,
				"Suppression impossible: des données dépendent encore de ce produit").
				With("dependencies", deps)
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		res := tx.Where("id_produit = ?", product.ID).Delete(&models.StockRecord{})
		if res.Error != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Les lignes de stock n'ont pas pu être supprimées")
		}
		deletedRecords := res.RowsAffected

		if err := tx.Delete(&product).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être supprimé")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La suppression n'a pas pu être validée")
		}

		return c.JSON(fiber.Map{
			"message":             "Produit supprimé",
			"deletedStockRecords": deletedRecords,
		})
	}
}
