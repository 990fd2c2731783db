package supply

import (
	"time"

	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"
	"videgrenier-backend/internal/stock"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

type SupplyRow struct {
	models.Supply
	ProductName  string  `json:"nom_produit" gorm:"column:nom_produit"`
	SupplierName *string `json:"nom_fournisseur" gorm:"column:nom_fournisseur"`
}

// GET /api/supplies?userId=
func ListSuppliesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.
			Table("supplies").
			Select("supplies.*, products.nom_produit, suppliers.nom_fournisseur").
			Joins("LEFT JOIN products ON products.id_produit = supplies.id_produit").
			Joins("LEFT JOIN suppliers ON suppliers.id_fournisseur = supplies.id_fournisseur")

		if userID := c.Query("userId"); userID != "" {
			q = q.Where("supplies.id_user = ?", userID)
		}

		var rows []SupplyRow
		if err := q.Order("supplies.date_approvisionnement DESC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les approvisionnements n'ont pas pu être lus")
		}

		return c.JSON(rows)
	}
}

type CreateSupplyRequest struct {
	ProductID    uint       `json:"id_produit" validate:"required"`
	SupplierID   *uint      `json:"id_fournisseur"`
	Quantity     int        `json:"quantite" validate:"required,gt=0"`
	UnitPrice    float64    `json:"prix_unitaire" validate:"required,gt=0"`
	DeliveryDate *time.Time `json:"date_approvisionnement"`
	Notes        string     `json:"notes"`
}

// POST /api/supplies
// Effet immédiat: catalogue +quantite et imputation sur la ligne de stock du
// mois en cours. La date de livraison fournie est conservée telle quelle sur
// l'approvisionnement; absente, c'est la date du jour.
func CreateSupplyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id_produit, une quantité et un prix unitaire positifs sont obligatoires")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)

		deliveryDate := time.Now()
		if body.DeliveryDate != nil {
			deliveryDate = *body.DeliveryDate
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		var product models.Product
		if err := database.LockForUpdate(tx).First(&product, body.ProductID).Error; err != nil {
			tx.Rollback()
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être lu")
		}

		supply := models.Supply{
			ProductID:    body.ProductID,
			SupplierID:   body.SupplierID,
			UserID:       userID,
			Quantity:     body.Quantity,
			UnitPrice:    body.UnitPrice,
			TotalPrice:   float64(body.Quantity) * body.UnitPrice,
			DeliveryDate: deliveryDate,
			Status:       models.SupplyDelivered,
			Notes:        body.Notes,
		}
		if err := tx.Create(&supply).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "L'approvisionnement n'a pas pu être enregistré")
		}

		if err := tx.Model(&product).Update("quantite", gorm.Expr("quantite + ?", body.Quantity)).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le stock n'a pas pu être mis à jour")
		}

		rec, err := stock.CurrentMonthRecord(tx, &product)
		if err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être préparée")
		}
		if err := stock.ApplySupply(tx, rec, body.Quantity, product.Price); err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être mise à jour")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'approvisionnement n'a pas pu être validé")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Approvisionnement enregistré",
			"supply":  supply,
		})
	}
}

// PUT /api/supplies/:id
// Seule la différence de quantité (delta) est répercutée sur le catalogue et
// la ligne de stock.
func UpdateSupplyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body struct {
			Quantity  *int     `json:"quantite"`
			UnitPrice *float64 `json:"prix_unitaire"`
			Notes     *string  `json:"notes"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		var supply models.Supply
		if err := database.DB.First(&supply, "id_supply = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Approvisionnement introuvable")
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		if body.Quantity != nil && *body.Quantity != supply.Quantity {
			if *body.Quantity <= 0 {
				tx.Rollback()
				return fiber.NewError(fiber.StatusBadRequest, "La quantité doit rester positive")
			}

			delta := *body.Quantity - supply.Quantity

			var product models.Product
			if err := database.LockForUpdate(tx).First(&product, supply.ProductID).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
			}

			if err := tx.Model(&product).Update("quantite", gorm.Expr("quantite + ?", delta)).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "Le stock n'a pas pu être mis à jour")
			}

			rec, err := stock.CurrentMonthRecord(tx, &product)
			if err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être préparée")
			}
			if err := stock.ApplySupply(tx, rec, delta, product.Price); err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être mise à jour")
			}

			supply.Quantity = *body.Quantity
		}

		if body.UnitPrice != nil {
			if *body.UnitPrice <= 0 {
				tx.Rollback()
				return fiber.NewError(fiber.StatusBadRequest, "Le prix unitaire doit rester positif")
			}
			supply.UnitPrice = *body.UnitPrice
		}
		if body.Notes != nil {
			supply.Notes = *body.Notes
		}
		supply.TotalPrice = float64(supply.Quantity) * supply.UnitPrice

		if err := tx.Model(&supply).Updates(map[string]interface{}{
			"quantite":      supply.Quantity,
			"prix_unitaire": supply.UnitPrice,
			"prix_total":    supply.TotalPrice,
			"notes":         supply.Notes,
		}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "L'approvisionnement n'a pas pu être mis à jour")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La mise à jour n'a pas pu être validée")
		}

		return c.JSON(fiber.Map{
			"message": "Approvisionnement mis à jour",
			"supply":  supply,
		})
	}
}

// DELETE /api/supplies/:id
// Retire ce que l'approvisionnement avait apporté. Les compteurs sont
// plafonnés à zéro: la suppression ne crée jamais de stock négatif.
func DeleteSupplyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var supply models.Supply
		if err := database.DB.First(&supply, "id_supply = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Approvisionnement introuvable")
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		var product models.Product
		err := database.LockForUpdate(tx).First(&product, supply.ProductID).Error
		if err == nil {
			newQty := product.Quantity - supply.Quantity
			if newQty < 0 {
				newQty = 0
			}
			if err := tx.Model(&product).Update("quantite", newQty).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "Le stock n'a pas pu être mis à jour")
			}

			rec, recErr := stock.CurrentMonthRecord(tx, &product)
			if recErr != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être préparée")
			}
			if err := stock.ApplySupply(tx, rec, -supply.Quantity, product.Price); err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être corrigée")
			}
		} else if err != gorm.ErrRecordNotFound {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être lu")
		}

		if err := tx.Delete(&supply).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "L'approvisionnement n'a pas pu être supprimé")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La suppression n'a pas pu être validée")
		}

		return c.JSON(fiber.Map{"message": "Approvisionnement supprimé, stock corrigé"})
	}
}

// GET /api/suppliers
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var suppliers []models.Supplier
		if err := database.DB.Order("nom_fournisseur ASC").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les fournisseurs n'ont pas pu être lus")
		}
		return c.JSON(suppliers)
	}
}
