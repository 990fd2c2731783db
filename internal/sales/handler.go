package sales

import (
	"fmt"
	"strings"
	"time"

	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"
	"videgrenier-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRow struct {
	models.Sale
	ProductName  string `json:"nom_produit" gorm:"column:nom_produit"`
	ProductPhoto string `json:"photo" gorm:"column:photo"`
	SellerName   string `json:"seller_name" gorm:"column:seller_name"`
}

// reasonForRejection classe les refus métier rapportés article par article.
func reasonForRejection(e *fiber.Error) string {
	if e.Code == fiber.StatusNotFound {
		return apperr.ReasonNotFound
	}
	return apperr.ReasonValidation
}

// newOrderID fabrique une référence de commande lisible et unique.
func newOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// GET /api/sales?sellerId=
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.
			Table("sales").
			Select("sales.*, products.nom_produit, products.photo, users.first_name || ' ' || users.last_name AS seller_name").
			Joins("LEFT JOIN products ON products.id_produit = sales.id_produit").
			Joins("LEFT JOIN users ON users.id = sales.id_seller")

		if sellerID := c.Query("sellerId"); sellerID != "" {
			q = q.Where("sales.id_seller = ?", sellerID)
		}

		var rows []SaleRow
		if err := q.Order("sales.sale_date DESC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les ventes n'ont pas pu être lues")
		}

		return c.JSON(rows)
	}
}

// GET /api/sales/:id
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var row SaleRow
		err := database.DB.
			Table("sales").
			Select("sales.*, products.nom_produit, products.photo, users.first_name || ' ' || users.last_name AS seller_name").
			Joins("LEFT JOIN products ON products.id_produit = sales.id_produit").
			Joins("LEFT JOIN users ON users.id = sales.id_seller").
			Where("sales.id_sale = ?", id).
			First(&row).Error
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
		}

		return c.JSON(row)
	}
}

type SaleItemRequest struct {
	ProductID     uint   `json:"id_produit"`
	Quantity      int    `json:"quantity"`
	BuyerName     string `json:"buyer_name"`
	BuyerEmail    string `json:"buyer_email"`
	PaymentMethod string `json:"payment_method"`
}

// createSaleInTx exécute une vente complète à l'intérieur d'une transaction:
// verrou sur le produit, contrôle du stock, insertion de la vente, décrément
// du catalogue et imputation sur la ligne de stock du mois.
func createSaleInTx(tx *gorm.DB, buyerID uint, item SaleItemRequest) (*models.Sale, error) {
	if item.ProductID == 0 || item.Quantity <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "id_produit et une quantité positive sont obligatoires")
	}

	var product models.Product
	if err := database.LockForUpdate(tx).First(&product, item.ProductID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}
		return nil, err
	}

	if product.Quantity < item.Quantity {
		return nil, apperr.New(fiber.StatusBadRequest, apperr.ReasonInsufficientStock,
			fmt.Sprintf("Stock insuffisant pour '%s': %d disponible(s)", product.Name, product.Quantity)).
			With("available", product.Quantity).
			With("requested", item.Quantity)
	}

	paymentMethod := item.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	sale := models.Sale{
		OrderID:       newOrderID(),
		ProductID:     product.ID,
		SellerID:      product.UserID,
		BuyerID:       buyerID,
		BuyerName:     item.BuyerName,
		BuyerEmail:    item.BuyerEmail,
		Quantity:      item.Quantity,
		UnitPrice:     product.Price,
		TotalAmount:   float64(item.Quantity) * product.Price,
		Status:        models.SaleCompleted,
		PaymentMethod: paymentMethod,
	}
	if err := tx.Create(&sale).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&product).Update("quantite", gorm.Expr("quantite - ?", item.Quantity)).Error; err != nil {
		return nil, err
	}

	rec, err := stock.CurrentMonthRecord(tx, &product)
	if err != nil {
		return nil, err
	}
	if err := stock.ApplySale(tx, rec, item.Quantity, product.Price); err != nil {
		return nil, err
	}

	return &sale, nil
}

// POST /api/sales
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SaleItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		buyerID, _ := c.Locals(auth.CtxUserIDKey).(uint)

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		sale, err := createSaleInTx(tx, buyerID, body)
		if err != nil {
			tx.Rollback()
			switch err.(type) {
			case *apperr.Error, *fiber.Error:
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "La vente n'a pas pu être enregistrée")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La vente n'a pas pu être validée")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Vente enregistrée",
			"sale":    sale,
		})
	}
}

type BulkSalesRequest struct {
	Items []SaleItemRequest `json:"items"`
}

type BulkSaleError struct {
	ProductID uint   `json:"id_produit"`
	Error     string `json:"error"`
	Reason    string `json:"reason"`
}

// POST /api/sales/bulk
// Panier: une seule transaction, les articles en échec sont rapportés
// individuellement; si aucun ne passe, tout est annulé.
func CreateBulkSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkSalesRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le panier est vide")
		}

		buyerID, _ := c.Locals(auth.CtxUserIDKey).(uint)

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		var created []models.Sale
		var failures []BulkSaleError

		for _, item := range body.Items {
			sale, err := createSaleInTx(tx, buyerID, item)
			if err != nil {
				var failure BulkSaleError
				switch e := err.(type) {
				case *apperr.Error:
					failure = BulkSaleError{ProductID: item.ProductID, Error: e.Message, Reason: e.Reason}
				case *fiber.Error:
					failure = BulkSaleError{ProductID: item.ProductID, Error: e.Message, Reason: reasonForRejection(e)}
				default:
					// Une erreur SQL laisse la transaction inutilisable.
					tx.Rollback()
					return fiber.NewError(fiber.StatusInternalServerError, "Le panier n'a pas pu être traité")
				}
				failures = append(failures, failure)
				continue
			}
			created = append(created, *sale)
		}

		if len(created) == 0 {
			tx.Rollback()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Toutes les ventes ont échoué",
				"reason":  apperr.ReasonPartialFailure,
				"errors":  failures,
			})
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le panier n'a pas pu être validé")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": fmt.Sprintf("%d vente(s) enregistrée(s)", len(created)),
			"sales":   created,
			"errors":  failures,
		})
	}
}

// PUT /api/sales/:id/status
func UpdateSaleStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body struct {
			Status models.SaleStatus `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		switch body.Status {
		case models.SaleCompleted, models.SalePending, models.SaleRefunded:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Statut invalide: completed, pending ou refunded attendu")
		}

		var sale models.Sale
		if err := database.DB.First(&sale, "id_sale = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
		}

		if err := database.DB.Model(&sale).Update("status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Le statut n'a pas pu être mis à jour")
		}

		sale.Status = body.Status
		return c.JSON(fiber.Map{
			"message": "Statut mis à jour",
			"sale":    sale,
		})
	}
}

// DELETE /api/sales/:id
// Annulation: le stock vendu retourne au catalogue et la ligne de stock du
// mois d'origine de la vente est défaite. Si le produit a disparu depuis, on
// supprime la vente seule et on le signale.
func DeleteSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sale models.Sale
		if err := database.DB.First(&sale, "id_sale = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		if role != models.RoleAdmin && sale.SellerID != userID {
			return fiber.NewError(fiber.StatusForbidden, "Seul l'administrateur ou le vendeur concerné peut annuler cette vente")
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La transaction n'a pas pu démarrer")
		}

		var product models.Product
		err := database.LockForUpdate(tx).First(&product, sale.ProductID).Error
		if err == gorm.ErrRecordNotFound {
			// Le produit a été supprimé: rien à restaurer, on purge la vente.
			if err := tx.Delete(&sale).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "La vente n'a pas pu être supprimée")
			}
			if err := tx.Commit().Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "La suppression n'a pas pu être validée")
			}
			return c.JSON(fiber.Map{
				"message": "Vente supprimée. Le produit n'existe plus, le stock n'a pas été restauré.",
				"warning": "PRODUCT_NOT_FOUND",
			})
		} else if err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le produit n'a pas pu être lu")
		}

		if err := tx.Model(&product).Update("quantite", gorm.Expr("quantite + ?", sale.Quantity)).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Le stock n'a pas pu être restauré")
		}

		warning := ""
		rec, err := stock.RecordForMonth(tx, sale.ProductID, sale.SaleDate)
		if err == gorm.ErrRecordNotFound {
			warning = "STOCK_RECORD_NOT_FOUND"
		} else if err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être lue")
		} else if err := stock.RevertSale(tx, rec, sale.Quantity, sale.UnitPrice); err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être corrigée")
		}

		if err := tx.Delete(&sale).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "La vente n'a pas pu être supprimée")
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "L'annulation n'a pas pu être validée")
		}

		resp := fiber.Map{
			"message":           "Vente annulée, stock restauré",
			"restored_quantity": sale.Quantity,
			"product_name":      product.Name,
		}
		if warning != "" {
			resp["warning"] = warning
		}
		return c.JSON(resp)
	}
}
