package stock

import (
	"strconv"
	"time"

	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type StockRow struct {
	ID              uint      `json:"id_stock" gorm:"column:id_stock"`
	Date            time.Time `json:"date" gorm:"column:date"`
	ProductID       uint      `json:"id_produit" gorm:"column:id_produit"`
	ProductName     string    `json:"nom_produit" gorm:"column:nom_produit"`
	OwnerID         uint      `json:"id_user" gorm:"column:id_user"`
	OpeningQuantity int       `json:"quantite_ouverture_mois" gorm:"column:quantite_ouverture_mois"`
	SoldQuantity    int       `json:"quantite_vendu_mois" gorm:"column:quantite_vendu_mois"`
	CurrentQuantity int       `json:"stock_actuel" gorm:"column:stock_actuel"`
	SuppliedQty     int       `json:"quantite_approvisionner" gorm:"column:quantite_approvisionner"`
	StockValue      float64   `json:"valeur_stock" gorm:"column:valeur_stock"`
	UnitPrice       float64   `json:"prix_unitaire" gorm:"column:prix_unitaire"`
}

// GET /api/stock?month=&year=&userId=
func ListStocksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.
			Table("stock_records").
			Select("stock_records.*, products.nom_produit, products.id_user").
			Joins("JOIN products ON products.id_produit = stock_records.id_produit")

		monthStr := c.Query("month")
		yearStr := c.Query("year")
		if monthStr != "" && yearStr != "" {
			month, errM := strconv.Atoi(monthStr)
			year, errY := strconv.Atoi(yearStr)
			if errM != nil || errY != nil || month < 1 || month > 12 {
				return fiber.NewError(fiber.StatusBadRequest, "month et year doivent être numériques (mois entre 1 et 12)")
			}
			start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 1, 0)
			q = q.Where("stock_records.date >= ? AND stock_records.date < ?", start, end)
		}

		if userID := c.Query("userId"); userID != "" {
			q = q.Where("products.id_user = ?", userID)
		}

		var rows []StockRow
		if err := q.Order("stock_records.date DESC, products.nom_produit ASC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Les lignes de stock n'ont pas pu être lues")
		}

		return c.JSON(rows)
	}
}

type CreateStockRequest struct {
	Date            string  `json:"date"` // "2025-01-01"
	ProductID       uint    `json:"id_produit"`
	OpeningQuantity int     `json:"quantite_ouverture_mois"`
	SoldQuantity    int     `json:"quantite_vendu_mois"`
	CurrentQuantity int     `json:"stock_actuel"`
	SuppliedQty     int     `json:"quantite_approvisionner"`
	UnitPrice       float64 `json:"prix_unitaire"`
}

// POST /api/stock
// Maintenance (admin): création manuelle d'une ligne.
func CreateStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id_produit est obligatoire")
		}

		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Le format de date attendu est 'YYYY-MM-DD'")
		}

		var product models.Product
		if err := database.DB.First(&product, body.ProductID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		rec := models.StockRecord{
			Date:            MonthStart(d),
			ProductID:       body.ProductID,
			OpeningQuantity: body.OpeningQuantity,
			SoldQuantity:    body.SoldQuantity,
			CurrentQuantity: body.CurrentQuantity,
			SuppliedQty:     body.SuppliedQty,
			StockValue:      float64(body.CurrentQuantity) * body.UnitPrice,
			UnitPrice:       body.UnitPrice,
		}

		if err := database.DB.Create(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Une ligne de stock existe déjà pour ce produit et ce mois")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Ligne de stock créée",
			"stock":   rec,
		})
	}
}

// PUT /api/stock/:id
// Corrige le stock actuel et le prix unitaire; la valorisation est
// toujours recalculée.
func UpdateStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body struct {
			CurrentQuantity int     `json:"stock_actuel"`
			UnitPrice       float64 `json:"prix_unitaire"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		var rec models.StockRecord
		if err := database.DB.First(&rec, "id_stock = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ligne de stock introuvable")
		}

		rec.CurrentQuantity = body.CurrentQuantity
		rec.UnitPrice = body.UnitPrice
		rec.StockValue = float64(body.CurrentQuantity) * body.UnitPrice

		if err := database.DB.Model(&rec).Updates(map[string]interface{}{
			"stock_actuel":  rec.CurrentQuantity,
			"prix_unitaire": rec.UnitPrice,
			"valeur_stock":  rec.StockValue,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être mise à jour")
		}

		return c.JSON(fiber.Map{
			"message": "Ligne de stock mise à jour",
			"stock":   rec,
		})
	}
}

// DELETE /api/stock/:id
func DeleteStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var rec models.StockRecord
		if err := database.DB.First(&rec, "id_stock = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ligne de stock introuvable")
		}

		if err := database.DB.Delete(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "La ligne de stock n'a pas pu être supprimée")
		}

		return c.JSON(fiber.Map{"message": "Ligne de stock supprimée"})
	}
}
