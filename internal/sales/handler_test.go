package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"
	"videgrenier-backend/internal/stock"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	database.Migrate(db)
	database.DB = db
	return db
}

func newTestApp(userID uint, role models.UserRole) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		c.Locals(auth.CtxUserRoleKey, role)
		return c.Next()
	})
	app.Get("/api/sales", ListSalesHandler())
	app.Get("/api/sales/:id", GetSaleHandler())
	app.Post("/api/sales", CreateSaleHandler())
	app.Post("/api/sales/bulk", CreateBulkSalesHandler())
	app.Put("/api/sales/:id/status", UpdateSaleStatusHandler())
	app.Delete("/api/sales/:id", DeleteSaleHandler())
	return app
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func createProduct(t *testing.T, db *gorm.DB, name string, qty int, price float64) *models.Product {
	t.Helper()
	product := models.Product{
		UserID:   2,
		Name:     name,
		Category: "mode",
		Price:    price,
		Quantity: qty,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func TestCreateSaleDecrementsProductAndLedger(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Sac à main", 10, 5000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   4,
		BuyerName:  "Aminata",
		BuyerEmail: "aminata@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 6, reloaded.Quantity)

	rec, err := stock.RecordForMonth(db, product.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, rec.SoldQuantity)
	assert.Equal(t, 6, rec.CurrentQuantity)
	assert.Equal(t, float64(6)*5000, rec.StockValue)

	var sale models.Sale
	require.NoError(t, db.Where("id_produit = ?", product.ID).First(&sale).Error)
	assert.Equal(t, models.SaleCompleted, sale.Status)
	assert.Equal(t, float64(4)*5000, sale.TotalAmount)
	assert.Contains(t, sale.OrderID, "ORD-")
	assert.Equal(t, product.UserID, sale.SellerID)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Montre", 2, 15000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   5,
		BuyerName:  "Paul",
		BuyerEmail: "paul@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Le refus est exploitable par le client: raison et quantité disponible
	body := decodeBody(t, resp)
	assert.Equal(t, apperr.ReasonInsufficientStock, body["reason"])
	assert.Equal(t, float64(2), body["available"])
	assert.Equal(t, float64(5), body["requested"])

	// Rien ne doit avoir bougé
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 2, reloaded.Quantity)

	var count int64
	db.Model(&models.Sale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateSaleProductNotFound(t *testing.T) {
	setupTestDB(t)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  999,
		Quantity:   1,
		BuyerName:  "Paul",
		BuyerEmail: "paul@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestBulkSalesPartialFailure(t *testing.T) {
	db := setupTestDB(t)
	ok1 := createProduct(t, db, "Téléphone", 5, 80000)
	short := createProduct(t, db, "Casque", 1, 12000)
	ok2 := createProduct(t, db, "Clavier", 3, 9000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales/bulk", BulkSalesRequest{
		Items: []SaleItemRequest{
			{ProductID: ok1.ID, Quantity: 2, BuyerName: "Aline", BuyerEmail: "aline@example.com"},
			{ProductID: short.ID, Quantity: 4, BuyerName: "Aline", BuyerEmail: "aline@example.com"},
			{ProductID: ok2.ID, Quantity: 1, BuyerName: "Aline", BuyerEmail: "aline@example.com"},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Len(t, body["sales"], 2)
	require.Len(t, body["errors"], 1)
	failure := body["errors"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, apperr.ReasonInsufficientStock, failure["reason"])

	// Les deux ventes passées sont commises, l'article en rupture est intact
	var r1, r2, r3 models.Product
	require.NoError(t, db.First(&r1, ok1.ID).Error)
	require.NoError(t, db.First(&r2, short.ID).Error)
	require.NoError(t, db.First(&r3, ok2.ID).Error)
	assert.Equal(t, 3, r1.Quantity)
	assert.Equal(t, 1, r2.Quantity)
	assert.Equal(t, 2, r3.Quantity)
}

func TestBulkSalesAllFailedRollsBack(t *testing.T) {
	db := setupTestDB(t)
	short := createProduct(t, db, "Casque", 1, 12000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales/bulk", BulkSalesRequest{
		Items: []SaleItemRequest{
			{ProductID: short.ID, Quantity: 10, BuyerName: "Aline", BuyerEmail: "aline@example.com"},
			{ProductID: 999, Quantity: 1, BuyerName: "Aline", BuyerEmail: "aline@example.com"},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, apperr.ReasonPartialFailure, body["reason"])
	assert.Len(t, body["errors"], 2)

	var count int64
	db.Model(&models.Sale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Lampe", 8, 4000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   3,
		BuyerName:  "Omar",
		BuyerEmail: "omar@example.com",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sale models.Sale
	require.NoError(t, db.Where("id_produit = ?", product.ID).First(&sale).Error)

	// L'admin annule: quantité et grand livre reviennent à l'état d'origine
	adminApp := newTestApp(1, models.RoleAdmin)
	resp, err = adminApp.Test(jsonRequest(http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 8, reloaded.Quantity)

	rec, err := stock.RecordForMonth(db, product.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.SoldQuantity)
	assert.Equal(t, 8, rec.CurrentQuantity)
	assert.Equal(t, float64(8)*4000, rec.StockValue)

	var count int64
	db.Model(&models.Sale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteSaleForbiddenForOtherSeller(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Tapis", 5, 6000) // vendeur id 2
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   1,
		BuyerName:  "Omar",
		BuyerEmail: "omar@example.com",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sale models.Sale
	require.NoError(t, db.Where("id_produit = ?", product.ID).First(&sale).Error)

	// Un autre vendeur (id 7) ne peut pas annuler la vente du vendeur 2
	otherSeller := newTestApp(7, models.RoleSeller)
	resp, err = otherSeller.Test(jsonRequest(http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteSaleProductGone(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Chaise", 4, 7000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   2,
		BuyerName:  "Omar",
		BuyerEmail: "omar@example.com",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sale models.Sale
	require.NoError(t, db.Where("id_produit = ?", product.ID).First(&sale).Error)

	// Le produit disparaît sous la vente
	require.NoError(t, db.Where("id_produit = ?", product.ID).Delete(&models.StockRecord{}).Error)
	require.NoError(t, db.Delete(&models.Product{}, product.ID).Error)

	adminApp := newTestApp(1, models.RoleAdmin)
	resp, err = adminApp.Test(jsonRequest(http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["warning"])

	var count int64
	db.Model(&models.Sale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUpdateSaleStatusRejectsUnknownStatus(t *testing.T) {
	db := setupTestDB(t)
	product := createProduct(t, db, "Table", 4, 20000)
	app := newTestApp(3, models.RoleClient)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/sales", SaleItemRequest{
		ProductID:  product.ID,
		Quantity:   1,
		BuyerName:  "Omar",
		BuyerEmail: "omar@example.com",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sale models.Sale
	require.NoError(t, db.Where("id_produit = ?", product.ID).First(&sale).Error)

	resp, err = app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/sales/%d/status", sale.ID),
		fiber.Map{"status": "shipped"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/sales/%d/status", sale.ID),
		fiber.Map{"status": "refunded"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
