package stock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	app.Get("/api/stock", ListStocksHandler())
	return app
}

func TestListStocksFiltersByMonthAndUser(t *testing.T) {
	db := setupTestDB(t)

	mine := createTestProduct(t, db, 10, 1000) // id_user 1
	other := models.Product{UserID: 9, Name: "Autre produit", Category: "mode", Price: 500, Quantity: 3}
	require.NoError(t, db.Create(&other).Error)

	march := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	for _, rec := range []models.StockRecord{
		{Date: march, ProductID: mine.ID, OpeningQuantity: 10, CurrentQuantity: 10, StockValue: 10000, UnitPrice: 1000},
		{Date: april, ProductID: mine.ID, OpeningQuantity: 10, CurrentQuantity: 8, SoldQuantity: 2, StockValue: 8000, UnitPrice: 1000},
		{Date: march, ProductID: other.ID, OpeningQuantity: 3, CurrentQuantity: 3, StockValue: 1500, UnitPrice: 500},
	} {
		require.NoError(t, db.Create(&rec).Error)
	}

	app := newTestApp()

	// Filtre mois + utilisateur
	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/stock?month=3&year=2025&userId=%d", mine.UserID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []StockRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ProductID)
	assert.Equal(t, "Chaussures de sport", rows[0].ProductName)
	assert.Equal(t, mine.UserID, rows[0].OwnerID)

	// Sans filtre: tout le grand livre
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/stock", nil))
	require.NoError(t, err)
	rows = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Len(t, rows, 3)
}

func TestListStocksRejectsBadMonth(t *testing.T) {
	setupTestDB(t)
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/stock?month=13&year=2025", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
