package apperr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorBody(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestHandlerSerializesReasonAndContext(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/stock", func(c *fiber.Ctx) error {
		return New(fiber.StatusBadRequest, ReasonInsufficientStock, "Stock insuffisant").
			With("available", 2)
	})

	status, body := errorBody(t, app, "/stock")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Stock insuffisant", body["error"])
	assert.Equal(t, ReasonInsufficientStock, body["reason"])
	assert.Equal(t, float64(2), body["available"])
}

func TestHandlerMapsBareFiberErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/absent", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
	})
	app.Get("/interdit", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusForbidden, "Accès refusé")
	})
	app.Get("/gateway", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "Paiement indisponible")
	})

	status, body := errorBody(t, app, "/absent")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, ReasonNotFound, body["reason"])

	status, body = errorBody(t, app, "/interdit")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, ReasonForbidden, body["reason"])

	status, body = errorBody(t, app, "/gateway")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, ReasonUpstreamFailure, body["reason"])
}

func TestHandlerDefaultsToInternal(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/panne", func(c *fiber.Ctx) error {
		return errors.New("colonne inconnue")
	})

	status, body := errorBody(t, app, "/panne")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, ReasonInternal, body["reason"])
}
