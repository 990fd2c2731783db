package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Raisons machine-vérifiables portées par chaque réponse d'erreur. Le message
// est destiné à l'humain, la raison au code client.
const (
	ReasonNotFound          = "NOT_FOUND"
	ReasonConflict          = "CONFLICT"
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
	ReasonForbidden         = "FORBIDDEN"
	ReasonUnauthorized      = "UNAUTHORIZED"
	ReasonValidation        = "VALIDATION"
	ReasonPartialFailure    = "PARTIAL_FAILURE"
	ReasonUpstreamFailure   = "UPSTREAM_FAILURE"
	ReasonInternal          = "INTERNAL"
)

// Error est une erreur HTTP enrichie d'une raison et de données de contexte
// (quantité disponible, dépendances bloquantes...). L'ErrorHandler central la
// sérialise telle quelle.
type Error struct {
	Code    int
	Reason  string
	Message string
	Data    fiber.Map
}

func (e *Error) Error() string { return e.Message }

func New(code int, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// With attache une donnée de contexte à la réponse d'erreur.
func (e *Error) With(key string, value interface{}) *Error {
	if e.Data == nil {
		e.Data = fiber.Map{}
	}
	e.Data[key] = value
	return e
}

// reasonForStatus couvre les erreurs fiber nues, qui ne portent qu'un statut.
func reasonForStatus(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return ReasonNotFound
	case fiber.StatusConflict:
		return ReasonConflict
	case fiber.StatusUnauthorized:
		return ReasonUnauthorized
	case fiber.StatusForbidden:
		return ReasonForbidden
	case fiber.StatusBadRequest:
		return ReasonValidation
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable:
		return ReasonUpstreamFailure
	default:
		return ReasonInternal
	}
}

// Handler est l'ErrorHandler central de l'application: toute erreur sort en
// JSON avec un message lisible et une raison exploitable par le client.
func Handler(c *fiber.Ctx, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		payload := fiber.Map{
			"error":  appErr.Message,
			"reason": appErr.Reason,
		}
		for k, v := range appErr.Data {
			payload[k] = v
		}
		return c.Status(appErr.Code).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":  fiberErr.Message,
			"reason": reasonForStatus(fiberErr.Code),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":  err.Error(),
		"reason": ReasonInternal,
	})
}
