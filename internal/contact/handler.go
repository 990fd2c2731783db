package contact

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Notifier: emails déclenchés par le formulaire de contact.
type Notifier interface {
	SendContactNotification(name, email, subject, message string) error
	SendContactConfirmation(to, name string) error
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required,min=10"`
}

// POST /api/contact
// La notification à l'administrateur est la raison d'être de l'opération:
// son échec fait échouer la requête. L'accusé de réception au visiteur est
// de la courtoisie, son échec est seulement journalisé.
func SendMessageHandler(mail Notifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ContactRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "name, un email valide, subject et un message d'au moins 10 caractères sont obligatoires")
		}

		if err := mail.SendContactNotification(body.Name, body.Email, body.Subject, body.Message); err != nil {
			log.Printf("[ERROR] Notification de contact non envoyée: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Votre message n'a pas pu être transmis, veuillez réessayer")
		}

		if err := mail.SendContactConfirmation(body.Email, body.Name); err != nil {
			log.Printf("[WARN] Accusé de réception non envoyé à %s: %v", body.Email, err)
		}

		return c.JSON(fiber.Map{"message": "Message envoyé, nous vous répondrons rapidement"})
	}
}
