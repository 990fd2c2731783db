package payment

import (
	"encoding/json"
	"log"
	"strings"

	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type InitiateRequest struct {
	OrderID     string  `json:"order_id"`
	Phone       string  `json:"phone"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// POST /api/payment/initiate
// Le numéro doit être camerounais (préfixe 237) et le montant au moins
// 150 FCFA, le minimum accepté par les opérateurs.
func InitiatePaymentHandler(campay *CampayClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body InitiateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if body.OrderID == "" || body.Phone == "" || body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "order_id, phone et un montant positif sont obligatoires")
		}
		if !strings.HasPrefix(body.Phone, "237") {
			return fiber.NewError(fiber.StatusBadRequest, "Le numéro doit commencer par l'indicatif 237")
		}
		if body.Amount < 150 {
			return fiber.NewError(fiber.StatusBadRequest, "Le montant minimum est de 150 FCFA")
		}

		description := body.Description
		if description == "" {
			description = "Achat Vide Grenier Kamer " + body.OrderID
		}

		collect, err := campay.InitiatePayment(body.Amount, body.Phone, description, body.OrderID)
		if err != nil {
			log.Printf("[ERROR] Collecte CamPay échouée pour %s: %v", body.OrderID, err)
			return fiber.NewError(fiber.StatusBadGateway, "Le paiement n'a pas pu être initié, veuillez réessayer")
		}

		return c.JSON(fiber.Map{
			"message":   "Paiement initié, confirmez sur votre téléphone",
			"reference": collect.Reference,
			"operator":  collect.Operator,
			"ussd_code": collect.Code,
		})
	}
}

// GET /api/payment/status/:reference
func PaymentStatusHandler(campay *CampayClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reference := c.Params("reference")
		if reference == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Référence manquante")
		}

		status, err := campay.CheckStatus(reference)
		if err != nil {
			log.Printf("[ERROR] Consultation CamPay échouée pour %s: %v", reference, err)
			return fiber.NewError(fiber.StatusBadGateway, "Le statut du paiement n'a pas pu être consulté")
		}

		return c.JSON(status)
	}
}

type webhookPayload struct {
	Reference         string `json:"reference"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	Operator          string `json:"operator"`
}

// POST /api/payment/webhook
// Notification asynchrone de CamPay. La signature du corps brut est
// contrôlée avant toute lecture du contenu. Un paiement SUCCESSFUL confirme
// la vente correspondante; FAILED la passe en attente.
func WebhookHandler(campay *CampayClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Body()

		if !campay.VerifyWebhookSignature(raw, c.Get("X-CamPay-Signature")) {
			log.Printf("[WARN] Webhook CamPay rejeté: signature invalide")
			return fiber.NewError(fiber.StatusUnauthorized, "Signature invalide")
		}

		var payload webhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de webhook illisible")
		}
		if payload.ExternalReference == "" {
			return fiber.NewError(fiber.StatusBadRequest, "external_reference manquant")
		}

		var status models.SaleStatus
		switch payload.Status {
		case "SUCCESSFUL":
			status = models.SaleCompleted
		case "FAILED":
			status = models.SalePending
		default:
			// PENDING et les statuts intermédiaires: rien à changer.
			return c.JSON(fiber.Map{"message": "Notification reçue"})
		}

		res := database.DB.Model(&models.Sale{}).
			Where("order_id = ?", payload.ExternalReference).
			Update("status", status)
		if res.Error != nil {
			log.Printf("[ERROR] Mise à jour de la vente %s échouée: %v", payload.ExternalReference, res.Error)
			return fiber.NewError(fiber.StatusInternalServerError, "La vente n'a pas pu être mise à jour")
		}
		if res.RowsAffected == 0 {
			log.Printf("[WARN] Webhook CamPay pour une commande inconnue: %s", payload.ExternalReference)
		}

		return c.JSON(fiber.Map{"message": "Notification traitée"})
	}
}
