package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"videgrenier-backend/internal/config"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Service envoie les emails transactionnels via l'API Brevo.
type Service struct {
	apiKey      string
	from        string
	adminEmail  string
	frontendURL string
	client      *http.Client
}

func New(cfg *config.Config) *Service {
	return &Service{
		apiKey:      cfg.BrevoAPIKey,
		from:        cfg.EmailFrom,
		adminEmail:  cfg.AdminEmail,
		frontendURL: cfg.FrontendURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoMessage struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (s *Service) send(to, toName, subject, html string) error {
	if s.apiKey == "" {
		return fmt.Errorf("BREVO_API_KEY non configuré")
	}

	msg := brevoMessage{
		Sender:      brevoAddress{Email: s.from, Name: "Vide Grenier Kamer"},
		To:          []brevoAddress{{Email: to, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, brevoEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("envoi Brevo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("Brevo a répondu %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *Service) SendVerificationEmail(to, token, firstName string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
	html := fmt.Sprintf(`
<h2>Bienvenue sur Vide Grenier Kamer, %s !</h2>
<p>Merci de votre inscription. Cliquez sur le lien ci-dessous pour vérifier votre adresse email :</p>
<p><a href="%s">Vérifier mon email</a></p>
<p>Ce lien expire dans 24 heures.</p>
<p>Si vous n'êtes pas à l'origine de cette inscription, vous pouvez ignorer ce message.</p>`,
		firstName, link)
	return s.send(to, firstName, "Vérifiez votre adresse email", html)
}

func (s *Service) SendWelcomeEmail(to, firstName string) error {
	html := fmt.Sprintf(`
<h2>Bienvenue %s !</h2>
<p>Votre adresse email est vérifiée, votre compte Vide Grenier Kamer est prêt.</p>
<p><a href="%s">Accéder à la plateforme</a></p>`,
		firstName, s.frontendURL)
	return s.send(to, firstName, "Bienvenue sur Vide Grenier Kamer", html)
}

func (s *Service) SendPasswordResetEmail(to, token, firstName string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	html := fmt.Sprintf(`
<h2>Réinitialisation de mot de passe</h2>
<p>Bonjour %s,</p>
<p>Une réinitialisation de mot de passe a été demandée pour votre compte. Cliquez sur le lien ci-dessous :</p>
<p><a href="%s">Réinitialiser mon mot de passe</a></p>
<p>Ce lien expire dans 1 heure. Si vous n'avez rien demandé, ignorez ce message.</p>`,
		firstName, link)
	return s.send(to, firstName, "Réinitialisation de votre mot de passe", html)
}

// SendContactNotification prévient l'administrateur d'un nouveau message du
// formulaire de contact.
func (s *Service) SendContactNotification(name, email, subject, message string) error {
	if s.adminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL non configuré")
	}
	html := fmt.Sprintf(`
<h2>Nouveau message de contact</h2>
<p><strong>De :</strong> %s (%s)</p>
<p><strong>Sujet :</strong> %s</p>
<p>%s</p>`,
		name, email, subject, message)
	return s.send(s.adminEmail, "Administration", fmt.Sprintf("[Contact] %s", subject), html)
}

// SendContactConfirmation accuse réception au visiteur.
func (s *Service) SendContactConfirmation(to, name string) error {
	html := fmt.Sprintf(`
<h2>Message bien reçu</h2>
<p>Bonjour %s,</p>
<p>Nous avons bien reçu votre message et nous vous répondrons dans les meilleurs délais.</p>
<p>L'équipe Vide Grenier Kamer</p>`,
		name)
	return s.send(to, name, "Nous avons bien reçu votre message", html)
}
