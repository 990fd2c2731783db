package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"videgrenier-backend/internal/config"
)

// CampayClient parle à l'API CamPay (mobile money MTN/Orange au Cameroun). Le
// jeton d'accès est mis en cache jusqu'à expiration, une requête de collecte
// ne paie donc pas systématiquement l'aller-retour d'authentification.
type CampayClient struct {
	baseURL       string
	username      string
	password      string
	webhookSecret string
	client        *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewCampayClient(cfg *config.Config) *CampayClient {
	return &CampayClient{
		baseURL:       cfg.CampayBaseURL,
		username:      cfg.CampayUsername,
		password:      cfg.CampayPassword,
		webhookSecret: cfg.CampayWebhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

type campayTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (cc *CampayClient) getToken() (string, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.token != "" && time.Now().Before(cc.tokenExpiry) {
		return cc.token, nil
	}

	if cc.username == "" || cc.password == "" {
		return "", fmt.Errorf("identifiants CamPay non configurés")
	}

	payload, _ := json.Marshal(map[string]string{
		"username": cc.username,
		"password": cc.password,
	})

	resp, err := cc.client.Post(cc.baseURL+"/token/", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("authentification CamPay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("CamPay a refusé l'authentification (%d): %s", resp.StatusCode, string(body))
	}

	var tr campayTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("réponse d'authentification CamPay illisible: %w", err)
	}

	cc.token = tr.Token
	// Marge d'une minute pour ne jamais présenter un jeton sur le point d'expirer.
	cc.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)

	return cc.token, nil
}

type CollectResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Operator  string `json:"operator"`
	Code      string `json:"code"`
}

// InitiatePayment démarre une collecte mobile money. Le montant part en
// chaîne, c'est le format qu'attend l'API.
func (cc *CampayClient) InitiatePayment(amount float64, phone, description, externalRef string) (*CollectResponse, error) {
	token, err := cc.getToken()
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]string{
		"amount":             fmt.Sprintf("%.0f", amount),
		"currency":           "XAF",
		"from":               phone,
		"description":        description,
		"external_reference": externalRef,
	})

	req, err := http.NewRequest(http.MethodPost, cc.baseURL+"/collect/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collecte CamPay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("CamPay a refusé la collecte (%d): %s", resp.StatusCode, string(body))
	}

	var cr CollectResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("réponse de collecte CamPay illisible: %w", err)
	}

	return &cr, nil
}

type TransactionStatus struct {
	Reference         string `json:"reference"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Operator          string `json:"operator"`
	Code              string `json:"code"`
}

// CheckStatus interroge CamPay sur l'état d'une transaction.
func (cc *CampayClient) CheckStatus(reference string) (*TransactionStatus, error) {
	token, err := cc.getToken()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/transaction/%s/", cc.baseURL, reference), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := cc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statut CamPay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("CamPay a refusé la consultation (%d): %s", resp.StatusCode, string(body))
	}

	var ts TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("réponse de statut CamPay illisible: %w", err)
	}

	return &ts, nil
}

// VerifyWebhookSignature contrôle la signature HMAC-SHA256 du corps brut d'un
// webhook contre l'en-tête X-CamPay-Signature.
func (cc *CampayClient) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if cc.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(cc.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
