package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	FrontendURL string

	// CamPay (paiement mobile money)
	CampayBaseURL       string
	CampayUsername      string
	CampayPassword      string
	CampayWebhookSecret string

	// Brevo (emails transactionnels)
	BrevoAPIKey string
	EmailFrom   string
	AdminEmail  string

	// Cloudinary (photos produits)
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func Load() *Config {
	// .env est optionnel (en production tout passe par l'environnement)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "5000"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=videgrenier port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		CampayBaseURL:       getEnv("CAMPAY_BASE_URL", "https://demo.campay.net/api"),
		CampayUsername:      getEnv("CAMPAY_USERNAME", ""),
		CampayPassword:      getEnv("CAMPAY_PASSWORD", ""),
		CampayWebhookSecret: getEnv("CAMPAY_WEBHOOK_SECRET", ""),

		BrevoAPIKey: getEnv("BREVO_API_KEY", ""),
		EmailFrom:   getEnv("EMAIL_FROM", "noreply@videgrenierkamer.com"),
		AdminEmail:  getEnv("ADMIN_EMAIL", ""),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
	}

	// Contrôles de sécurité au démarrage
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET n'est pas défini ! Obligatoire en production.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET doit faire au moins 32 caractères !")
	}
	if cfg.CampayUsername == "" || cfg.CampayPassword == "" {
		log.Println("[WARN] CAMPAY_USERNAME / CAMPAY_PASSWORD non définis, les paiements mobile money seront indisponibles.")
	}
	if cfg.BrevoAPIKey == "" {
		log.Println("[WARN] BREVO_API_KEY non défini, l'envoi d'emails échouera.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
