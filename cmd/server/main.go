package main

import (
	"log"
	"strings"

	"videgrenier-backend/internal/apperr"
	"videgrenier-backend/internal/auth"
	"videgrenier-backend/internal/catalog"
	"videgrenier-backend/internal/config"
	"videgrenier-backend/internal/contact"
	"videgrenier-backend/internal/database"
	"videgrenier-backend/internal/mailer"
	"videgrenier-backend/internal/models"
	"videgrenier-backend/internal/newsletter"
	"videgrenier-backend/internal/payment"
	"videgrenier-backend/internal/review"
	"videgrenier-backend/internal/sales"
	"videgrenier-backend/internal/stock"
	"videgrenier-backend/internal/supply"
	"videgrenier-backend/internal/upload"
	"videgrenier-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	mail := mailer.New(cfg)
	campay := payment.NewCampayClient(cfg)
	cloudinary := upload.NewCloudinary(cfg)

	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: apperr.Handler,
	})

	app.Use(logger.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Authentification (public)
	api.Post("/auth/register", auth.RegisterHandler(cfg, mail))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Get("/auth/verify-email", auth.VerifyEmailHandler(mail))
	api.Post("/auth/resend-verification", auth.ResendVerificationHandler(mail))
	api.Post("/auth/forgot-password", auth.ForgotPasswordHandler(cfg, mail))
	api.Post("/auth/reset-password", auth.ResetPasswordHandler(cfg))

	// Vitrine publique
	api.Get("/products", catalog.ListProductsHandler())
	api.Get("/products/:id", catalog.GetProductHandler())
	api.Get("/reviews", review.ListReviewsHandler())
	api.Post("/reviews", review.CreateReviewHandler())
	api.Get("/reviews/stats", review.ReviewStatsHandler())
	api.Put("/reviews/:id/helpful", review.MarkHelpfulHandler())
	api.Post("/newsletters/subscribe", newsletter.SubscribeHandler())
	api.Post("/contact", contact.SendMessageHandler(mail))

	// Webhook CamPay: authentifié par signature, pas par jeton
	api.Post("/payment/webhook", payment.WebhookHandler(campay))

	// Routes authentifiées
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	protected.Use(auth.CheckBlocked())

	protected.Get("/auth/me", auth.MeHandler())

	// Catalogue
	protected.Post("/products", catalog.CreateProductHandler())
	protected.Put("/products/:id", catalog.UpdateProductHandler())
	protected.Delete("/products/:id", catalog.DeleteProductHandler())

	// Ventes
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Get("/sales/:id", sales.GetSaleHandler())
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Post("/sales/bulk", sales.CreateBulkSalesHandler())
	protected.Put("/sales/:id/status", auth.RequireRole(models.RoleAdmin, models.RoleSeller), sales.UpdateSaleStatusHandler())
	protected.Delete("/sales/:id", auth.RequireRole(models.RoleAdmin, models.RoleSeller), sales.DeleteSaleHandler())

	// Approvisionnements
	protected.Get("/supplies", supply.ListSuppliesHandler())
	protected.Post("/supplies", supply.CreateSupplyHandler())
	protected.Put("/supplies/:id", supply.UpdateSupplyHandler())
	protected.Delete("/supplies/:id", supply.DeleteSupplyHandler())
	protected.Get("/suppliers", supply.ListSuppliersHandler())

	// Grand livre de stock (maintenance manuelle réservée à l'administrateur)
	protected.Get("/stock", stock.ListStocksHandler())
	protected.Post("/stock", auth.RequireRole(models.RoleAdmin), stock.CreateStockHandler())
	protected.Put("/stock/:id", auth.RequireRole(models.RoleAdmin), stock.UpdateStockHandler())
	protected.Delete("/stock/:id", auth.RequireRole(models.RoleAdmin), stock.DeleteStockHandler())

	// Paiements mobile money
	protected.Post("/payment/initiate", payment.InitiatePaymentHandler(campay))
	protected.Get("/payment/status/:reference", payment.PaymentStatusHandler(campay))

	// Photos produits
	protected.Post("/upload", upload.UploadPhotoHandler(cloudinary))
	protected.Delete("/upload/:publicId", upload.DeletePhotoHandler(cloudinary))

	// Profil
	protected.Get("/users/:id", user.GetUserHandler())
	protected.Put("/users/:id", user.UpdateUserHandler())
	protected.Put("/users/:id/password", user.UpdatePasswordHandler())

	// Administration
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Get("/users", user.ListUsersHandler())
	adminRoutes.Put("/users/:id/block", user.ToggleBlockHandler())
	adminRoutes.Delete("/users/:id", user.DeleteUserHandler())

	adminRoutes.Put("/reviews/:id/status", review.UpdateReviewStatusHandler())
	adminRoutes.Delete("/reviews/:id", review.DeleteReviewHandler())

	adminRoutes.Get("/newsletters", newsletter.ListSubscribersHandler())
	adminRoutes.Get("/newsletters/stats", newsletter.StatsHandler())
	adminRoutes.Delete("/newsletters/:id", newsletter.UnsubscribeHandler())
	adminRoutes.Put("/newsletters/:id/reactivate", newsletter.ReactivateHandler())

	log.Println("Serveur démarré sur le port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
