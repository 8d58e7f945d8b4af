// Package routes defines the API routing configuration.
// It wires repositories, services, and handlers together and applies
// authentication middleware where required.
package routes

import (
	"kobo/internal/config"
	"kobo/internal/handlers"
	"kobo/internal/middleware"
	"kobo/internal/repositories"
	"kobo/internal/services/audit"
	"kobo/internal/services/auth"
	"kobo/internal/services/idempotency"
	"kobo/internal/services/ledger"
	"kobo/internal/services/paystack"
	"kobo/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Repositories
	ledgerRepo := repositories.NewLedgerRepository(db)
	userRepo := repositories.NewUserRepository(db)
	bankAccountRepo := repositories.NewBankAccountRepository(db)

	// Collaborators
	providerClient := paystack.NewClient(
		config.MustGetEnv("PAYSTACK_SECRET_KEY"),
		paystack.WithBaseURL(config.GetEnv("PAYSTACK_BASE_URL", "https://api.paystack.co")),
	)

	// Services
	guard := idempotency.NewGuard(ledgerRepo)
	authService := auth.NewService(userRepo)
	ledgerService := ledger.NewService(
		ledgerRepo,
		guard,
		repositories.CacheService,
		providerClient,
		ledger.Config{DefaultCurrency: config.GetEnv("DEFAULT_CURRENCY", "NGN")},
	)
	settlementService := settlement.NewService(
		ledgerRepo,
		userRepo,
		guard,
		repositories.CacheService,
		config.MustGetEnv("PAYSTACK_SECRET_KEY"),
	)
	auditService := audit.NewService(ledgerRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, ledgerService)
	walletHandler := handlers.NewWalletHandler(ledgerService)
	transactionHandler := handlers.NewTransactionHandler(ledgerRepo, ledgerService)
	auditHandler := handlers.NewAuditHandler(auditService, ledgerService)
	webhookHandler := handlers.NewWebhookHandler(settlementService)
	bankAccountHandler := handlers.NewBankAccountHandler(bankAccountRepo, providerClient)
	withdrawalHandler := handlers.NewWithdrawalHandler(ledgerService, bankAccountRepo)

	app.Get("/health", handlers.Health)

	// Provider callbacks are authenticated by signature, not by JWT.
	app.Post("/webhook/paystack", webhookHandler.HandlePaystack)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Get("/banks", bankAccountHandler.ListBanks)

	// Authenticated endpoints
	authed := api.Group("", middleware.Auth)

	wallets := authed.Group("/wallets")
	wallets.Post("/", walletHandler.CreateWallet)
	wallets.Get("/me", walletHandler.GetMyWallet)
	wallets.Post("/transfer", walletHandler.Transfer)
	wallets.Get("/:id", walletHandler.GetWallet)
	wallets.Post("/:id/deposit", walletHandler.Deposit)
	wallets.Post("/:id/withdraw", walletHandler.Withdraw)
	wallets.Get("/:id/transactions", transactionHandler.GetWalletTransactions)

	transactions := authed.Group("/transactions")
	transactions.Get("/my", transactionHandler.GetMyTransactions)
	transactions.Get("/statement", transactionHandler.Statement)

	authed.Post("/bank-accounts", bankAccountHandler.Link)
	authed.Get("/bank-accounts", bankAccountHandler.List)
	authed.Post("/withdrawals", withdrawalHandler.Request)

	authed.Get("/audit/wallet/:id", auditHandler.VerifyOwnWallet)

	// Admin endpoints
	admin := authed.Group("/admin", middleware.RequireAdmin)
	admin.Get("/audit/wallet/:id", auditHandler.VerifyWallet)
	admin.Get("/audit/mismatches", auditHandler.Mismatches)
	admin.Post("/audit/fix/:id", auditHandler.Repair)
}
