package routes

import (
	"renteasy/internal/adapters/http/handlers"
	"renteasy/internal/adapters/http/middleware"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. Repositories, services
// and handlers are constructed once here and shared by every route.
func Setup(app *fiber.App, db *gorm.DB, emailService services.EmailDispatcher, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	agentRepo := repositories.NewAgentProfileRepository(db)
	renterRepo := repositories.NewRenterProfileRepository(db)
	otpRepo := repositories.NewOTPRepository(db)

	// Initialize services
	referralService := services.NewReferralService(userRepo, agentRepo, renterRepo, cfg)
	otpService := services.NewOTPService(otpRepo, cfg, emailService)
	tokenService := services.NewTokenService(userRepo, agentRepo, cfg)
	registrationService := services.NewRegistrationService(
		userRepo, agentRepo, renterRepo,
		referralService, otpService, tokenService,
		emailService, cfg,
	)
	authService := services.NewAuthService(
		userRepo, agentRepo, renterRepo,
		referralService, otpService, tokenService,
		emailService, cfg,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, tokenService, cfg)
	registerHandler := handlers.NewRegisterHandler(registrationService, cfg)
	referralHandler := handlers.NewReferralHandler(authService, referralService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, registerHandler, cfg)

	referralRoutes := apiV1.Group("/referrals")
	setupReferralRoutes(referralRoutes, referralHandler, cfg)
}

// setupAuthRoutes configures authentication routes.
// StrictRateLimiter = 3 req/min/IP (OTP issue/resend, password reset)
// AuthRateLimiter   = 5 req/min/IP (login, register, verify)
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, registerHandler *handlers.RegisterHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register/renter", middleware.AuthRateLimiter(), registerHandler.RegisterRenter)
	router.Post("/register/agent", middleware.AuthRateLimiter(), registerHandler.RegisterAgent)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Email verification
	router.Post("/verify-email", middleware.AuthRateLimiter(), handler.VerifyEmail)
	router.Post("/resend-verification", middleware.StrictRateLimiter(), handler.ResendVerification)

	// Password reset
	router.Post("/password-reset/request", middleware.StrictRateLimiter(), handler.RequestPasswordReset)
	router.Post("/password-reset/verify", middleware.AuthRateLimiter(), handler.VerifyResetCode)
	router.Post("/password-reset/confirm", middleware.StrictRateLimiter(), handler.ResetPassword)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Put("/password", middleware.AuthMiddleware(cfg), handler.ChangePassword)
}

// setupReferralRoutes configures referral code routes
func setupReferralRoutes(router fiber.Router, handler *handlers.ReferralHandler, cfg *config.Config) {
	// Public: pre-registration code check
	router.Post("/validate", middleware.AuthRateLimiter(), handler.Validate)

	// Protected: referrers read their own code
	router.Get("/my-code", middleware.AuthMiddleware(cfg), middleware.ReferrerOnly(), handler.MyCode)
}
