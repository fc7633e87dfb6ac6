package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"authgate/internal/config"
	"authgate/internal/database"
	"authgate/internal/middleware"
	"authgate/internal/notify"
	"authgate/internal/ratelimit"
	"authgate/internal/repository"
	"authgate/internal/service"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	db        *pgxpool.Pool
	cache     *redis.Client
	users     *repository.UserRepository
	userAuth  *service.UserAuthService
	adminAuth *service.AdminAuthService
	adminSvc  *service.AdminService
	userSvc   *service.UserService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	tx := database.NewTransactor(db)

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	sessionRepo := repository.NewAdminSessionRepository(db)

	limiter := ratelimit.NewLimiter(cache)
	gate := ratelimit.NewOTPGate(limiter, ratelimit.OTPGateConfig{
		PerPhoneMinute: cfg.RateLimit.OTPPerPhoneMinute,
		PerPhoneHour:   cfg.RateLimit.OTPPerPhoneHour,
		PerIPDay:       cfg.RateLimit.OTPPerIPDay,
	})
	guard := ratelimit.NewLoginGuard(cache, ratelimit.LoginGuardConfig{
		MaxAttempts:   cfg.RateLimit.LoginMaxAttempts,
		BlockDuration: cfg.RateLimit.LoginBlockDuration,
	})

	notifier := notify.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.Timeout, log)

	otpSvc := service.NewOTPService(otpRepo, cfg.OTP, log)
	userAuth := service.NewUserAuthService(tx, userRepo, tokenRepo, otpSvc, gate, notifier, cfg.Security, cfg.OTP, log)
	adminAuth := service.NewAdminAuthService(tx, adminRepo, sessionRepo, guard, cfg.Security, log)
	adminSvc := service.NewAdminService(tx, adminRepo, permRepo, sessionRepo, cfg.Security.BcryptCost, log)
	userSvc := service.NewUserService(tx, userRepo, tokenRepo, log)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		db:        db,
		cache:     cache,
		users:     userRepo,
		userAuth:  userAuth,
		adminAuth: adminAuth,
		adminSvc:  adminSvc,
		userSvc:   userSvc,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/send-otp", h.SendOTP)
	auth.POST("/verify-otp", h.VerifyOTP)
	auth.POST("/refresh", h.RefreshTokens)
	auth.GET("/me", middleware.Auth(h.cfg.Security, h.users), h.Me)

	admin := v1.Group("/admin")
	admin.POST("/auth/login", h.AdminLogin)

	sessionOnly := admin.Group("", middleware.AdminAuth(h.adminAuth, h.cfg.Security.CookieName))
	sessionOnly.POST("/auth/logout", h.AdminLogout)
	sessionOnly.GET("/auth/me", h.AdminMe)

	// CSRF is checked before the permission guard on every state-changing
	// admin route; safe methods pass through it untouched.
	protected := admin.Group("",
		middleware.AdminAuth(h.adminAuth, h.cfg.Security.CookieName),
		middleware.CSRF(),
	)

	protected.GET("/permissions", middleware.RequirePermission("can_view_admins"), h.ListPermissions)

	admins := protected.Group("/admins")
	admins.GET("", middleware.RequirePermission("can_view_admins"), h.ListAdmins)
	admins.POST("", middleware.RequirePermission("can_create_admin"), h.CreateAdmin)
	admins.GET("/:id", middleware.RequirePermission("can_view_admins"), h.GetAdmin)
	admins.PATCH("/:id", middleware.RequirePermission("can_edit_admin"), h.UpdateAdmin)
	admins.PUT("/:id/permissions", middleware.RequirePermission("can_manage_permissions"), h.UpdateAdminPermissions)
	admins.DELETE("/:id", middleware.RequirePermission("can_delete_admin"), h.DeleteAdmin)

	users := protected.Group("/users")
	users.GET("", middleware.RequirePermission("can_view_users"), h.ListUsers)
	users.GET("/:id", middleware.RequirePermission("can_view_users"), h.GetUser)
	users.PATCH("/:id", middleware.RequirePermission("can_edit_user"), h.UpdateUser)
	users.POST("/:id/deactivate", middleware.RequirePermission("can_deactivate_user"), h.DeactivateUser)
	users.POST("/:id/activate", middleware.RequirePermission("can_deactivate_user"), h.ActivateUser)
	users.DELETE("/:id", middleware.RequirePermission("can_delete_user"), h.DeleteUser)
}
