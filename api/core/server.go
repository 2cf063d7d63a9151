package core

import (
	"net/http"
	"time"

	"github.com/anoixa/shock-panel/api/common"
	handlerAccount "github.com/anoixa/shock-panel/api/handler/account"
	handlerAuth "github.com/anoixa/shock-panel/api/handler/auth"
	handlerShockers "github.com/anoixa/shock-panel/api/handler/shockers"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/anoixa/shock-panel/config"
	"github.com/anoixa/shock-panel/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// 启动gin
func setupRouter(container *app.Container) (*gin.Engine, func()) {
	cfg := container.Config
	router := gin.New()

	// 全局中间件
	// 仅在开发版本时启用 gin 日志
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 速率限制
	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	router.GET("/health", func(context *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks": gin.H{
				"database": checkDatabaseHealth(container),
				"cache":    checkCacheHealth(container),
			},
		}
		httpStatus := http.StatusOK
		for _, checkResult := range health["checks"].(gin.H) {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, health)
	})
	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	// 创建处理器（依赖注入）
	authHandler := handlerAuth.NewHandler(container.LoginService, cfg)
	accountHandler := handlerAccount.NewHandler(container.AccountsRepo, container.ShockerService, container.Cache)
	shockerHandler := handlerShockers.NewHandler(container.ShockerService, container.ShockersRepo, container.Cache)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authRateLimiter.Middleware())
		{
			authGroup.POST("/register", authHandler.RegisterHandlerFunc) //POST /api/auth/register
			authGroup.POST("/login", authHandler.LoginHandlerFunc)       //POST /api/auth/login
			authGroup.POST("/refresh", authHandler.RefreshTokenHandlerFunc)
			authGroup.POST("/logout", authHandler.LogoutHandlerFunc)
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(apiRateLimiter.Middleware())
		v1.Use(middleware.JWTAuth(container.JWTService))
		{
			// account settings
			accountGroup := v1.Group("/account")
			{
				accountGroup.GET("/key", accountHandler.GetKeyHandler)    // GET /api/v1/account/key
				accountGroup.PUT("/key", accountHandler.UpdateKeyHandler) // PUT /api/v1/account/key
			}

			// shockers
			shockersGroup := v1.Group("/shockers")
			{
				shockersGroup.GET("", shockerHandler.ListHandler)          // GET /api/v1/shockers
				shockersGroup.POST("/sync", shockerHandler.SyncHandler)    // POST /api/v1/shockers/sync
				shockersGroup.PUT("/:id", shockerHandler.UpdateHandler)    // PUT /api/v1/shockers/{id}
				shockersGroup.DELETE("/:id", shockerHandler.DeleteHandler) // DELETE /api/v1/shockers/{id}

				shockersGroup.POST("/:id/control", shockerHandler.ControlHandler)           // POST /api/v1/shockers/{id}/control
				shockersGroup.POST("/reset-intensity", shockerHandler.ResetIntensityHandler) // POST /api/v1/shockers/reset-intensity
			}
		}
	}

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *app.Container) (*http.Server, func()) {
	cfg := container.Config
	router, clean := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
