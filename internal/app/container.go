package app

import (
	"fmt"
	"log"

	"github.com/anoixa/shock-panel/cache"
	"github.com/anoixa/shock-panel/config"
	"github.com/anoixa/shock-panel/database"
	"github.com/anoixa/shock-panel/database/repo/accounts"
	shockersRepo "github.com/anoixa/shock-panel/database/repo/shockers"
	"github.com/anoixa/shock-panel/internal/auth"
	"github.com/anoixa/shock-panel/internal/openshock"
	svcShockers "github.com/anoixa/shock-panel/internal/shockers"
)

// Container 持有所有已初始化的服务依赖
type Container struct {
	Config   *config.Config
	Database database.Provider
	Cache    cache.Provider

	AccountsRepo *accounts.Repository
	SessionsRepo *accounts.SessionRepository
	ShockersRepo *shockersRepo.Repository

	JWTService      *auth.JWTService
	LoginService    *auth.LoginService
	OpenShockClient *openshock.Client
	ShockerService  *svcShockers.Service
}

// New 初始化数据库、缓存和各层服务
func New(cfg *config.Config) (*Container, error) {
	dbProvider, err := database.NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := dbProvider.AutoMigrate(database.AllModels()...); err != nil {
		dbProvider.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cfg)
	if err != nil {
		dbProvider.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	db := dbProvider.DB()
	accountsRepo := accounts.NewRepository(db)
	sessionsRepo := accounts.NewSessionRepository(db)
	shockersRepository := shockersRepo.NewRepository(db)

	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.JWTRefreshExpiresIn)
	if err != nil {
		dbProvider.Close()
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	loginService := auth.NewLoginService(accountsRepo, sessionsRepo, jwtService)
	client := openshock.NewClient(cfg)
	shockerService := svcShockers.NewService(shockersRepository, accountsRepo, client)

	return &Container{
		Config:          cfg,
		Database:        dbProvider,
		Cache:           cacheProvider,
		AccountsRepo:    accountsRepo,
		SessionsRepo:    sessionsRepo,
		ShockersRepo:    shockersRepository,
		JWTService:      jwtService,
		LoginService:    loginService,
		OpenShockClient: client,
		ShockerService:  shockerService,
	}, nil
}

// Close 释放容器持有的资源
func (c *Container) Close() {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Printf("Failed to close cache provider: %v", err)
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}
