package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"racebet/internal/client/agentapi"
	"racebet/internal/config"
	cronrunner "racebet/internal/cron"
	"racebet/internal/db"
	"racebet/internal/draw"
	"racebet/internal/handler"
	"racebet/internal/logger"
	gormrepository "racebet/internal/repository/gorm"
	"racebet/internal/service"
	"racebet/internal/settlement"
	"racebet/internal/ws"
)

func main() {
	cfgPath := os.Getenv("RB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	engine := settlement.NewEngine(store, logger, lockHolder(cfg.App.NodeID))
	if cfg.Settlement.LockTTL > 0 {
		engine.LockTTL = cfg.Settlement.LockTTL
	}

	generator := draw.NewGenerator(logger)
	if cfg.Draw.HighRiskThreshold > 0 {
		generator.HighRiskThreshold = cfg.Draw.HighRiskThreshold
	}
	if cfg.Draw.LowRiskThreshold > 0 {
		generator.LowRiskThreshold = cfg.Draw.LowRiskThreshold
	}
	if cfg.Draw.DeclusterProb > 0 {
		generator.DeclusterProb = cfg.Draw.DeclusterProb
	}
	if cfg.Draw.MaxAttempts > 0 {
		generator.MaxAttempts = cfg.Draw.MaxAttempts
	}

	feed := ws.NewResultFeed(logger)

	var agentClient *agentapi.Client
	if cfg.AgentAPI.BaseURL != "" {
		agentClient = agentapi.New(cfg.AgentAPI.BaseURL, cfg.AgentAPI.APIKey)
		if cfg.AgentAPI.Timeout > 0 {
			agentClient.HTTP = &http.Client{Timeout: cfg.AgentAPI.Timeout}
		}
	} else {
		logger.Warn("agent api base url not set, drawing normal and skipping result pushes")
	}

	drawSvc := &service.DrawService{
		Repo:      store,
		Generator: generator,
		Engine:    engine,
		Config:    cfg.Settlement,
		Logger:    logger,
		Broadcast: feed.Broadcast,
	}
	if agentClient != nil {
		drawSvc.Policies = agentClient
		drawSvc.Notifier = agentClient
	}

	wagerSvc := &service.WagerService{Repo: store, Logger: logger}

	scheduler := &service.PeriodScheduler{
		Repo:   store,
		Draw:   drawSvc,
		Config: cfg.Game,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	resultHandler := &handler.ResultHandler{Repo: store}
	resultHandler.Register(router)
	wagerHandler := &handler.WagerHandler{Service: wagerSvc, Repo: store}
	wagerHandler.Register(router)
	txHandler := &handler.TransactionHandler{Repo: store}
	txHandler.Register(router)
	feed.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add("@every 5s", func(ctx context.Context) {
			if err := scheduler.Tick(ctx); err != nil {
				logger.Warn("scheduler tick failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register scheduler tick failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		logger.Info("cron disabled, periods must be driven externally")
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// lockHolder names this process in the period lock table so stale locks can
// be traced back to the node that held them. The uuid suffix keeps two
// processes on one host from releasing each other's locks.
func lockHolder(nodeID string) string {
	name := strings.TrimSpace(nodeID)
	if name == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			name = host
		} else {
			name = "engine"
		}
	}
	return name + "-" + uuid.NewString()[:8]
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
