package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/teamboard/teamboard/src/internal/api/handlers"
	"github.com/teamboard/teamboard/src/internal/audit"
	"github.com/teamboard/teamboard/src/internal/auth"
	"github.com/teamboard/teamboard/src/internal/backup"
	"github.com/teamboard/teamboard/src/internal/integrity"
	"github.com/teamboard/teamboard/src/internal/ratelimit"
	"github.com/teamboard/teamboard/src/internal/transfer"
)

// Server wires the backup engine behind an echo instance
type Server struct {
	echo    *echo.Echo
	config  *viper.Viper
	db      *gorm.DB
	logger  zerolog.Logger
	limiter *ratelimit.Limiter
	service *backup.Service
}

// New assembles the server and all backup services
func New(cfg *viper.Viper, db *gorm.DB, tool backup.DumpTool, logger zerolog.Logger) (*Server, error) {
	alg, err := integrity.ParseAlgorithm(cfg.GetString("backup.checksum_algorithm"))
	if err != nil {
		return nil, err
	}

	rules, err := ratelimit.RulesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.IsSet("ratelimit.enabled") && !cfg.GetBool("ratelimit.enabled") {
		// Admission control switched off: an empty rule table makes every
		// (role, operation) pair unlimited.
		rules = ratelimit.Rules{}
	}
	sweep := cfg.GetDuration("ratelimit.sweep_interval")
	if sweep <= 0 {
		sweep = ratelimit.DefaultSweepInterval
	}
	limiter := ratelimit.New(rules, ratelimit.WithSweepInterval(sweep))

	store := backup.NewStore(db)
	auditSvc := audit.NewService(db, logger)
	service := backup.NewService(store, tool, auditSvc, cfg.GetString("backup.directory"), alg, logger)
	transferHandler := transfer.NewHandler(store, auditSvc, transfer.Config{
		MemoryThreshold:     cfg.GetInt64("transfer.memory_threshold"),
		RangeSupport:        cfg.GetBool("transfer.range_support"),
		ThrottleBytesPerSec: cfg.GetInt("transfer.throttle_bytes_per_sec"),
	}, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewEchoValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())

	e.GET("/health", handlers.Health)

	provider := buildAuthProvider(cfg)
	protected := e.Group("", auth.Middleware(provider))

	backupHandler := handlers.NewBackupHandler(service, transferHandler, limiter, logger)
	backupHandler.RegisterRoutes(protected)

	return &Server{
		echo:    e,
		config:  cfg,
		db:      db,
		logger:  logger,
		limiter: limiter,
		service: service,
	}, nil
}

// Echo exposes the underlying echo instance, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.GetString("server.host"), s.config.GetInt("server.port"))
	s.logger.Info().Str("addr", addr).Msg("server starting")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter sweep
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()

	timeout := time.Duration(s.config.GetInt("server.shutdown_timeout")) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func buildAuthProvider(cfg *viper.Viper) auth.Provider {
	var chain auth.Chain
	if secret := cfg.GetString("auth.jwt_secret"); secret != "" {
		chain = append(chain, auth.NewJWTProvider(secret))
	}
	if hash := cfg.GetString("auth.api_token_hash"); hash != "" {
		chain = append(chain, auth.NewTokenProvider(hash, "api-token", auth.RoleAdmin))
	}
	return chain
}
