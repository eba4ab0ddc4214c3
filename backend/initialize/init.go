package initialize

import (
	"net/http"
	"time"

	"pc-insight/backend/app/controllers"
	"pc-insight/backend/app/db"
	jwtutil "pc-insight/backend/app/jwt"
	"pc-insight/backend/app/middleware"
	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"
	"pc-insight/backend/app/services"
	"pc-insight/backend/config"
	"pc-insight/backend/global"
	"pc-insight/backend/router"

	"github.com/redis/go-redis/v9"
)

// Build loads config, connects backing stores and wires the HTTP
// handler. The returned handler is ready for server.StartHTTPServer.
func Build(configPath string) (http.Handler, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	mdb, err := db.Connect(db.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Pass,
		DBName:   cfg.DB.Name,
	})
	if err != nil {
		return nil, err
	}
	global.Mdb = mdb
	if err := mdb.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.EnrollToken{},
		&models.Command{},
		&models.Report{},
	); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	}

	users := services.NewUserService(repo.NewUserRepository(mdb))
	tokens := services.NewTokenService(repo.NewEnrollTokenRepository(mdb), cfg.EnrollTokenTTL)
	devices := services.NewDeviceService(repo.NewDeviceRepository(mdb))
	commands := services.NewCommandService(repo.NewCommandRepository(mdb))
	reports := services.NewReportService(repo.NewReportRepository(mdb), commands, cfg.MaxReportSizeBytes)

	if err := users.EnsureAdmin("admin", "admin"); err != nil {
		return nil, err
	}

	signer := &jwtutil.Signer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		ExpMin: cfg.JWT.ExpMin,
	}
	authMW := &middleware.Auth{Signer: signer}
	limiter := middleware.NewRateLimiter(global.Rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	deviceTokenTTL := time.Duration(cfg.JWT.DeviceTokenDays) * 24 * time.Hour
	authCtl := controllers.NewAuthController(users, signer)
	adminCtl := controllers.NewAdminController(tokens, commands, devices, reports)
	agentCtl := controllers.NewAgentController(tokens, devices, commands, reports, signer, deviceTokenTTL)

	return router.New(authCtl, adminCtl, agentCtl, authMW, limiter), nil
}
