package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"quizcert/internal/config"
	"quizcert/internal/controller"
	"quizcert/internal/repository"
	"quizcert/internal/service"
	"quizcert/internal/web"
	"quizcert/pkg/configwatcher"
	"quizcert/pkg/database"
	"quizcert/pkg/logger"
	"quizcert/pkg/monitoring"
	"quizcert/pkg/security"
	"quizcert/pkg/tracing"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	services        *services
	shutdownHooks   []func(context.Context) error
	configMu        sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	test     *repository.TestRepository
	question *repository.QuestionRepository
	attempt  *repository.AttemptRepository
}

type services struct {
	auth        *service.SharedSecretAuth
	storage     *service.StorageService
	test        *service.TestService
	question    *service.QuestionService
	attempt     *service.AttemptService
	certificate *service.CertificateService
	seed        *service.SeedService
}

type controllers struct {
	student   *controller.StudentController
	admin     *controller.AdminController
	adminTest *controller.AdminTestController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		test:     repository.NewTestRepository(db),
		question: repository.NewQuestionRepository(db),
		attempt:  repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(r *repositories, cfg *config.Config) *services {
	storage := service.NewStorageService(cfg)
	certificate := service.NewCertificateService(cfg.Certificate, storage)
	test := service.NewTestService(r.test)
	question := service.NewQuestionService(r.question, r.test)

	return &services{
		auth:        service.NewSharedSecretAuth(cfg.Admin),
		storage:     storage,
		test:        test,
		question:    question,
		attempt:     service.NewAttemptService(r.test, r.question, r.attempt, certificate),
		certificate: certificate,
		seed:        service.NewSeedService(test, question),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	base := a.Config.Server.AdminBase
	return &controllers{
		student:   controller.NewStudentController(s.test, s.question, s.attempt, s.certificate),
		admin:     controller.NewAdminController(s.auth, s.attempt, s.certificate, base),
		adminTest: controller.NewAdminTestController(s.test, s.question, base),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// RegisterConfigCallback 配置热更新时回调
func (a *App) RegisterConfigCallback(cb func(*config.Config)) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, cb)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.configMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.configMu.Unlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app, err := New(cfg, db)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.shutdownHooks = append(app.shutdownHooks, tp.Shutdown)
	}

	return app
}

// New 使用已迁移的数据库组装应用，测试中也通过它构建路由
func New(cfg *config.Config, db *gorm.DB) (*App, error) {
	if cfg.Server.AdminBase == "" {
		cfg.Server.AdminBase = "/controlpanel"
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db)

	if cfg.Database.Seed {
		if err := services.seed.SeedDefaults(context.Background()); err != nil {
			return nil, err
		}
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		services.auth.Reload(c.Admin)
	})

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, services, cfg)

	return app, nil
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.Config.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, a.applyConfig); err != nil {
				logger.Log.Warn("Config watcher disabled", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	for _, hook := range a.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			logger.Log.Error("Shutdown hook failed", zap.Error(err))
		}
	}

	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exiting")
}
