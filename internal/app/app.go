package app

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	// Redis 未配置或连接失败时为 nil
	Redis *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	course     *repository.CourseRepository
	assessment *repository.AssessmentRepository
	submission *repository.SubmissionRepository
	progress   *repository.ProgressRepository
	enrollment *repository.EnrollmentRepository
	diagnostic *repository.DiagnosticRepository
}

type services struct {
	course     *service.CourseService
	assessment *service.AssessmentService
	progress   *service.ProgressService
	submission *service.SubmissionService
	diagnostic *service.DiagnosticService
	retryQueue service.RetryQueue
}

type controllers struct {
	assessment *controller.AssessmentController
	progress   *controller.ProgressController
	diagnostic *controller.DiagnosticController
	teacher    *controller.TeacherController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		course:     repository.NewCourseRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		submission: repository.NewSubmissionRepository(db),
		progress:   repository.NewProgressRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		diagnostic: repository.NewDiagnosticRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	leveler, err := cfg.Grading.Leveler()
	if err != nil {
		return nil, err
	}

	if rdb != nil {
		s.retryQueue = service.NewRedisRetryQueue(rdb)
	}

	s.course = service.NewCourseService(repos.course)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.course)
	s.progress = service.NewProgressService(db, repos.course, repos.progress, repos.enrollment)
	s.submission = service.NewSubmissionService(repos.assessment, repos.submission, s.progress, s.retryQueue)
	s.diagnostic = service.NewDiagnosticService(repos.assessment, repos.diagnostic, leveler)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment, s.submission),
		progress:   controller.NewProgressController(s.progress),
		diagnostic: controller.NewDiagnosticController(s.diagnostic),
		teacher:    controller.NewTeacherController(s.course, s.assessment, s.submission),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 使用已建立的连接组装应用，rdb 可为 nil
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 配置热更新：诊断等级区间
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		leveler, err := newCfg.Grading.Leveler()
		if err != nil {
			logger.Log.Warn("忽略无效的诊断等级配置", zap.Error(err))
			return
		}
		services.diagnostic.SetLeveler(leveler)
	})

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

// NewApp 初始化日志、数据库、Redis 与追踪，失败直接退出
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			// 没有 Redis 时级联失败只记录日志，不影响提交
			logger.Log.Warn("Redis unavailable, aggregation retry queue disabled", zap.Error(err))
			rdb = nil
		}
	}

	app, err := New(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to build application", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	if a.services.retryQueue == nil {
		return
	}

	interval := time.Duration(a.Config.Grading.RetryIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	batch := a.Config.Grading.RetryBatchSize
	if batch <= 0 {
		batch = 50
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := service.DrainAggregationRetries(ctx, a.services.retryQueue, a.services.progress, batch)
				if err != nil {
					logger.Log.Error("aggregation retry error", zap.Error(err))
				}
				if n > 0 {
					logger.Log.Info("aggregation retries replayed", zap.Int("count", n))
				}
			}
		}
	}()
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.File == "" || len(a.configCallbacks) == 0 {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.File, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	defer logger.Log.Sync()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	a.startBackgroundTasks(bgCtx)
	a.watchConfig(bgCtx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
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
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
