package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baltarist/Perscrum-sub000/cache"
	"github.com/Baltarist/Perscrum-sub000/db"
	"github.com/Baltarist/Perscrum-sub000/handlers"
	"github.com/Baltarist/Perscrum-sub000/middleware"
	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/Baltarist/Perscrum-sub000/routes"
	"github.com/Baltarist/Perscrum-sub000/services"
	"github.com/Baltarist/Perscrum-sub000/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	utils.InitLogger()
	defer utils.Logger.Sync()
	utils.InitMetrics()

	utils.Logger.Info("starting_application")

	db.Connect()
	if err := db.DB.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Sprint{},
		&models.Task{},
		&models.Subtask{},
		&models.TaskStatusChange{},
		&models.Badge{},
		&models.UserBadge{},
		&models.DailyCheckin{},
	); err != nil {
		utils.Logger.Fatal("migration_failed", zap.Error(err))
	}

	// The badge catalog is static; load it before any evaluation can run.
	if err := services.SeedBadges(db.DB); err != nil {
		utils.Logger.Fatal("badge_seed_failed", zap.Error(err))
	}

	if err := cache.InitRedis(utils.Logger); err != nil {
		utils.Logger.Fatal("redis_init_failed", zap.Error(err))
	}
	defer cache.Close()

	gate := services.NewAIGate(&services.GormUsageStore{DB: db.DB}, utils.Logger)
	handlers.Init(gate, services.NewOpenAIProvider(utils.Logger))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware(120, time.Minute))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{utils.GetEnv("CORS_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Cookie-session deployments sit behind the CSRF filter; bearer-token
	// clients run with it off.
	if key := os.Getenv("CSRF_AUTH_KEY"); key != "" {
		r.Use(middleware.CSRFProtection([]byte(key)))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now(),
			"database":  "connected",
		})
	})

	r.POST("/api/register", routes.Register)
	r.POST("/api/login", routes.Login)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/profile", routes.Profile)
		api.PUT("/profile", routes.UpdateProfile)
		api.PUT("/subscription", routes.UpdateSubscription)

		api.POST("/projects", handlers.CreateProject)
		api.GET("/projects", middleware.CacheMiddleware(time.Minute), handlers.GetProjects)
		api.GET("/projects/:id", handlers.GetProject)
		api.PUT("/projects/:id/status", handlers.UpdateProjectStatus)
		api.POST("/projects/:id/sprints/:num/complete", handlers.CompleteSprint)

		api.PUT("/tasks/:id/status", handlers.UpdateTaskStatus)
		api.PUT("/tasks/:id/plan", handlers.PlanTask)
		api.POST("/tasks/:id/subtasks/suggest", handlers.SuggestSubtasks)

		api.POST("/checkins", handlers.CreateCheckin)
		api.GET("/checkins", handlers.GetCheckins)

		api.GET("/badges", middleware.CacheMiddleware(10*time.Minute), handlers.GetBadgeCatalog)
		api.GET("/badges/mine", handlers.GetMyBadges)

		api.GET("/stats", handlers.GetStats)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	startServer(r)
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	utils.Logger.Info("starting_http_server", zap.String("port", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Logger.Info("shutting_down_server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatal("server_forced_shutdown", zap.Error(err))
	}

	utils.Logger.Info("server_stopped")
}
