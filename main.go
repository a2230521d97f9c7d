package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitepulse/api/analytics"
	"sitepulse/api/database"
	"sitepulse/api/handlers"
	"sitepulse/api/middleware"
	"sitepulse/api/store"
	"sitepulse/api/tracking"
	"sitepulse/api/workers"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database (users, projects, stored queries) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (event log) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := chClient.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		log.Fatalf("Failed to ensure ClickHouse schema: %v", err)
	}
	cancelSchema()

	// --- Initialize Redis (ingestion-path lookup cache) ---
	redisClient, err := database.NewRedisDB()
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Initialize Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	projectStore := store.NewProjectStore(dbClient.DB)
	reportStore := store.NewReportStore(dbClient.DB)
	eventStore := store.NewClickHouseEventStore(chClient)
	projectCache := store.NewProjectCache(projectStore, redisClient)

	// --- Background workers ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	eventWriter := workers.NewEventWriter(eventStore)
	eventWriter.Start(workerCtx)
	workers.NewRetentionSweeper(projectStore, eventStore).Start(workerCtx)

	// --- Initialize Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore)
	trackHandlers := handlers.NewTrackHandlers(projectCache, tracking.NewGeoResolver(), eventWriter)
	projectHandlers := handlers.NewProjectHandlers(projectStore, reportStore, eventStore, projectCache)
	reportHandlers := handlers.NewReportHandlers(reportStore, analytics.NewEngine(eventStore))
	funnelHandlers := handlers.NewFunnelHandlers(reportStore, eventStore)
	eventHandlers := handlers.NewEventHandlers(reportStore, eventStore)

	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The beacon is posted cross-origin from customer sites: open CORS, no
	// auth, mounted outside the dashboard group.
	track := r.Group("/api/track")
	track.Use(middleware.BeaconCORS())
	{
		track.POST("", trackHandlers.Track)
		track.OPTIONS("", func(c *gin.Context) {}) // preflight answered by BeaconCORS
	}

	api := r.Group("/api")
	api.Use(middleware.CORSMiddleware())
	{
		// Authentication Endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Protected Routes (require a valid JWT token)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("/projects", projectHandlers.CreateProject)
			protected.GET("/projects", projectHandlers.ListProjects)
			protected.GET("/projects/:projectId", projectHandlers.GetProject)
			protected.DELETE("/projects/:projectId", projectHandlers.DeleteProject)

			protected.GET("/projects/:projectId/consent", projectHandlers.GetConsentSettings)
			protected.PUT("/projects/:projectId/consent", projectHandlers.UpdateConsentSettings)

			protected.GET("/projects/:projectId/ip-rules", projectHandlers.ListIPRules)
			protected.POST("/projects/:projectId/ip-rules", projectHandlers.CreateIPRule)
			protected.DELETE("/projects/:projectId/ip-rules/:ruleId", projectHandlers.DeleteIPRule)

			protected.POST("/projects/:projectId/reports", projectHandlers.CreateReport)
			protected.GET("/projects/:projectId/reports", projectHandlers.ListReports)
			protected.DELETE("/projects/:projectId/reports/:reportId", projectHandlers.DeleteReport)

			protected.POST("/projects/:projectId/funnels", projectHandlers.CreateFunnel)
			protected.GET("/projects/:projectId/funnels", projectHandlers.ListFunnels)
			protected.DELETE("/projects/:projectId/funnels/:funnelId", projectHandlers.DeleteFunnel)

			protected.POST("/projects/:projectId/custom-events", projectHandlers.CreateCustomEventDefinition)
			protected.GET("/projects/:projectId/custom-events", projectHandlers.ListCustomEventDefinitions)
			protected.DELETE("/projects/:projectId/custom-events/:definitionId", projectHandlers.DeleteCustomEventDefinition)

			// Analysis endpoints trust :projectId only after the ownership gate.
			analysis := protected.Group("/projects/:projectId")
			analysis.Use(projectHandlers.RequireProjectOwnership())
			{
				analysis.GET("/events", eventHandlers.ListEvents)
				analysis.GET("/reports/:reportId/run", reportHandlers.RunReport)
				analysis.POST("/reports/preview", reportHandlers.PreviewReport)
				analysis.GET("/funnels/:funnelId/analyze", funnelHandlers.AnalyzeFunnel)
				analysis.GET("/custom-events/:definitionId/matches", eventHandlers.MatchCustomEvent)
				analysis.GET("/custom-events/:definitionId/conversions", eventHandlers.AnalyzeConversions)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("SitePulse API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop accepting events, then drain the write queue.
	stopWorkers()
	eventWriter.Wait()

	log.Println("Server exiting.")
}
