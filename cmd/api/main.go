package main

import (
	"log"
	"os"

	"bankeu-api/config"
	"bankeu-api/controllers"
	"bankeu-api/middleware"
	"bankeu-api/routes"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	settings, err := config.LoadWorkflowSettings(os.Getenv("BANKEU_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load workflow settings: %v", err)
	}
	config.Workflow = settings

	// Initialize database and optional infrastructure
	config.InitDB()
	config.InitRedis()
	config.InitNATS()
	if config.NATS != nil {
		defer config.NATS.Drain()
	}

	// Post-commit hooks; each is skipped when its backend is not configured.
	var hooks []services.TransitionHook
	if pub := services.NewNATSEventPublisher(config.NATS); pub != nil {
		hooks = append(hooks, pub)
	}
	if inv := services.NewTrackingCacheInvalidator(config.Redis); inv != nil {
		hooks = append(hooks, inv)
	}
	if config.MailConfigured() {
		hooks = append(hooks, services.NewEmailNotifier(config.DB, config.SendMail, settings.NotifyEmails))
	}
	effects := services.NewSideEffects(hooks...)

	directory := services.NewReferenceDirectory(config.DB, 0)
	handlers := routes.Handlers{
		Proposals:      controllers.NewProposalController(services.NewProposalService(config.DB, effects)),
		Assignments:    controllers.NewAssignmentController(services.NewAssignmentService(config.DB)),
		Questionnaires: controllers.NewQuestionnaireController(services.NewQuestionnaireService(config.DB, nil)),
		Tracking: controllers.NewTrackingController(
			services.NewTrackingService(config.DB, directory, config.Redis, settings),
			int(settings.TrackingCacheTTL.Seconds()),
		),
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	router.Use(middleware.CORSMiddleware(settings.CORSOrigins))

	routes.SetupRoutes(router, handlers)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("Display ceiling %d, tracking cache TTL %s, %d post-commit hook(s)", settings.DisplayCeiling, settings.TrackingCacheTTL, len(hooks))
	if ginMode == "release" {
		log.Printf("Running in production mode")
	} else {
		log.Printf("Running in development mode")
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
