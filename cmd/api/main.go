package main

import (
	"context"
	"log"
	"time"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/database"
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/jobs"
	applog "github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/notifications"
	"github.com/aicert/cert_platform/ocr"
	"github.com/aicert/cert_platform/routes"
	"github.com/aicert/cert_platform/services"
	"github.com/aicert/cert_platform/storage"
	"github.com/aicert/cert_platform/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	settings := config.Load()

	appLog, err := applog.NewLogger(applog.LogConfig{
		Output:   settings.LogOutput,
		Level:    settings.LogLevel,
		FilePath: settings.LogFilePath,
	})
	if err != nil {
		log.Fatalf("🔥 Failed to create logger: %v", err)
	}

	db := database.ConnectDB(settings)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	if err := database.SeedAccounts(db, settings); err != nil {
		log.Fatalf("🔥 Failed to seed accounts: %v", err)
	}

	uploads, err := newUploadStore(settings, appLog)
	if err != nil {
		log.Fatalf("🔥 Failed to prepare upload storage: %v", err)
	}
	pictures, err := storage.NewLocalStore(settings.ProfilePicturesDir)
	if err != nil {
		log.Fatalf("🔥 Failed to prepare profile picture storage: %v", err)
	}

	completer, err := llm.NewFromConfig(context.Background(), settings, appLog)
	if err != nil {
		log.Fatalf("🔥 Failed to configure LLM client: %v", err)
	}
	if !completer.Enabled() {
		log.Println("⚠️ No LLM API key configured. Question parsing and problem generation are disabled.")
	}

	extractor := ocr.New(settings.OCRLanguages, settings.TessdataDir, appLog, ocr.WithDPI(settings.OCRDPI))
	parser := services.NewQuestionParser(completer, services.ParserConfig{
		MaxInputChars: settings.LLMMaxInputChars,
		Temperature:   settings.LLMTemperature,
		MaxTokens:     settings.LLMMaxTokens,
	}, appLog)

	hub := websocket.NewHub(appLog)
	ingestion := services.NewIngestionService(db, uploads, extractor, parser, services.IngestionConfig{
		MaxUploadBytes: settings.MaxUploadBytes,
		PageCount:      ocr.PageCount,
	}, appLog)
	ingestion.SetReporter(hub)

	h := &handlers.Handler{
		DB:           db,
		Settings:     settings,
		Ingestion:    ingestion,
		Documents:    services.NewDocumentService(db, uploads, appLog),
		Answers:      services.NewAnswerService(db),
		Stats:        services.NewStatsService(db),
		Explanations: services.NewExplanationService(db, completer, settings.LLMTemperature, appLog),
		Generator:    services.NewGenerationService(db, completer, settings.LLMTemperature, appLog),
		Exporter:     services.NewExportService(db, nil),
		Pictures:     pictures,
		Mailer:       notifications.NewEmailService(settings, appLog),
		Log:          appLog,
	}

	c := cron.New()
	if err := jobs.NewOrphanCleaner(db, uploads.Root(), time.Hour, appLog).Schedule(c); err != nil {
		log.Fatalf("🔥 Failed to schedule cleanup job: %v", err)
	}
	c.Start()
	defer c.Stop()
	log.Println("✅ Cron job for orphaned upload cleanup scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "AI Cert Platform",
		CaseSensitive: true,
		StrictRouting: false,
		BodyLimit:     int(settings.MaxUploadBytes) + 1024*1024,
		ReadTimeout:   5 * time.Minute,
		WriteTimeout:  5 * time.Minute,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			appLog.Error("%v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Register(app, h, hub)

	log.Printf("✅ Server is running on port %s", settings.Port)
	if err := app.Listen(":" + settings.Port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}

// newUploadStore keeps uploads on local disk and mirrors them to Cloudinary
// when CLOUDINARY_URL is set.
func newUploadStore(settings config.Settings, appLog applog.Logger) (storage.FileStore, error) {
	local, err := storage.NewLocalStore(settings.UploadDir)
	if err != nil {
		return nil, err
	}
	if settings.CloudinaryURL == "" {
		return local, nil
	}
	cld, err := storage.NewCloudinaryStore(local, settings.CloudinaryURL, "cert_platform_pdfs", appLog)
	if err != nil {
		return nil, err
	}
	log.Println("✅ Cloudinary mirror enabled for uploads.")
	return cld, nil
}
