package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/ledger"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/router/config"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	runDBMigration(cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	logger := log.New(os.Stdout, "INFO: ", log.LstdFlags)

	tenderRepo := repository.NewPostgresTenderRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	awardStore := repository.NewPostgresAwardStore(dbPool)
	documentRepo := repository.NewPostgresDocumentRepository(dbPool)
	notificationRepo := repository.NewPostgresNotificationRepository(dbPool)
	qaRepo := repository.NewPostgresQARepository(dbPool)

	fileStore, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("error initializing file store: %v", err)
	}

	var notary ledger.Notary
	if cfg.NotaryURL != "" {
		notary = ledger.NewHTTPNotary(cfg.NotaryURL, cfg.NotaryTimeout)
	} else {
		logger.Println("NOTARY_URL is not set, using in-memory notary")
		notary = ledger.NewInMemoryNotary()
	}

	fanout := notification.NewFanout(notificationRepo, logger, cfg.FanoutQueueSize)
	fanout.Start()
	defer fanout.Stop()

	readCache := cache.NewMemoryCache()

	tenderService := services.NewTenderService(tenderRepo, fanout, readCache)
	bidService := services.NewBidService(bidRepo, tenderRepo, fanout, readCache)
	awardService := services.NewAwardService(tenderRepo, bidRepo, awardStore, notary, fanout, readCache, logger)
	documentService := services.NewDocumentService(documentRepo, tenderRepo, bidRepo, fileStore, fanout)
	notificationService := services.NewNotificationService(notificationRepo)
	qaService := services.NewQAService(qaRepo, tenderRepo, fanout)

	scheduler := services.NewScheduler(tenderRepo, tenderService, logger, cfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	tenderHandler := handlers.NewTenderHandler(tenderService, awardService, logger, 5*time.Second)
	bidHandler := handlers.NewBidHandler(bidService, logger, 5*time.Second)
	documentHandler := handlers.NewDocumentHandler(documentService, logger, 10*time.Second)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger, 5*time.Second)
	qaHandler := handlers.NewQAHandler(qaService, logger, 5*time.Second)

	routes := router.InitRoutes(tenderHandler, bidHandler, documentHandler, notificationHandler, qaHandler)

	log.Printf("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal("cannot create a new migrate instance", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("failed to run migrate up:", err)
	}
	log.Println("db migrated successfully")
}
