package main

import (
	"database/sql"
	"expvar"
	"flag"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/haraujo/libraryapi/config"
	_ "github.com/haraujo/libraryapi/docs"
	"github.com/haraujo/libraryapi/handler"
	"github.com/haraujo/libraryapi/internal/jsonlog"
	"github.com/haraujo/libraryapi/internal/mailer"
	"github.com/haraujo/libraryapi/repository"
	"github.com/haraujo/libraryapi/repository/postgres"
	"github.com/haraujo/libraryapi/service"
	"github.com/jellydator/ttlcache/v3"
)

const version = "1.0.0"

// app defines the application's layers and shared resources.
type app struct {
	config  config.Config
	repo    repository.Repository
	service service.Service
	handler *handler.Handler
}

// @title Library API
// @version 1.0.0
// @description This is an API service for managing a book catalog and book loans.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath /
func main() {
	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a yaml configuration file")
	flag.Parse()

	// Initialize configuration
	var cfg config.Config
	err := config.Load(configPath, &cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}

	// Initialize database connection
	db, err := postgres.OpenDBConn(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()
	logger.PrintInfo("database connection pool established", nil)

	publishMetrics(db)

	// Other shared resources: waitgroup and the cache of recently
	// notified overdue loans
	var wg sync.WaitGroup
	notified := ttlcache.New(ttlcache.WithTTL[int64, time.Time](24 * time.Hour))
	go notified.Start()

	// Application layers
	repo := repository.New(db)
	mailer := mailer.New(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.Sender)
	service := service.New(cfg, &wg, logger, repo, mailer, notified)
	handler := handler.New(cfg, logger, service)

	// Instantiate application
	app := &app{
		config:  cfg,
		repo:    repo,
		service: service,
		handler: handler,
	}

	// Periodically notify customers with overdue loans
	go app.sweepOverdueLoans(logger)

	// Start HTTP server
	err = app.serve(&wg, logger)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// publishMetrics exposes application metrics through the expvar handler.
func publishMetrics(db *sql.DB) {
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stats()
	}))
	expvar.Publish("timestamp", expvar.Func(func() any {
		return time.Now().Unix()
	}))
}
