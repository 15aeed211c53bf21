package service

import (
	"sync"
	"time"

	"github.com/haraujo/libraryapi/config"
	"github.com/haraujo/libraryapi/internal/jsonlog"
	"github.com/haraujo/libraryapi/internal/mailer"
	"github.com/haraujo/libraryapi/repository"
	"github.com/jellydator/ttlcache/v3"
)

type Service interface {
	books
	loans
	notifications
	metadata
	failedValidation(map[string]string) error
}

// service defines the service layer, which holds every business rule of the
// lending domain: isbn uniqueness, the single-open-loan-per-book constraint, loan
// state transitions and overdue detection.
type service struct {
	config   config.Config
	wg       *sync.WaitGroup
	logger   *jsonlog.Logger
	repo     repository.Repository
	mailer   mailer.Mailer
	notified *ttlcache.Cache[int64, time.Time]
}

// New creates a new instance of Service.
func New(cfg config.Config, wg *sync.WaitGroup, logger *jsonlog.Logger, repo repository.Repository, mailer mailer.Mailer, notified *ttlcache.Cache[int64, time.Time]) *service {
	return &service{
		config:   cfg,
		wg:       wg,
		logger:   logger,
		repo:     repo,
		mailer:   mailer,
		notified: notified,
	}
}
