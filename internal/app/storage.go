// Package app assembles the repositories and clients shared by the commands.
package app

import (
	"fmt"
	"strings"

	"github.com/medicrew/backend/internal/adapters/cache"
	"github.com/medicrew/backend/internal/adapters/database"
	"github.com/medicrew/backend/internal/adapters/events"
	"github.com/medicrew/backend/internal/adapters/memory"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	"github.com/medicrew/backend/internal/infrastructure/clients/redis"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	"github.com/medicrew/backend/pkg/config"
)

// localCacheSize bounds the in-process cache used when Redis is disabled
const localCacheSize = 1024

// Repositories is the storage backend selected by configuration
type Repositories struct {
	SymptomChecks repositories.SymptomCheckRepository
	Queue         repositories.QueueRepository
	DoctorNotes   repositories.DoctorNoteRepository
	Patients      repositories.PatientRepository
	Doctors       repositories.DoctorRepository
	Consultations repositories.ConsultationRepository
	Notifications repositories.NotificationRepository

	pg *postgres.Client
}

// OpenRepositories connects the configured storage driver. With AutoMigrate
// the Postgres schema is brought up to date once the database answers.
func OpenRepositories(cfg *config.Config) (*Repositories, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", "memory":
		observability.GetLogger().Info().Msg("Using in-memory storage")
		return &Repositories{
			SymptomChecks: memory.NewSymptomCheckStore(),
			Queue:         memory.NewQueueStore(),
			DoctorNotes:   memory.NewDoctorNoteStore(),
			Patients:      memory.NewPatientStore(),
			Doctors:       memory.NewDoctorStore(),
			Consultations: memory.NewConsultationStore(),
			Notifications: memory.NewNotificationStore(),
		}, nil
	case "postgres":
		pg, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(cfg.Database.DatabaseURL()); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Repositories{
			SymptomChecks: database.NewSymptomCheckAdapter(pg),
			Queue:         database.NewQueueAdapter(pg),
			DoctorNotes:   database.NewDoctorNoteAdapter(pg),
			Patients:      database.NewPatientAdapter(pg),
			Doctors:       database.NewDoctorAdapter(pg),
			Consultations: database.NewConsultationAdapter(pg),
			Notifications: database.NewNotificationAdapter(pg),
			pg:            pg,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Close releases the database connection, if any
func (r *Repositories) Close() error {
	if r.pg == nil {
		return nil
	}
	return r.pg.Close()
}

// Messaging is the cache and event bus pair
type Messaging struct {
	Cache    providers.CacheProvider
	EventBus providers.EventBus

	redis *redis.Client
}

// OpenMessaging uses Redis when enabled and reachable, otherwise an in-process
// LRU cache and event bus. Redis failures are not fatal for a single instance.
func OpenMessaging(cfg *config.Config) (*Messaging, error) {
	logger := observability.GetLogger()
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(&cfg.Redis)
		if err == nil {
			logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
			return &Messaging{
				Cache:    cache.NewRedisAdapter(client),
				EventBus: events.NewRedisEventBus(client),
				redis:    client,
			}, nil
		}
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-process cache and events")
	}

	lru, err := cache.NewLRUAdapter(localCacheSize)
	if err != nil {
		return nil, err
	}
	return &Messaging{Cache: lru, EventBus: events.NewMemoryEventBus()}, nil
}

// Close shuts the event bus and Redis connection
func (m *Messaging) Close() error {
	if err := m.EventBus.Close(); err != nil {
		return err
	}
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}
