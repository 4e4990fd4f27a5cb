package services

import (
	"context"
	"log"
	"time"

	"paydesk/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// Maintenance schedules
const (
	purgeSchedule  = "@every 15m"
	evictSchedule  = "@every 5m"
	intentSchedule = "@every 1m"
)

// CronService runs background maintenance of sessions and the client store
type CronService struct {
	cron     *cron.Cron
	registry *SessionRegistry
	purger   repositories.ExpiredPurger
	maxIdle  time.Duration
}

// NewCronService creates the maintenance jobs. purger may be nil for stores
// that expire entries on their own.
func NewCronService(registry *SessionRegistry, purger repositories.ExpiredPurger, maxIdle time.Duration) *CronService {
	return &CronService{
		cron:     cron.New(),
		registry: registry,
		purger:   purger,
		maxIdle:  maxIdle,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if s.purger != nil {
		if _, err := s.cron.AddFunc(purgeSchedule, s.PurgeExpired); err != nil {
			return err
		}
	}
	if _, err := s.cron.AddFunc(evictSchedule, s.EvictIdle); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(intentSchedule, s.SweepDeleteIntents); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("🚀 CronService started")
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// PurgeExpired deletes expired client store entries
func (s *CronService) PurgeExpired() {
	if s.purger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		log.Printf("❌ Purge expired entries error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Purged %d expired entries", n)
	}
}

// EvictIdle drops idle sessions from memory
func (s *CronService) EvictIdle() {
	if n := s.registry.EvictIdle(s.maxIdle); n > 0 {
		log.Printf("🧹 Evicted %d idle sessions", n)
	}
}

// SweepDeleteIntents drops expired delete confirmations
func (s *CronService) SweepDeleteIntents() {
	if n := s.registry.SweepDeleteIntents(); n > 0 {
		log.Printf("🧹 Dropped %d expired delete confirmations", n)
	}
}
