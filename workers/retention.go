package workers

import (
	"context"
	"log"
	"time"

	"sitepulse/api/store"
)

const retentionSweepInterval = 24 * time.Hour

// RetentionSweeper periodically purges events older than each project's
// configured retention window. Projects with retention_days <= 0 keep
// their events forever.
type RetentionSweeper struct {
	projects *store.ProjectStore
	events   store.EventStore
}

func NewRetentionSweeper(projects *store.ProjectStore, events store.EventStore) *RetentionSweeper {
	return &RetentionSweeper{projects: projects, events: events}
}

// Start runs one sweep immediately, then once per interval until ctx is
// cancelled.
func (s *RetentionSweeper) Start(ctx context.Context) {
	go func() {
		s.sweep(ctx)
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	projects, err := s.projects.ListAllProjects(ctx)
	if err != nil {
		log.Printf("Retention sweep: failed to list projects: %v", err)
		return
	}

	now := time.Now().UTC()
	for _, p := range projects {
		settings, err := s.projects.GetConsentSettings(ctx, p.ID)
		if err != nil {
			log.Printf("Retention sweep: failed to load settings for project %s: %v", p.ID, err)
			continue
		}
		if settings.RetentionDays <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -settings.RetentionDays)
		if err := s.events.DeleteBefore(ctx, p.ID, cutoff); err != nil {
			log.Printf("Retention sweep: purge failed for project %s: %v", p.ID, err)
		}
	}
}
