// Package analytics summarizes recent moderation activity for staff
// reports.
package analytics

import (
	"context"
	"time"

	"hearthwarden/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Total       int
	ByAction    map[string]int
	ByModerator map[string]int
}

func (s *Service) Report(ctx context.Context, since time.Time) (Report, error) {
	logs, err := s.store.ModLogsSince(ctx, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByAction:    make(map[string]int),
		ByModerator: make(map[string]int),
	}
	for _, log := range logs {
		report.Total++
		report.ByAction[log.ActionType]++
		report.ByModerator[log.ModeratorID]++
	}
	return report, nil
}
