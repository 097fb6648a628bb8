package services

import (
	"context"
	"time"

	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
)

const recentIdentitiesLimit = 5

type RecentIdentity struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type Stats struct {
	TotalIdentities  int64            `json:"total_identities"`
	TotalContexts    int64            `json:"total_contexts"`
	RecentIdentities []RecentIdentity `json:"recent_identities"`
}

type DashboardService struct {
	store store.Store
}

func NewDashboardService(s store.Store) *DashboardService {
	return &DashboardService{store: s}
}

func (s *DashboardService) Stats(ctx context.Context, account *models.Account) (*Stats, error) {
	identities, err := s.store.CountIdentities(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	contexts, err := s.store.CountContexts(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentIdentities(ctx, account.ID, recentIdentitiesLimit)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalIdentities:  identities,
		TotalContexts:    contexts,
		RecentIdentities: make([]RecentIdentity, 0, len(recent)),
	}
	for _, i := range recent {
		stats.RecentIdentities = append(stats.RecentIdentities, RecentIdentity{
			ID:          i.ID,
			DisplayName: i.DisplayName,
			CreatedAt:   i.CreatedAt,
		})
	}
	return stats, nil
}
