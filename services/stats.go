package services

import (
	"context"
	"time"
)

type Stats struct {
	Participants      int64      `json:"participants"`
	CreditedReferrals int64      `json:"credited_referrals"`
	CommunityCount    int64      `json:"community_count"`
	CatalogSize       int64      `json:"catalog_size"`
	LastPostAt        *time.Time `json:"last_post_at,omitempty"`
}

type StatsService struct {
	Ledger    *LedgerService
	Community *CommunityService
	Catalog   *CatalogService
}

func NewStatsService(ledger *LedgerService, community *CommunityService, catalog *CatalogService) *StatsService {
	return &StatsService{Ledger: ledger, Community: community, Catalog: catalog}
}

func (s *StatsService) Snapshot(ctx context.Context) (*Stats, error) {
	total, credited, err := s.Ledger.Count(ctx)
	if err != nil {
		return nil, err
	}
	counter, err := s.Community.Get(ctx)
	if err != nil {
		return nil, err
	}
	size, err := s.Catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Participants:      total,
		CreditedReferrals: credited,
		CommunityCount:    counter.Total,
		CatalogSize:       size,
		LastPostAt:        counter.LastPostAt,
	}, nil
}
