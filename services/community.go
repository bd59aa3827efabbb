package services

import (
	"context"
	"errors"
	"time"

	"channel-unlock-bot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommunityService manages the singleton community counter row.
type CommunityService struct {
	DB *gorm.DB
}

func NewCommunityService(db *gorm.DB) *CommunityService {
	return &CommunityService{DB: db}
}

func counterConflict(assignments clause.Set) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: assignments,
	}
}

// Increment adds one to the community counter, creating it if needed, and
// returns the new total. The arithmetic runs inside the store.
func (s *CommunityService) Increment(ctx context.Context) (int64, error) {
	var counter models.CommunityCounter
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.CommunityCounter{ID: models.CommunityCounterID, Total: 1}
		err := tx.Clauses(counterConflict(clause.Assignments(map[string]interface{}{
			"total":      gorm.Expr("community_counters.total + ?", 1),
			"updated_at": time.Now(),
		}))).Create(&seed).Error
		if err != nil {
			return err
		}
		return tx.First(&counter, models.CommunityCounterID).Error
	})
	if err != nil {
		return 0, err
	}
	return counter.Total, nil
}

// Get returns the counter; a zero record when it was never written.
func (s *CommunityService) Get(ctx context.Context) (*models.CommunityCounter, error) {
	var counter models.CommunityCounter
	err := s.DB.WithContext(ctx).First(&counter, models.CommunityCounterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CommunityCounter{ID: models.CommunityCounterID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// Set overwrites the total (admin reset).
func (s *CommunityService) Set(ctx context.Context, total int64) error {
	seed := models.CommunityCounter{ID: models.CommunityCounterID, Total: total}
	return s.DB.WithContext(ctx).
		Clauses(counterConflict(clause.AssignmentColumns([]string{"total", "updated_at"}))).
		Create(&seed).Error
}

// TouchLastPost records when the channel was last posted to.
func (s *CommunityService) TouchLastPost(ctx context.Context, at time.Time) error {
	seed := models.CommunityCounter{ID: models.CommunityCounterID, LastPostAt: &at}
	return s.DB.WithContext(ctx).
		Clauses(counterConflict(clause.AssignmentColumns([]string{"last_post_at", "updated_at"}))).
		Create(&seed).Error
}
