package services

import (
	"context"
	"errors"
	"fmt"

	"channel-unlock-bot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService stores reward artifacts keyed by (tier, kind).
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

func (s *CatalogService) Exists(ctx context.Context, tier int64, kind models.MediaKind) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RewardArtifact{}).
		Where("tier = ? AND kind = ?", tier, kind).
		Count(&count).Error
	return count > 0, err
}

// Add inserts a new artifact. An existing (tier, kind) pair is never
// overwritten: ErrArtifactExists is returned instead.
func (s *CatalogService) Add(ctx context.Context, a *models.RewardArtifact) error {
	if a.Tier < 0 {
		return fmt.Errorf("tier must not be negative, got %d", a.Tier)
	}
	exists, err := s.Exists(ctx, a.Tier, a.Kind)
	if err != nil {
		return err
	}
	if exists {
		return ErrArtifactExists
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrArtifactExists
		}
		return err
	}
	return nil
}

// AtTier lists a tier's artifacts, image first.
func (s *CatalogService) AtTier(ctx context.Context, tier int64) ([]models.RewardArtifact, error) {
	var out []models.RewardArtifact
	err := s.DB.WithContext(ctx).
		Where("tier = ?", tier).
		Order("kind DESC").
		Find(&out).Error
	return out, err
}

// Pick returns the tier's artifact of the given kind, or nil.
func (s *CatalogService) Pick(ctx context.Context, tier int64, kind models.MediaKind) (*models.RewardArtifact, error) {
	var a models.RewardArtifact
	err := s.DB.WithContext(ctx).Where("tier = ? AND kind = ?", tier, kind).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *CatalogService) Random(ctx context.Context) (*models.RewardArtifact, error) {
	var a models.RewardArtifact
	err := s.DB.WithContext(ctx).Order("RANDOM()").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmptyCatalog
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *CatalogService) List(ctx context.Context) ([]models.RewardArtifact, error) {
	var out []models.RewardArtifact
	err := s.DB.WithContext(ctx).Order("tier ASC, kind DESC").Find(&out).Error
	return out, err
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.RewardArtifact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

func (s *CatalogService) DeleteTier(ctx context.Context, tier int64) (int64, error) {
	res := s.DB.WithContext(ctx).Where("tier = ?", tier).Delete(&models.RewardArtifact{})
	return res.RowsAffected, res.Error
}

func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RewardArtifact{}).Count(&count).Error
	return count, err
}
