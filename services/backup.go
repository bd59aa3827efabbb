package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"channel-unlock-bot/models"

	"github.com/gosimple/slug"
)

// ObjectUploader stores a blob under a key (R2 in production).
type ObjectUploader interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type catalogSnapshot struct {
	TakenAt   time.Time               `json:"taken_at"`
	Artifacts []models.RewardArtifact `json:"artifacts"`
}

// BackupService uploads JSON snapshots of the reward catalog.
type BackupService struct {
	Catalog  *CatalogService
	Uploader ObjectUploader

	now func() time.Time
}

// NewBackupService accepts a nil uploader; backups are then disabled.
func NewBackupService(catalog *CatalogService, uploader ObjectUploader) *BackupService {
	return &BackupService{Catalog: catalog, Uploader: uploader, now: time.Now}
}

func (b *BackupService) Enabled() bool {
	return b.Uploader != nil
}

// Run uploads a snapshot and returns its location.
func (b *BackupService) Run(ctx context.Context) (string, error) {
	if !b.Enabled() {
		return "", ErrBackupDisabled
	}
	artifacts, err := b.Catalog.List(ctx)
	if err != nil {
		return "", err
	}
	takenAt := b.now().UTC()
	body, err := json.MarshalIndent(catalogSnapshot{TakenAt: takenAt, Artifacts: artifacts}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode catalog snapshot: %w", err)
	}

	key := "catalog-backups/" + slug.Make(takenAt.Format("2006-01-02 15:04:05")) + ".json"
	location, err := b.Uploader.PutObject(ctx, key, "application/json", body)
	if err != nil {
		return "", err
	}
	log.Printf("[Backup] 💾 %d artifacts saved to %s", len(artifacts), location)
	return location, nil
}
