package services

import (
	"context"
	"errors"
	"log"
	"sort"

	"channel-unlock-bot/models"
	"channel-unlock-bot/utils"
)

// PendingUpload is one artifact received during a bulk session.
type PendingUpload struct {
	FileName   string
	ContentRef string
}

// IngestReport summarizes one finished batch.
type IngestReport struct {
	Processed int
	Skipped   int
	Errored   int
	Tiers     []int64 // tiers that received new entries, ascending
}

// IngestionPipeline orders a batch by the numbers in the file names and maps
// the Nth ordinal onto tier N*Interval.
type IngestionPipeline struct {
	Catalog  *CatalogService
	Interval int64
}

func NewIngestionPipeline(catalog *CatalogService, interval int64) *IngestionPipeline {
	return &IngestionPipeline{Catalog: catalog, Interval: interval}
}

type plannedEntry struct {
	upload  PendingUpload
	ordinal int
	kind    models.MediaKind
	tier    int64
}

// plan sorts and classifies a batch without touching the catalog. Uploads
// with equal ordinals keep their arrival order.
func (p *IngestionPipeline) plan(uploads []PendingUpload) []plannedEntry {
	entries := make([]plannedEntry, len(uploads))
	for i, u := range uploads {
		entries[i] = plannedEntry{upload: u, ordinal: utils.ParseOrdinal(u.FileName)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ordinal < entries[j].ordinal
	})
	for i := range entries {
		entries[i].kind = models.MediaFile
		if utils.IsImageFile(entries[i].upload.FileName) {
			entries[i].kind = models.MediaImage
		}
		entries[i].tier = int64(entries[i].ordinal) * p.Interval
	}
	return entries
}

// Ingest writes a batch into the catalog. Existing (tier, kind) entries are
// skipped, never overwritten.
func (p *IngestionPipeline) Ingest(ctx context.Context, uploads []PendingUpload) (*IngestReport, error) {
	report := &IngestReport{}
	seen := map[int64]bool{}

	for _, e := range p.plan(uploads) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := p.Catalog.Add(ctx, &models.RewardArtifact{
			Tier:       e.tier,
			Kind:       e.kind,
			ContentRef: e.upload.ContentRef,
			Name:       e.upload.FileName,
			Ordinal:    e.ordinal,
		})
		switch {
		case errors.Is(err, ErrArtifactExists):
			report.Skipped++
		case err != nil:
			report.Errored++
			log.Printf("[Bulk] ❌ %s (tier %d, %s): %v", e.upload.FileName, e.tier, e.kind, err)
		default:
			report.Processed++
			if !seen[e.tier] {
				seen[e.tier] = true
				report.Tiers = append(report.Tiers, e.tier)
			}
		}
	}
	log.Printf("[Bulk] batch ingested: processed=%d skipped=%d errored=%d tiers=%v",
		report.Processed, report.Skipped, report.Errored, report.Tiers)
	return report, nil
}
