package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"channel-unlock-bot/models"
	"channel-unlock-bot/services"
	"channel-unlock-bot/utils"
)

var tierCaption = regexp.MustCompile(`(?i)^\s*tier\s+(\d+)\s*$`)

// parseTierCaption reads a single-upload caption of the form "tier N".
func parseTierCaption(caption string) (int64, bool) {
	m := tierCaption.FindStringSubmatch(caption)
	if m == nil {
		return 0, false
	}
	tier, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return tier, true
}

func imageName(name string) string { return utils.EnsureImageName(name) }

func isImageName(name string) bool { return utils.IsImageFile(name) }

func formatIngestReport(r *services.IngestReport) string {
	if r == nil {
		return "Nothing to ingest."
	}
	tiers := "none"
	if len(r.Tiers) > 0 {
		parts := make([]string, len(r.Tiers))
		for i, t := range r.Tiers {
			parts[i] = strconv.FormatInt(t, 10)
		}
		tiers = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("Added: %d\nSkipped (already present): %d\nErrors: %d\nTiers: %s",
		r.Processed, r.Skipped, r.Errored, tiers)
}

func formatCatalog(artifacts []models.RewardArtifact) []string {
	lines := make([]string, 0, len(artifacts)+1)
	lines = append(lines, fmt.Sprintf("🎁 Catalog (%d rewards)", len(artifacts)))
	for _, a := range artifacts {
		icon := "📄"
		if a.Kind == models.MediaImage {
			icon = "🖼"
		}
		lines = append(lines, fmt.Sprintf("%s tier %d · %s · %s", icon, a.Tier, a.Name, a.ID))
	}
	return lines
}

func formatChannelPost(p *models.ChannelPost) string {
	part := func(id *int) string {
		if id == nil {
			return "failed"
		}
		return "sent"
	}
	return fmt.Sprintf("📣 Posted tier %d to the channel (community count %d)\nImage: %s, file: %s",
		p.Tier, p.CommunityCount, part(p.ImageMessageID), part(p.FileMessageID))
}

// chunkLines joins lines into messages no longer than limit bytes.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var sb strings.Builder
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+len(line)+1 > limit {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}
