package services

// Tier maps a counter value onto the reward tier it has reached.
func Tier(count, interval int64) int64 {
	if interval <= 0 || count <= 0 {
		return 0
	}
	return count / interval * interval
}

// WatermarkStrategy drives individual rewards: a tier is due only when it is
// above the highest tier already delivered. Bursts yield every skipped tier.
type WatermarkStrategy struct {
	Interval int64
}

// Due lists the tiers to deliver, ascending.
func (w WatermarkStrategy) Due(count, delivered int64) []int64 {
	target := Tier(count, w.Interval)
	if target <= 0 || target <= delivered {
		return nil
	}
	start := Tier(delivered, w.Interval) + w.Interval
	var tiers []int64
	for t := start; t <= target; t += w.Interval {
		tiers = append(tiers, t)
	}
	return tiers
}

// ModulusStrategy drives community announcements: every positive multiple of
// the interval fires, so a counter reset lets a tier fire again.
type ModulusStrategy struct {
	Interval int64
}

func (m ModulusStrategy) Due(count int64) (int64, bool) {
	if m.Interval <= 0 || count <= 0 || count%m.Interval != 0 {
		return 0, false
	}
	return count, true
}
