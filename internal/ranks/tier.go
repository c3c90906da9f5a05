package ranks

import "fmt"

// RankUnknown is the display value for a failed lookup. Unknowns are cached
// like any other result so one bad code does not retry every render.
const RankUnknown = "Unknown"

// tierThresholds maps the exclusive upper rating bound to a tier name, in
// ascending order. Grandmaster and the Master tiers are handled separately
// because they depend on placement, not just rating.
var tierThresholds = []struct {
	below float64
	name  string
}{
	{766, "Bronze 1"},
	{914, "Bronze 2"},
	{1055, "Bronze 3"},
	{1189, "Silver 1"},
	{1316, "Silver 2"},
	{1436, "Silver 3"},
	{1549, "Gold 1"},
	{1654, "Gold 2"},
	{1752, "Gold 3"},
	{1843, "Platinum 1"},
	{1928, "Platinum 2"},
	{2004, "Platinum 3"},
	{2074, "Diamond 1"},
	{2137, "Diamond 2"},
	{2192, "Diamond 3"},
}

// TierFor maps a rating ordinal and current daily placements to a tier name.
// Players at 2192+ are Grandmaster only while holding a top regional (100) or
// global (300) daily placement; otherwise they fall through to Master.
func TierFor(rating float64, regionalPlacement, globalPlacement *int) string {
	for _, t := range tierThresholds {
		if rating < t.below {
			return t.name
		}
	}
	if rating >= 2192 {
		if (regionalPlacement != nil && *regionalPlacement <= 100) ||
			(globalPlacement != nil && *globalPlacement <= 300) {
			return "Grandmaster"
		}
	}
	switch {
	case rating < 2275:
		return "Master 1"
	case rating < 2350:
		return "Master 2"
	default:
		return "Master 3"
	}
}

// DisplayRank renders a fetched profile the way the browser UI does: the tier
// with the rating, "Unranked" for users without a ranked profile, and a
// season-reset marker for profiles that exist but carry no rating yet.
func DisplayRank(p Profile) string {
	if !p.HasRating() {
		if p.DisplayName != "" {
			return fmt.Sprintf("%s (Unranked Season)", p.DisplayName)
		}
		return "Unranked"
	}
	tier := TierFor(*p.RatingOrdinal, p.RegionalPlacement, p.GlobalPlacement)
	return fmt.Sprintf("%s (%.1f)", tier, *p.RatingOrdinal)
}
