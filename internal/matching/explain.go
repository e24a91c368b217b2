package matching

import "fmt"

const (
	maxMatchedRequirements = 3
	mustHaveScan           = 5
	responsibilityScan     = 5
	niceToHaveScan         = 3
	minReasons             = 3
	maxReasons             = 6
	maxGaps                = 5

	fillerReason = "Profile shows relevant background"
	noGapsReason = "No significant gaps identified"
)

// MatchReasons explains why a posting fits. It always returns between three
// and six lines.
func (s *Scorer) MatchReasons(req JobRequirements, breakdown ScoreBreakdown) []string {
	reasons := make([]string, 0, maxReasons)

	for _, item := range coveredItems(s.matchKeywords, head(req.MustHave, mustHaveScan), maxMatchedRequirements) {
		reasons = append(reasons, fmt.Sprintf("Matches requirement: %s", item))
	}

	if items := coveredItems(s.matchKeywords, head(req.Responsibilities, responsibilityScan), 1); len(items) > 0 {
		reasons = append(reasons, fmt.Sprintf("Experience aligns with: %s", items[0]))
	}

	if items := coveredItems(s.matchKeywords, head(req.NiceToHave, niceToHaveScan), 1); len(items) > 0 {
		reasons = append(reasons, fmt.Sprintf("Has preferred skill: %s", items[0]))
	}

	if breakdown.RoleFamilyBonus > 0 {
		reasons = append(reasons, fmt.Sprintf("Role type matches desired: %s", req.RoleFamily))
	}

	for len(reasons) < minReasons {
		reasons = append(reasons, fillerReason)
	}

	return head(reasons, maxReasons)
}

// GapReasons lists at most five uncovered requirements, or a single sentinel
// line when nothing is missing.
func (s *Scorer) GapReasons(req JobRequirements) []string {
	var gaps []string
	for _, item := range req.MustHave {
		if !covered(s.gapKeywords, item) {
			gaps = append(gaps, fmt.Sprintf("Missing requirement: %s", item))
		}
	}
	for _, item := range req.NiceToHave {
		if !covered(s.gapKeywords, item) {
			gaps = append(gaps, fmt.Sprintf("Missing preferred skill: %s", item))
		}
	}

	if len(gaps) == 0 {
		return []string{noGapsReason}
	}
	return head(gaps, maxGaps)
}

// MatchReasons is the single-posting form of Scorer.MatchReasons.
func MatchReasons(profile ResumeProfile, req JobRequirements, breakdown ScoreBreakdown) []string {
	return NewScorer(profile, "").MatchReasons(req, breakdown)
}

// GapReasons is the single-posting form of Scorer.GapReasons.
func GapReasons(profile ResumeProfile, req JobRequirements) []string {
	return NewScorer(profile, "").GapReasons(req)
}

func coveredItems(keywords KeywordSet, items []string, limit int) []string {
	var out []string
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if covered(keywords, item) {
			out = append(out, item)
		}
	}
	return out
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
