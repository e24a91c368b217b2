package matching

import "github.com/spigell/jobfit/internal/ats"

const (
	mustHaveWeight   = 40
	niceToHaveWeight = 20
	preferenceWeight = 30
	roleFamilyBonus  = 10

	severeMismatchThreshold = 0.3
	severeMismatchPenalty   = 15

	neutralPreference = 0.5
)

// Scorer scores postings for one profile and desired-role description.
// Keyword sets derived from the profile are built once.
type Scorer struct {
	combined      KeywordSet
	desired       KeywordSet
	desiredFamily RoleFamily

	// reason sets differ on purpose: education never counts toward reasons
	matchKeywords KeywordSet
	gapKeywords   KeywordSet
}

func NewScorer(profile ResumeProfile, desiredDescription string) *Scorer {
	resume := BuildKeywordSet(profile.Skills, profile.Experience, profile.Education, profile.Keywords)
	desired := BuildKeywordSet([]string{desiredDescription})

	return &Scorer{
		combined:      resume.Union(desired),
		desired:       desired,
		desiredFamily: InferRoleFamily(desiredDescription),
		matchKeywords: BuildKeywordSet(profile.Skills, profile.Keywords),
		gapKeywords:   BuildKeywordSet(profile.Skills, profile.Experience, profile.Keywords),
	}
}

// DesiredFamily is the role family inferred from the desired description.
func (s *Scorer) DesiredFamily() RoleFamily { return s.desiredFamily }

// Score computes the deterministic breakdown for one posting's requirements.
func (s *Scorer) Score(req JobRequirements) ScoreBreakdown {
	mustCov := Coverage(s.combined, req.MustHave)
	niceCov := Coverage(s.combined, req.NiceToHave)

	pref := neutralPreference
	jobKeywords := BuildKeywordSet(req.Keywords, req.Responsibilities)
	if s.desired.Len() > 0 && jobKeywords.Len() > 0 {
		pref = float64(s.desired.IntersectionSize(jobKeywords)) / float64(s.desired.Len())
	}

	bonus := 0
	if req.RoleFamily == s.desiredFamily {
		bonus = roleFamilyBonus
	}

	// conversions round each product and keep the compiler from fusing them
	base := float64(mustCov*mustHaveWeight) +
		float64(niceCov*niceToHaveWeight) +
		float64(pref*preferenceWeight) +
		float64(bonus)
	if mustCov < severeMismatchThreshold {
		base -= severeMismatchPenalty
	}

	return ScoreBreakdown{
		MustHaveCoverage:   mustCov,
		NiceToHaveCoverage: niceCov,
		PreferenceMatch:    pref,
		RoleFamilyBonus:    bonus,
		FinalScore:         clampScore(int(base)),
	}
}

// Evaluate scores and explains one posting.
func (s *Scorer) Evaluate(posting ats.Posting, req JobRequirements) MatchResult {
	breakdown := s.Score(req)
	return MatchResult{
		Posting:    posting,
		Score:      breakdown.FinalScore,
		WhyMatches: s.MatchReasons(req, breakdown),
		Gaps:       s.GapReasons(req),
		Breakdown:  breakdown,
	}
}

// Score is a convenience wrapper around NewScorer for a single posting.
func Score(profile ResumeProfile, req JobRequirements, desiredDescription string) ScoreBreakdown {
	return NewScorer(profile, desiredDescription).Score(req)
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
