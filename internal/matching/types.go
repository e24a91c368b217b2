package matching

import (
	"strings"

	"github.com/spigell/jobfit/internal/ats"
)

// RoleFamily is a coarse job category.
type RoleFamily string

const (
	RoleEngineering RoleFamily = "engineering"
	RoleData        RoleFamily = "data"
	RoleDesign      RoleFamily = "design"
	RoleProduct     RoleFamily = "product"
	RoleMarketing   RoleFamily = "marketing"
	RoleSales       RoleFamily = "sales"
	RoleOperations  RoleFamily = "operations"
	RoleFinance     RoleFamily = "finance"
	RoleHR          RoleFamily = "hr"
	RoleLegal       RoleFamily = "legal"
	RoleOther       RoleFamily = "other"
)

// RoleFamilies lists every family in inference order, followed by RoleOther.
var RoleFamilies = []RoleFamily{
	RoleEngineering, RoleData, RoleDesign, RoleProduct, RoleMarketing,
	RoleSales, RoleOperations, RoleFinance, RoleHR, RoleLegal, RoleOther,
}

// ParseRoleFamily maps free text onto the closed family set, returning
// RoleOther for anything unknown.
func ParseRoleFamily(s string) RoleFamily {
	candidate := RoleFamily(strings.ToLower(strings.TrimSpace(s)))
	for _, family := range RoleFamilies {
		if family == candidate {
			return family
		}
	}
	return RoleOther
}

// ResumeProfile is the structured view of a candidate resume.
type ResumeProfile struct {
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
	Education  []string `json:"education"`
	Keywords   []string `json:"keywords"`
}

// Empty reports whether the profile carries no signal at all.
func (p ResumeProfile) Empty() bool {
	return len(p.Skills)+len(p.Experience)+len(p.Education)+len(p.Keywords) == 0
}

// JobRequirements is the structured view of one posting.
type JobRequirements struct {
	MustHave         []string   `json:"must_have"`
	NiceToHave       []string   `json:"nice_to_have"`
	Responsibilities []string   `json:"responsibilities"`
	RoleFamily       RoleFamily `json:"role_family"`
	Keywords         []string   `json:"keywords"`
}

// DefaultRequirements is used when a description is empty or extraction fails.
func DefaultRequirements() JobRequirements {
	return JobRequirements{
		MustHave:         []string{},
		NiceToHave:       []string{},
		Responsibilities: []string{},
		RoleFamily:       RoleOther,
		Keywords:         []string{},
	}
}

// ScoreBreakdown holds the components of a match score.
type ScoreBreakdown struct {
	MustHaveCoverage   float64 `json:"must_have_coverage"`
	NiceToHaveCoverage float64 `json:"nice_to_have_coverage"`
	PreferenceMatch    float64 `json:"preference_match"`
	RoleFamilyBonus    int     `json:"role_family_bonus"`
	FinalScore         int     `json:"final_score"`
}

// MatchResult is one ranked posting with its explanation.
type MatchResult struct {
	Posting    ats.Posting    `json:"job"`
	Score      int            `json:"match_score"`
	WhyMatches []string       `json:"why_matches"`
	Gaps       []string       `json:"gaps"`
	Breakdown  ScoreBreakdown `json:"-"`
}
