package matching

import "strings"

type roleKeywords struct {
	family   RoleFamily
	keywords []string
}

// First match in table order wins, so "product design" resolves to design.
var roleTable = []roleKeywords{
	{RoleEngineering, []string{"engineer", "developer", "software", "swe", "backend", "frontend", "full-stack", "fullstack", "devops", "sre"}},
	{RoleData, []string{"data", "analyst", "analytics", "scientist", "ml", "machine learning", "ai", "bi"}},
	{RoleDesign, []string{"design", "ux", "ui", "product design", "graphic", "visual"}},
	{RoleProduct, []string{"product manager", "pm", "product owner", "product lead"}},
	{RoleMarketing, []string{"marketing", "growth", "seo", "content", "social media", "brand"}},
	{RoleSales, []string{"sales", "account", "business development", "bdr", "sdr"}},
	{RoleOperations, []string{"operations", "ops", "supply chain", "logistics"}},
	{RoleFinance, []string{"finance", "accounting", "financial", "controller", "treasury"}},
	{RoleHR, []string{"hr", "human resources", "recruiting", "recruiter", "people"}},
	{RoleLegal, []string{"legal", "counsel", "attorney", "lawyer", "compliance"}},
}

// InferRoleFamily returns the first family with a keyword contained in text.
// Matching is plain substring search, so short keywords such as "ai" also
// match inside longer words.
func InferRoleFamily(text string) RoleFamily {
	lower := strings.ToLower(text)
	for _, row := range roleTable {
		for _, keyword := range row.keywords {
			if strings.Contains(lower, keyword) {
				return row.family
			}
		}
	}
	return RoleOther
}
