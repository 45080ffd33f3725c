package fieldmap

import "strings"

// GeneralNiche is used when no keyword matches.
const GeneralNiche = "General"

type nicheRule struct {
	niche    string
	keywords []string
}

// Checked in order; the first niche with any matching keyword wins, so
// Technology must stay ahead of Business and Marketing.
var nicheRules = []nicheRule{
	{"Technology", []string{"tech", "software", "digital", "app", "ai", "dev", "code", "cyber", "data"}},
	{"Finance", []string{"finance", "money", "invest", "crypto", "trading", "bank", "fintech", "payment"}},
	{"Health", []string{"health", "medical", "wellness", "fitness", "care", "medicine", "doctor"}},
	{"Marketing", []string{"marketing", "seo", "social", "brand", "advertising", "growth"}},
	{"Business", []string{"business", "startup", "entrepreneur", "corporate", "enterprise"}},
	{"News", []string{"news", "daily", "times", "post", "press", "media", "journal"}},
	{"Lifestyle", []string{"life", "style", "fashion", "travel", "food", "home", "living"}},
	{"Real Estate", []string{"real estate", "property", "housing", "realty"}},
}

// InferNiche guesses a niche from the domain and optional description.
func InferNiche(domain, description string) string {
	text := strings.ToLower(domain + " " + description)
	for _, rule := range nicheRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.niche
			}
		}
	}
	return GeneralNiche
}

// NicheCategory is how a niche's catalog category is presented.
type NicheCategory struct {
	Icon         string
	DisplayOrder int
}

var nicheCategories = map[string]NicheCategory{
	"Technology":  {"Cpu", 10},
	"Finance":     {"DollarSign", 9},
	"Marketing":   {"Megaphone", 8},
	"Business":    {"Briefcase", 7},
	"Health":      {"Heart", 6},
	"News":        {"Newspaper", 5},
	"Lifestyle":   {"Sparkles", 4},
	"Real Estate": {"Home", 3},
	GeneralNiche:  {"Globe", 1},
}

// CategoryFor returns the presentation of niche's category. Unknown niches
// get a folder icon and sort last.
func CategoryFor(niche string) NicheCategory {
	if c, ok := nicheCategories[niche]; ok {
		return c
	}
	return NicheCategory{Icon: "Folder"}
}
