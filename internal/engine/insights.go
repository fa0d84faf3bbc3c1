package engine

import "strings"

// InsightRule maps a keyword set to a canned strategic commentary. The
// rules are business data, not logic: the engine evaluates them once per
// query with case-insensitive substring matching and appends the text of
// every matching rule, in table order.
type InsightRule struct {
	Keywords []string
	Text     string
}

// DefaultInsightRules returns the Europe's Gate commentary table.
func DefaultInsightRules() []InsightRule {
	return []InsightRule{
		{
			Keywords: []string{"steel", "slag", "energy", "hydrogen", "land"},
			Text: "💡 **Steel Island Synergy**: The 30M tons/year slag production (0.3 tons per ton steel) " +
				"reclaims 1.9 km² annually - this becomes the foundation for expanding the hydrogen hub AND " +
				"future circular economy businesses on the island.",
		},
		{
			Keywords: []string{"invest", "finance", "cost", "spv", "revenue", "roi"},
			Text: "💰 **Multi-SPV De-risking**: The project splits risk across Bridge (stable toll revenues), " +
				"Steel Island (industrial cash generator), and Hydrogen Hub (growth market). This structure " +
				"appeals to different investor types and distributes downside risk.",
		},
		{
			Keywords: []string{"governance", "timeline", "phase", "sprint", "closure", "management"},
			Text: "⏱️ **Critical Path Moments**: The 12-month sprint generates proof-of-concept (presales, heat Phase 1, EU bonds), " +
				"feeding momentum into the 18-month investment closure. Early visibility reduces investor perception of risk.",
		},
		{
			Keywords: []string{"eu", "green deal", "strategic", "policy", "funding", "subsidy", "csrd"},
			Text: "🇪🇺 **EU Strategic Alignment**: Europe's Gate delivers on EU Green Deal (emissions reduction), " +
				"autonomy agenda (green steel + hydrogen), and CSRD materiality (double-sided impact on emissions + market risk). " +
				"This positioning makes it attractive to EU funding instruments and institutional investors.",
		},
		{
			Keywords: []string{"construction", "engineering", "technical", "build", "modular", "dfma"},
			Text: "🏗️ **Modular Advantage**: DfMA (Design-for-Manufacture & Assembly) reduces construction time → lower financing costs. " +
				"Prefabrication also enables staged opening (segments as soon as functional) for early revenue generation.",
		},
		{
			Keywords: []string{"urban", "node", "city", "living lab", "tourism", "development"},
			Text: "🏙️ **Living Lab Value**: The 10+ circular nodes aren't just development - they're innovation hubs for " +
				"testing sustainable urban models. This creates IP licensing revenue (€50-100M/year executive education + licenses) " +
				"and attracts academic/corporate partnerships.",
		},
		{
			Keywords: []string{"risk", "mitigation", "challenge", "issue", "delay", "problem"},
			Text: "⚠️ **Risk Mitigation Structure**: 10 major risk categories have been mapped with specific mitigations " +
				"(permitting, market, construction, financial, operational, environmental, political, reputation, tech, timing). " +
				"Overall project risk assessed as MEDIUM with proper governance.",
		},
		{
			Keywords: []string{"circular", "sustainability", "circular economy", "waste", "recycl"},
			Text: "♻️ **Circularity Story**: >60% recycled materials in construction, >95% waste reduction, slag land reclamation, " +
				"waste heat networks, seaweed farming, vertical agriculture. This isn't greenwashing - it's structural to the business model.",
		},
	}
}

// buildInsights returns the concatenated commentary of every rule whose
// keyword set matches the query, or the empty string when none do.
func buildInsights(query string, rules []InsightRule) string {
	queryLower := strings.ToLower(query)

	var matched []string
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(queryLower, keyword) {
				matched = append(matched, rule.Text)
				break
			}
		}
	}
	return strings.Join(matched, "\n\n")
}
