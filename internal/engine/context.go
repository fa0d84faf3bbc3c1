package engine

import (
	"fmt"
	"strings"

	"github.com/klarifai/queen-rag/internal/domain"
)

const sectionSeparator = "\n\n---\n\n"

// buildContext renders ranked search hits into labeled sections, joined by
// a visible separator. Input order is preserved: hits arrive highest
// similarity first and the model is told so.
func buildContext(hits []domain.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		filename := "Unknown"
		if name, ok := hit.Metadata["filename"].(string); ok {
			filename = name
		}
		// Chroma metadata ints come back as float64 after the JSON
		// round-trip.
		chunkNum := metaInt(hit.Metadata["chunk"]) + 1
		total := metaInt(hit.Metadata["total_chunks"])

		parts = append(parts, fmt.Sprintf(
			"[📄 %s | Section %d/%d | Confidence: %.0f%%]\n%s",
			filename, chunkNum, total, hit.Score*100, hit.Content,
		))
	}
	return strings.Join(parts, sectionSeparator)
}

// contextMessage assembles the full RAG context system message: the
// retrieved sections, the cross-document synthesis instructions, and any
// heuristic insights for the query.
func contextMessage(hits []domain.SearchHit, insights string) string {
	var sb strings.Builder
	sb.WriteString("# Europe's Gate Knowledge Context\n\n")
	sb.WriteString("Relevant sections from the Europe's Gate knowledge base (ranked by relevance):\n\n")
	sb.WriteString(buildContext(hits))
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("**CRITICAL - Cross-Document Synthesis Instructions:**\n\n")
	fmt.Fprintf(&sb, "You have %d document sections above from different sources. Your job is to SYNTHESIZE:\n\n", len(hits))
	sb.WriteString("1. **CONNECT THE DOTS:**\n" +
		"   - How do these documents relate? What's the narrative thread?\n" +
		"   - What's consistent across documents? (validates the approach)\n" +
		"   - What's complementary? (Doc A has strategy, Doc B has execution)\n\n")
	sb.WriteString("2. **IDENTIFY CONFLICTS:**\n" +
		"   - Do any sections contradict each other?\n" +
		"   - Flag: 'Document A says X, but Document B suggests Y - this needs alignment'\n" +
		"   - Are there version differences or evolving strategies?\n\n")
	sb.WriteString("3. **SPOT THE GAPS:**\n" +
		"   - What's missing between these documents?\n" +
		"   - Doc A mentions X but doesn't detail it - is it covered elsewhere?\n" +
		"   - What questions can't be fully answered with available docs?\n\n")
	sb.WriteString("4. **BUILD THE NARRATIVE:**\n" +
		"   - Don't just quote - synthesize into a coherent story\n" +
		"   - Show cascading impacts: governance → finance → tech → operations\n" +
		"   - Cite specifically: [Sources: Doc1.md Section X + Doc2.md Section Y]\n\n")
	sb.WriteString("Remember: You're a strategic analyst, not a document summarizer. Synthesize insights across sources.\n")

	if insights != "" {
		sb.WriteString("\n**Strategic Insights for This Question:**\n\n")
		sb.WriteString(insights)
	}
	return sb.String()
}

func metaInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
