package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/deenlabs/agent-deen/internal/core/domain"
)

// Uploaded files are stored under a 12-hex content-hash prefix
// ("a1b2c3d4e5f6_BNM Murabahah.pdf"); strip it for display.
var hashPrefixRe = regexp.MustCompile(`^[a-f0-9]{12}[_\s]+`)

func cleanDisplayName(s string) string {
	return hashPrefixRe.ReplaceAllString(s, "")
}

// displayTitle prefers the document title, falling back to the filename,
// both cleaned of the storage hash prefix.
func displayTitle(meta domain.PassageMetadata) string {
	if meta.Title != "" && meta.Title != "Unknown" {
		return cleanDisplayName(meta.Title)
	}
	return cleanDisplayName(meta.Filename)
}

// assembleContext renders the surviving passages, best-first, as a numbered
// source-labelled block. Source numbers are 1-based positions in this filtered
// list, not retrieval ranks.
func assembleContext(passages []domain.Passage) string {
	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		source := p.Metadata.Source
		if source == "" {
			source = "Unknown"
		}

		var label strings.Builder
		fmt.Fprintf(&label, "[Source %d: %s", i+1, source)
		if title := displayTitle(p.Metadata); title != "" {
			fmt.Fprintf(&label, " - %s", title)
		}
		if p.Metadata.PageNumber > 0 {
			fmt.Fprintf(&label, ", Page %d", p.Metadata.PageNumber)
		}
		label.WriteString("]")

		parts = append(parts, label.String()+"\n"+p.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// extractSources converts the filtered passages into user-facing citations.
// Snippets come from the original untranslated text when the index stored one.
func extractSources(passages []domain.Passage, snippetRunes int) []domain.SourceRef {
	sources := make([]domain.SourceRef, 0, len(passages))
	for _, p := range passages {
		snippetText := p.Metadata.OriginalText
		if snippetText == "" {
			snippetText = p.Text
		}

		source := p.Metadata.Source
		if source == "" {
			source = "Unknown"
		}

		sources = append(sources, domain.SourceRef{
			Source:     source,
			File:       displayTitle(p.Metadata),
			Filename:   p.Metadata.Filename,
			Page:       p.Metadata.PageNumber,
			TotalPages: p.Metadata.TotalPages,
			Snippet:    truncateRunes(snippetText, snippetRunes),
			Score:      p.Score(),
		})
	}
	return sources
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
