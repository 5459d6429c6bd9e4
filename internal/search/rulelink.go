package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RuleLinker rewrites ASLRB rule citations inside article snippets into
// hyperlinks. With no base URL configured the feature is disabled and text
// passes through untouched.
type RuleLinker struct {
	baseURL string
}

// NewRuleLinker returns a linker targeting the given rules document.
func NewRuleLinker(baseURL string) *RuleLinker {
	return &RuleLinker{baseURL: baseURL}
}

// manualRefRe matches author-inserted overrides: {:ruleid|caption:}.
// An empty ruleid means "render the caption as plain text" - it suppresses
// auto-linking for that span.
var manualRefRe = regexp.MustCompile(`\{:(.*?)\|(.*?):\}`)

// autoRefRe matches a rule id: an uppercase letter, up to three digits, a
// dot, one to five digits, and an optional trailing letter. Word boundaries
// are enforced separately since the pattern may legitimately follow
// punctuation.
var autoRefRe = regexp.MustCompile(`[A-Z][0-9]{0,3}\.[0-9]{1,5}[A-Za-z]?`)

// ruleRef is one span to rewrite: [start,end) in the original text, the link
// target (empty = no link), and the visible caption.
type ruleRef struct {
	start, end int
	ruleID     string
	caption    string
}

// Link rewrites every rule citation in text into an anchor pointing at the
// configured rules document. Manual overrides are located first and excluded
// from automatic detection.
func (l *RuleLinker) Link(text string) string {
	if l.baseURL == "" || text == "" {
		return text
	}

	var refs []ruleRef

	// Locate manual overrides and blank them out of the scan buffer so the
	// automatic pattern cannot fire inside them.
	scan := []byte(text)
	for _, m := range manualRefRe.FindAllSubmatchIndex(scan, -1) {
		refs = append(refs, ruleRef{
			start:   m[0],
			end:     m[1],
			ruleID:  strings.TrimSpace(text[m[2]:m[3]]),
			caption: strings.TrimSpace(text[m[4]:m[5]]),
		})
		for i := m[0]; i < m[1]; i++ {
			scan[i] = '\x01'
		}
	}

	refs = append(refs, l.findAutoRefs(scan, text)...)

	// Splice back-to-front so earlier offsets stay valid.
	sort.Slice(refs, func(i, j int) bool { return refs[i].start > refs[j].start })
	for _, ref := range refs {
		var repl string
		if ref.ruleID == "" {
			repl = ref.caption
		} else {
			repl = fmt.Sprintf(`<a href="%s#%s" class="aslrb" target="_blank">%s</a>`,
				l.baseURL, ref.ruleID, ref.caption)
		}
		text = text[:ref.start] + repl + text[ref.end:]
	}
	return text
}

// findAutoRefs runs automatic detection over the scan buffer (manual spans
// already blanked), resolving spans against the original text.
func (l *RuleLinker) findAutoRefs(scan []byte, text string) []ruleRef {
	var refs []ruleRef
	for _, m := range autoRefRe.FindAllIndex(scan, -1) {
		start, end := m[0], m[1]
		// An immediately-preceding word character disqualifies the match:
		// hex-looking fragments like "0xA1.5" are not citations. Leading
		// punctuation is fine.
		if start > 0 && isWordByte(scan[start-1]) {
			continue
		}
		ruleID := text[start:end]
		// Absorb a trailing range ("-45", "-.45") into the visible span.
		// The link target stays the base rule id.
		visibleEnd := absorbRange(scan, end)
		refs = append(refs, ruleRef{
			start:   start,
			end:     visibleEnd,
			ruleID:  ruleID,
			caption: text[start:visibleEnd],
		})
	}

	// Matches sharing a start offset keep only the longer span.
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].start != refs[j].start {
			return refs[i].start < refs[j].start
		}
		return refs[i].end > refs[j].end
	})
	out := refs[:0]
	lastStart := -1
	for _, ref := range refs {
		if ref.start == lastStart {
			continue
		}
		out = append(out, ref)
		lastStart = ref.start
	}
	return out
}

// absorbRange extends end past a "-digits" run with at most one embedded
// dot, so "C1.23-.45" displays as one linked unit. Returns the original end
// when no well-formed range follows.
func absorbRange(scan []byte, end int) int {
	if end >= len(scan) || scan[end] != '-' {
		return end
	}
	i := end + 1
	dots, digits := 0, 0
	for i < len(scan) {
		switch {
		case scan[i] >= '0' && scan[i] <= '9':
			digits++
		case scan[i] == '.' && dots == 0:
			dots++
		default:
			goto done
		}
		i++
	}
done:
	if digits == 0 {
		return end
	}
	return i
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
