package verdict

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/velofit/fitcheck/internal/prompt"
)

// maxArgumentLen bounds the justification, matching what the prompt asks for.
const maxArgumentLen = 80

// RuleSet holds the patterns extracting the three verdict fields from one
// template's answer grammar. Compatibility and confidence patterns run on
// accent-folded text; the argument pattern runs on the original text so the
// justification keeps its accents.
type RuleSet struct {
	Compatibility *regexp.Regexp
	Confidence    *regexp.Regexp
	Argument      *regexp.Regexp
}

// threeLineRules matches the shared three-line answer grammar. Every current
// variant requests it verbatim; a variant that changes its template must get
// its own rule set in rulesByVariant at the same time.
var threeLineRules = RuleSet{
	Compatibility: regexp.MustCompile(`(?i)compatibilite\s*\**\s*:\s*\**\s*(oui|non)`),
	Confidence:    regexp.MustCompile(`(?i)niveau de confiance\s*\**\s*:\s*\**\s*(faible|moyen(?:ne)?|eleve?e?)`),
	Argument:      regexp.MustCompile(`(?i)argumentation\s*\**\s*:\s*\**\s*(.+)`),
}

var rulesByVariant = map[prompt.Variant]RuleSet{
	prompt.VariantGeneral:       threeLineRules,
	prompt.VariantCatalogPair:   threeLineRules,
	prompt.VariantWheel:         threeLineRules,
	prompt.VariantBottomBracket: threeLineRules,
}

// RulesFor returns the rule set paired with a prompt variant.
func RulesFor(v prompt.Variant) RuleSet {
	if rs, ok := rulesByVariant[v]; ok {
		return rs
	}
	return threeLineRules
}

// Parse extracts the three-field verdict from an answer using the rule set
// of the given variant. Each field degrades independently to its sentinel;
// Parse never fails.
func Parse(variant prompt.Variant, ans Answer) Verdict {
	rules := RulesFor(variant)
	folded := foldDiacritics(ans.Text)

	v := Verdict{
		Compatibility: CompatibilityUnknown,
		Confidence:    ConfidenceUnknown,
		Argument:      ArgumentUnavailable,
	}

	if m := rules.Compatibility.FindStringSubmatch(folded); m != nil {
		switch strings.ToLower(m[1]) {
		case "oui":
			v.Compatibility = Compatible
		case "non":
			v.Compatibility = Incompatible
		}
	}

	if m := rules.Confidence.FindStringSubmatch(folded); m != nil {
		switch {
		case strings.EqualFold(m[1], "faible"):
			v.Confidence = ConfidenceLow
		case strings.HasPrefix(strings.ToLower(m[1]), "moyen"):
			v.Confidence = ConfidenceMedium
		case strings.HasPrefix(strings.ToLower(m[1]), "eleve"):
			v.Confidence = ConfidenceHigh
		}
	}

	if m := rules.Argument.FindStringSubmatch(ans.Text); m != nil {
		arg := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
		if arg != "" {
			v.Argument = truncate(arg, maxArgumentLen)
		}
	}

	return v
}

// foldDiacritics strips combining marks so "Élevé" matches "eleve" patterns.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
