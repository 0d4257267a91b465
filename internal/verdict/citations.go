package verdict

import "strings"

// ApplyCitations validates source traceability. When citations exist but none
// of them reference the normalized product key, the verdict is forced to
// incompatible with the fixed UnreliableSource justification, whatever the
// answer text asserted. No citations at all leaves the verdict untouched.
func ApplyCitations(v Verdict, citations []string, productKey string) Verdict {
	if len(citations) == 0 || productKey == "" {
		return v
	}
	for _, c := range citations {
		if strings.Contains(strings.ToLower(c), productKey) {
			return v
		}
	}
	return Verdict{
		Compatibility: Incompatible,
		Confidence:    v.Confidence,
		Argument:      UnreliableSource,
	}
}
