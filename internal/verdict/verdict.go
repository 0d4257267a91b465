// Package verdict turns the reasoning service's free-text answer into the
// fixed three-field compatibility result.
package verdict

// Compatibility is the closed verdict vocabulary.
type Compatibility string

const (
	Compatible           Compatibility = "compatible"
	Incompatible         Compatibility = "incompatible"
	CompatibilityUnknown Compatibility = "unknown"
)

// Confidence is the closed confidence vocabulary.
type Confidence string

const (
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceUnknown Confidence = "unknown"
)

// ArgumentUnavailable is the sentinel used when no justification could be
// extracted from the answer.
const ArgumentUnavailable = "argumentation non disponible"

// UnreliableSource is the fixed justification applied when the service's
// citations never reference the product under test.
const UnreliableSource = "source non fiable"

// Verdict is the output contract: all three fields are always present. A
// field whose value could not be parsed degrades to its sentinel, never to
// an empty string.
type Verdict struct {
	Compatibility Compatibility `json:"compatibility"`
	Confidence    Confidence    `json:"confidence"`
	Argument      string        `json:"argument"`
}

// Answer is the raw inference output under parse: the free text plus the
// citation URLs the service reported for it.
type Answer struct {
	Text      string
	Citations []string
}
