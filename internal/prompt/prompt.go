// Package prompt assembles the natural-language compatibility query sent to
// the reasoning service.
//
// Each Variant pairs a prompt template with a parser rule set; the three-line
// answer grammar below is a verbatim contract with the verdict parser, so a
// template and its rule set must always change together.
package prompt

import (
	"fmt"
	"strings"

	"github.com/velofit/fitcheck/pkg/perplexity"
)

// NotAvailable is rendered inside the prompt wherever an input is missing.
// The builder never fails on missing inputs.
const NotAvailable = "non disponible"

// Variant names one template + parser rule-set pair. Adding a compatibility
// sub-domain (cockpit, drivetrain, ...) means adding a variant, not branching
// the existing ones.
type Variant string

const (
	// VariantGeneral covers a resolved product against a free-text bike.
	VariantGeneral Variant = "general"
	// VariantCatalogPair covers both sides resolved from the catalog.
	VariantCatalogPair Variant = "catalog_pair"
	// VariantWheel covers wheels, brakes and axle sizing.
	VariantWheel Variant = "wheel"
	// VariantBottomBracket covers bottom-bracket standards.
	VariantBottomBracket Variant = "bottom_bracket"
)

// AnswerGrammar is the exact output format requested from the service. The
// verdict parser matches these labels verbatim.
const AnswerGrammar = `Réponds STRICTEMENT en trois lignes, au format suivant :
✅ Compatibilité : Oui ou Non
🧠 Niveau de confiance : Faible, Moyen ou Élevé
💬 Argumentation : justification en 80 caractères maximum`

const persona = `Tu es un mécanicien cycle expert. Tu évalues si une pièce détachée est compatible avec un vélo donné, en t'appuyant uniquement sur des caractéristiques techniques vérifiables.`

// Inputs carries whatever the pipeline managed to resolve for one check.
// Empty fields render as the NotAvailable placeholder.
type Inputs struct {
	BikeInfo        string // free-text bike description from the caller
	BikeCatalog     string // catalog description when the bike side matched a record
	ProductCatalog  string // catalog description of the product
	ProductScraped  string // H1 and description from a live scrape
	ProductCategory string // catalog category, drives the criteria set
}

var wheelKeywords = []string{"roue", "frein", "pneu", "wheel", "brake"}

var bottomBracketKeywords = []string{"boitier", "boîtier", "pedalier", "pédalier", "bottom bracket"}

// Select picks the variant from the resolved sources and product category.
func Select(in Inputs) Variant {
	category := strings.ToLower(in.ProductCategory)
	for _, kw := range wheelKeywords {
		if strings.Contains(category, kw) {
			return VariantWheel
		}
	}
	for _, kw := range bottomBracketKeywords {
		if strings.Contains(category, kw) {
			return VariantBottomBracket
		}
	}
	if in.BikeCatalog != "" && in.ProductCatalog != "" {
		return VariantCatalogPair
	}
	return VariantGeneral
}

var criteria = map[Variant]string{
	VariantGeneral: `- le type de freins et le standard de fixation
- le diamètre et la largeur des roues, tubeless ou chambre à air
- le type d'axe (serrage rapide ou axe traversant) et ses dimensions
- le nombre de vitesses de la transmission et la compatibilité entre marques
- les diamètres du poste de pilotage (cintre, potence, tige de selle)`,
	VariantCatalogPair: `- le type de freins et le standard de fixation
- le diamètre et la largeur des roues, tubeless ou chambre à air
- le type d'axe (serrage rapide ou axe traversant) et ses dimensions
- le nombre de vitesses de la transmission et la compatibilité entre marques
- les diamètres du poste de pilotage (cintre, potence, tige de selle)`,
	VariantWheel: `- le diamètre de roue (700c, 650b, 26", 27.5", 29")
- la largeur interne de jante et la compatibilité tubeless ou chambre à air
- le type d'axe (serrage rapide 9x100 mm, axe traversant 12x100 ou 12x142 mm)
- le type de freinage (patins ou disque, centerlock ou 6 trous)
- le nombre de vitesses de la cassette et le corps de roue libre`,
	VariantBottomBracket: `- la largeur du boîtier de pédalier (68, 73, 86.5, 92 mm)
- le diamètre du boîtier et de l'axe de pédalier
- le standard (BSA fileté, BB30, PF30, BB86/BB92, T47)
- la compatibilité avec le pédalier monté`,
}

// Build assembles the system and user messages for the given inputs and
// returns the selected variant. It never fails; missing inputs render as the
// NotAvailable placeholder.
func Build(in Inputs) ([]perplexity.Message, Variant) {
	v := Select(in)

	product := firstNonEmpty(in.ProductCatalog, in.ProductScraped)
	bike := firstNonEmpty(in.BikeCatalog, in.BikeInfo)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Vélo : %s\n", orPlaceholder(bike))
	fmt.Fprintf(&sb, "Pièce à vérifier : %s\n\n", orPlaceholder(product))
	sb.WriteString("Évalue la compatibilité de cette pièce avec ce vélo selon les critères suivants :\n")
	sb.WriteString(criteria[v])
	sb.WriteString("\n\n")
	sb.WriteString(AnswerGrammar)

	return []perplexity.Message{
		{Role: "system", Content: persona},
		{Role: "user", Content: sb.String()},
	}, v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
