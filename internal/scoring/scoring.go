package scoring

import "strings"

const (
	industryBonus = 30
	ratingBonus   = 10
	reviewsBonus  = 10

	ratingFloor  = 4.0
	reviewsFloor = 20
)

// Industries with a high appetite for process automation. Matching is a
// lowercase substring check against the business name; only the first
// match counts.
var highPotentialKeywords = []string{
	"steuerberater", "buchhaltung", "accounting", "tax",
	"immobilien", "hausverwaltung", "property",
	"personaldienstleister", "recruiting", "hr",
	"versicherung", "insurance",
	"rechtsanwalt", "law", "kanzlei",
	"marketing", "werbeagentur", "agency",
	"logistik", "spedition", "transport",
}

// Signals captures the discovery fields used for first-pass scoring.
// Absent fields score zero; they are never an error.
type Signals struct {
	Name         string
	Rating       float64
	ReviewsTotal int
}

// Score evaluates a discovered business. Deterministic, no I/O.
func Score(input Signals) int {
	score := 0

	name := strings.ToLower(input.Name)
	for _, keyword := range highPotentialKeywords {
		if strings.Contains(name, keyword) {
			score += industryBonus
			break
		}
	}

	if input.Rating >= ratingFloor {
		score += ratingBonus
	}
	if input.ReviewsTotal > reviewsFloor {
		score += reviewsBonus
	}

	return score
}

// Refine adds the website-derived automation potential to a first-pass
// score, producing the final score used for the qualification gate.
func Refine(score, automationPotential int) int {
	return score + automationPotential
}
