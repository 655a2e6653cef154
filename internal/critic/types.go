package critic

// Finding is one raw issue record reported by the critic service. The
// ledger derives a stable issue identity from category, location, and
// description.
type Finding struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Report is the result of a one-shot grading call.
type Report struct {
	Score    float64   `json:"score"`
	Findings []Finding `json:"findings"`
}
