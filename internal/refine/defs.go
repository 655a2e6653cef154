package refine

// PassDef describes one of the fixed revision passes. Every iteration
// runs all five in order, each scoped to its own issue category.
type PassDef struct {
	Name     string
	Category string
	Focus    string
	// SeverityFloor is the lowest severity the pass will batch. Early
	// passes skip nice-to-have findings so big problems land first.
	SeverityFloor string
}

var Passes = [5]PassDef{
	{
		Name:          "structure",
		Category:      "structure",
		Focus:         "Overall document structure: section ordering, missing or redundant sections, abstract and conclusion alignment.",
		SeverityFloor: "P1",
	},
	{
		Name:          "coherence",
		Category:      "coherence",
		Focus:         "Section-level coherence: transitions between sections, consistent terminology, forward and backward references.",
		SeverityFloor: "P1",
	},
	{
		Name:          "paragraphs",
		Category:      "paragraph",
		Focus:         "Paragraph quality: topic sentences, paragraph length, one idea per paragraph, logical flow within sections.",
		SeverityFloor: "P2",
	},
	{
		Name:          "sentences",
		Category:      "sentence",
		Focus:         "Sentence refinement: wordiness, passive voice, ambiguous pronouns, grammar.",
		SeverityFloor: "P2",
	},
	{
		Name:          "polish",
		Category:      "polish",
		Focus:         "Final polish: notation consistency, citation placement, figure and table references, typos.",
		SeverityFloor: "P2",
	},
}

// PassByName returns the definition for name, or false when no pass
// carries it.
func PassByName(name string) (PassDef, bool) {
	for _, def := range Passes {
		if def.Name == name {
			return def, true
		}
	}
	return PassDef{}, false
}
