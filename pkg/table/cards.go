package table

// FaceDown is the detector label for a card whose back is visible.
// It is allowed in opponent hands and never in hero or board output.
const FaceDown = "card_back"

// Auxiliary detector labels consumed by the table sizer.
const (
	StackText   = "stack_text"
	AllInSymbol = "all_in_symbol"
)

const (
	ranks = "23456789TJQKA"
	suits = "cdhs"
)

var cardLabels = buildCardLabels()

func buildCardLabels() map[string]bool {
	m := make(map[string]bool, 53)
	for _, r := range ranks {
		for _, s := range suits {
			m[string(r)+string(s)] = true
		}
	}
	m[FaceDown] = true
	return m
}

// CardLabels returns the 52-card alphabet in rank-major order,
// followed by the face-down sentinel.
func CardLabels() []string {
	out := make([]string, 0, 53)
	for _, r := range ranks {
		for _, s := range suits {
			out = append(out, string(r)+string(s))
		}
	}
	return append(out, FaceDown)
}

// IsCardLabel reports whether label is a rank+suit code or the
// face-down sentinel.
func IsCardLabel(label string) bool {
	return cardLabels[label]
}
