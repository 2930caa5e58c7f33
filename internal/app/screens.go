package app

// Screen represents the current view in the application
type Screen int

const (
	ScreenReview Screen = iota
	ScreenConfirmation
	ScreenDone
)

func (s Screen) String() string {
	names := []string{
		"Review",
		"Confirmation",
		"Done",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}
