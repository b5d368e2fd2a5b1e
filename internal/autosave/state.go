package autosave

// State is the save indicator shown next to the project title.
type State int

const (
	StateSaved State = iota
	StateUnsaved
	StateSaving
)

// String returns the label displayed for the state.
func (s State) String() string {
	switch s {
	case StateSaving:
		return "Saving"
	case StateUnsaved:
		return "Unsaved"
	default:
		return "Saved"
	}
}
