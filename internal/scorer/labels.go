package scorer

// Label is the band a score falls into.
type Label string

const (
	NotCringe Label = "not_cringe"
	TryHard   Label = "try_hard"
	Meh       Label = "meh"
	Cringe    Label = "cringe"
	WTF       Label = "wtf"
)

// BandFromScore maps a 0..100 score to its label.
func BandFromScore(score int) Label {
	switch {
	case score < 20:
		return NotCringe
	case score < 40:
		return TryHard
	case score < 60:
		return Meh
	case score < 80:
		return Cringe
	default:
		return WTF
	}
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case NotCringe, TryHard, Meh, Cringe, WTF:
		return true
	}
	return false
}
