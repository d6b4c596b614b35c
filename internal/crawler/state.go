package crawler

// State is a category's position in the crawl pipeline. Transitions only move
// forward: CountProbe, then Listing, then DetailFetch, ending in one of the
// terminal states.
type State int

// States.
const (
	StateCountProbe State = iota
	StateListing
	StateDetailFetch

	StateEmpty  // Count probe or listing found nothing
	StateFailed // A stage request or decode failed
	StateDone   // Every listing entry went through detail fetch
)

var stateNames = [...]string{
	StateCountProbe:  "count_probe",
	StateListing:     "listing",
	StateDetailFetch: "detail_fetch",
	StateEmpty:       "empty",
	StateFailed:      "failed",
	StateDone:        "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= StateEmpty
}
