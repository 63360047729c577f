package pipeline

// State is a coordinator state.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateProbing
	StateResolving
	StateEncodingAndMuxing
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateExtracting:        "extracting",
	StateProbing:           "probing",
	StateResolving:         "resolving",
	StateEncodingAndMuxing: "encoding_and_muxing",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
