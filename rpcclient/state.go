package rpcclient

// State is the lifecycle state of an envelope.
//
//	Built -> Sent -> RepliedSuccess | RepliedError
//	                 RepliedSuccess -> Subscribed -> Unsubscribed
//
// Notifications received while Subscribed do not change the state.
type State uint8

const (
	StateBuilt State = iota
	StateSent
	StateRepliedSuccess
	StateRepliedError
	StateSubscribed
	StateUnsubscribed
)

var stateStrings = [...]string{
	StateBuilt:          "built",
	StateSent:           "sent",
	StateRepliedSuccess: "replied",
	StateRepliedError:   "replied-error",
	StateSubscribed:     "subscribed",
	StateUnsubscribed:   "unsubscribed",
}

func (s State) String() string {
	if int(s) < len(stateStrings) {
		return stateStrings[s]
	}
	return "unknown"
}

// Registered reports whether an envelope in this state sits in one of the
// client tables.
func (s State) Registered() bool {
	return s == StateSent || s == StateSubscribed
}
