package events

import (
	"github.com/DOIDFoundation/validator-rpc/types"
)

var (
	AccountChanged     = &FeedOf[types.AccountInfo]{}     // An account update arrived from the node.
	SlotChanged        = &FeedOf[types.SlotInfo]{}        // The node processed a new slot.
	SignatureConfirmed = &FeedOf[types.SignatureStatus]{} // A watched transaction reached its commitment.
	ConnectionLost     = &FeedOf[string]{}                // The websocket to the node closed, carries the endpoint.
)
