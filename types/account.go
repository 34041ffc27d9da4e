package types

// Commitment is the confirmation level a node answers at.
type Commitment string

const (
	CommitmentDefault   Commitment = ""
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountInfo is the state of an account at a slot.
type AccountInfo struct {
	Account    string `json:"account"`
	Slot       uint64 `json:"slot"`
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// SlotInfo is published for every slot the node processes.
type SlotInfo struct {
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
	Slot   uint64 `json:"slot"`
}

// SignatureStatus is the outcome of a transaction, Err is empty on success.
type SignatureStatus struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Err       string `json:"err,omitempty"`
}

// Blockhash is a recent block hash with its fee schedule.
type Blockhash struct {
	Slot                 uint64 `json:"slot"`
	Blockhash            string `json:"blockhash"`
	LamportsPerSignature uint64 `json:"lamportsPerSignature"`
}
