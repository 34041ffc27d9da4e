package rpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/DOIDFoundation/validator-rpc/types"
)

const encodingBase64 = "base64"

// config is the trailing configuration object most calls accept.
type config struct {
	Encoding   string           `json:"encoding,omitempty"`
	Commitment types.Commitment `json:"commitment,omitempty"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

// withContext is the result shape of calls answering at a slot.
type withContext struct {
	Context rpcContext      `json:"context"`
	Value   json.RawMessage `json:"value"`
}

type accountValue struct {
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (v *accountValue) info(account string, slot uint64) (types.AccountInfo, error) {
	info := types.AccountInfo{
		Account:    account,
		Slot:       slot,
		Lamports:   v.Lamports,
		Owner:      v.Owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
	}
	if len(v.Data) == 0 {
		return info, nil
	}
	if len(v.Data) != 2 || v.Data[1] != encodingBase64 {
		return info, fmt.Errorf("%w: %v", ErrUnexpectedEncoding, v.Data[1:])
	}
	data, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return info, fmt.Errorf("decode account data: %w", err)
	}
	info.Data = data
	return info, nil
}

// decodeAccount decodes a value holding an account or null. It reports
// false for null.
func decodeAccount(raw json.RawMessage, account string, slot uint64) (types.AccountInfo, bool, error) {
	var value *accountValue
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return types.AccountInfo{}, false, err
	}
	if value == nil {
		return types.AccountInfo{Account: account, Slot: slot}, false, nil
	}
	info, err := value.info(account, slot)
	return info, err == nil, err
}
