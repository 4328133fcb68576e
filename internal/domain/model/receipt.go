package model

import "github.com/ethereum/go-ethereum/common"

// Receipt holds the fields of a mined transaction receipt the app cares about.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}
