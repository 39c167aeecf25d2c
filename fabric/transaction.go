package fabric

import (
	"github.com/chiplab/busfabric/hooking"
	"github.com/chiplab/busfabric/idgen"
	"github.com/chiplab/busfabric/timing"
)

var (
	// HookPosTransactionStart fires at the clock edge where a request is
	// accepted, either by a target arbiter or by a decoder's synthetic
	// unmapped-error path. Item is a *Transaction.
	HookPosTransactionStart = &hooking.HookPos{Name: "TransactionStart"}

	// HookPosTransactionEnd fires at the clock edge where the response for
	// an accepted request is delivered to its initiator. Item is the same
	// *Transaction, with RData, Err, and CompleteCycle filled in.
	HookPosTransactionEnd = &hooking.HookPos{Name: "TransactionEnd"}
)

// UnmappedTarget is the Transaction.Target value for requests that decoded
// to no permitted target and were answered by the synthetic error path.
const UnmappedTarget = -1

// A Transaction records one fabric transaction from acceptance to response.
type Transaction struct {
	ID        idgen.ID
	Initiator int
	Target    int
	Write     bool
	Addr      uint32
	Sel       uint8
	WData     uint32

	RData uint32
	Err   bool

	IssueCycle    timing.VTimeInCycle
	CompleteCycle timing.VTimeInCycle
}
