package tracing

import (
	"strconv"

	"github.com/chiplab/busfabric/fabric"
	"github.com/chiplab/busfabric/hooking"
)

// BusTracer is a hook that converts completed fabric transactions into
// tasks. Attach it to a crossbar with AcceptHook; one tracer can serve
// several fabrics, the task records where each transaction ran.
type BusTracer struct {
	writer TraceWriter
}

var _ hooking.Hook = (*BusTracer)(nil)

// NewBusTracer creates a BusTracer that writes through the given writer.
// The writer must already be initialized.
func NewBusTracer(writer TraceWriter) *BusTracer {
	return &BusTracer{writer: writer}
}

// Func implements hooking.Hook. Only transaction-end hooks produce a task;
// at that point the transaction record is complete.
func (t *BusTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != fabric.HookPosTransactionEnd {
		return
	}

	tr := ctx.Item.(*fabric.Transaction)

	t.writer.Write(Task{
		ID:         strconv.FormatUint(uint64(tr.ID), 10),
		Kind:       "bus_transaction",
		What:       transactionWhat(tr),
		Where:      ctx.Domain.(named).Name(),
		StartCycle: tr.IssueCycle,
		EndCycle:   tr.CompleteCycle,
		Detail:     tr,
	})
}

type named interface {
	Name() string
}

func transactionWhat(tr *fabric.Transaction) string {
	what := "read"
	if tr.Write {
		what = "write"
	}
	if tr.Target == fabric.UnmappedTarget {
		return "unmapped_" + what
	}

	return what
}
