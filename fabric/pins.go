package fabric

// RequestPins is the request half of a fabric handshake port. All fields are
// level signals that the driving side must re-present every cycle; a request
// is live only while both Cyc and Stb are high, and the driver must hold the
// identical payload until it samples Stall low at a clock edge.
type RequestPins struct {
	Cyc   bool
	Stb   bool
	We    bool
	Addr  uint32
	Sel   uint8
	WData uint32
}

// Live reports whether the pins carry a live request this cycle.
func (p RequestPins) Live() bool {
	return p.Cyc && p.Stb
}

// ResponsePins is the response half of a fabric handshake port. Stall is
// level-sensitive backpressure on the request channel. Ack and Err report
// the outcome of the oldest accepted request and are mutually exclusive.
type ResponsePins struct {
	Stall bool
	Ack   bool
	Err   bool
	RData uint32
}

// InitiatorPort is the fabric boundary facing one initiator. The initiator
// drives Req during its Eval phase; the fabric drives Rsp during the
// crossbar's Eval phase.
type InitiatorPort struct {
	Req RequestPins
	Rsp ResponsePins
}

// TargetPort is the fabric boundary facing one target. The fabric drives
// Req; the target drives Rsp. The shapes mirror the initiator side one hop
// further.
type TargetPort struct {
	Req RequestPins
	Rsp ResponsePins
}
