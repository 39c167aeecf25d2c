package fabric

import (
	"github.com/chiplab/busfabric/hooking"
	"github.com/chiplab/busfabric/idgen"
	"github.com/chiplab/busfabric/timing"
)

// Builder can help building crossbars. The region table, permission matrix,
// and port counts are build-time configuration; nothing about the fabric is
// reconfigurable at runtime.
type Builder struct {
	numInitiators int
	regions       []Region
	perms         PermissionMatrix
	policyFactory func() ArbitrationPolicy
	timeTeller    timing.TimeTeller
	ids           idgen.Generator
}

// MakeBuilder creates a builder with fixed-priority arbitration as the
// default policy.
func MakeBuilder() Builder {
	return Builder{
		policyFactory: func() ArbitrationPolicy { return NewFixedPriority() },
		ids:           idgen.New(),
	}
}

// WithInitiatorCount sets the number of initiator-facing ports.
func (b Builder) WithInitiatorCount(n int) Builder {
	b.numInitiators = n
	return b
}

// WithRegions sets the per-target address regions. The number of targets is
// the number of regions.
func (b Builder) WithRegions(regions []Region) Builder {
	b.regions = regions
	return b
}

// WithPermissions sets the initiator×target permission matrix. When not
// given, every initiator may reach every target.
func (b Builder) WithPermissions(perms PermissionMatrix) Builder {
	b.perms = perms
	return b
}

// WithPolicyFactory sets the factory that creates one arbitration policy
// instance per target arbiter.
func (b Builder) WithPolicyFactory(f func() ArbitrationPolicy) Builder {
	b.policyFactory = f
	return b
}

// WithTimeTeller sets the time source used to stamp transactions.
func (b Builder) WithTimeTeller(tt timing.TimeTeller) Builder {
	b.timeTeller = tt
	return b
}

// WithIDGenerator sets the generator for transaction IDs.
func (b Builder) WithIDGenerator(ids idgen.Generator) Builder {
	b.ids = ids
	return b
}

// Build creates a crossbar.
func (b Builder) Build(name string) *Crossbar {
	b.initiatorCountMustBePositive()
	b.regionsMustBeGiven()
	b.timeTellerMustBeGiven()

	perms := b.perms
	if perms == nil {
		perms = FullPermissions(b.numInitiators, len(b.regions))
	}
	b.permissionsMustMatch(perms)

	c := &Crossbar{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		table:        RegionTable(b.regions),
		perms:        perms,
		timeTeller:   b.timeTeller,
		ids:          b.ids,
	}

	for i := 0; i < b.numInitiators; i++ {
		port := &InitiatorPort{}
		c.initiatorPorts = append(c.initiatorPorts, port)
		c.decoders = append(c.decoders, newDecoder(i, c, port))
	}

	for t := range b.regions {
		port := &TargetPort{}
		c.targetPorts = append(c.targetPorts, port)
		c.arbiters = append(c.arbiters,
			newArbiter(t, c, port, b.policyFactory()))
	}

	return c
}

func (b Builder) initiatorCountMustBePositive() {
	if b.numInitiators <= 0 {
		panic("crossbar requires at least one initiator")
	}
}

func (b Builder) regionsMustBeGiven() {
	if len(b.regions) == 0 {
		panic("crossbar requires at least one target region")
	}
}

func (b Builder) timeTellerMustBeGiven() {
	if b.timeTeller == nil {
		panic("crossbar requires a time teller")
	}
}

func (b Builder) permissionsMustMatch(perms PermissionMatrix) {
	if len(perms) != b.numInitiators {
		panic("permission matrix must have one row per initiator")
	}
	for _, row := range perms {
		if len(row) != len(b.regions) {
			panic("permission matrix must have one column per target")
		}
	}
}
