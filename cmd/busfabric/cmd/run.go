package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chiplab/busfabric/devices"
	"github.com/chiplab/busfabric/fabric"
	"github.com/chiplab/busfabric/simulation"
	"github.com/chiplab/busfabric/timing"
)

const targetWindowSize = 0x1_0000

var runFlags struct {
	numInitiators int
	numTargets    int
	numAccesses   int
	maxCycles     uint64
	memLatency    int
	policy        string
	seed          int64
	sqliteTrace   string
	csvTrace      string
	monitor       bool
	monitorPort   int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a randomized traffic workload through a crossbar",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.numInitiators, "initiators", 2,
		"number of bus initiators")
	f.IntVar(&runFlags.numTargets, "targets", 2,
		"number of bus targets, each owning a 64 KiB window")
	f.IntVar(&runFlags.numAccesses, "accesses", 64,
		"number of accesses issued per initiator")
	f.Uint64Var(&runFlags.maxCycles, "cycles", 100000,
		"maximum number of cycles to simulate")
	f.IntVar(&runFlags.memLatency, "latency", 1,
		"memory response latency in cycles")
	f.StringVar(&runFlags.policy, "policy", "fixed",
		"arbitration policy: fixed or roundrobin")
	f.Int64Var(&runFlags.seed, "seed", 1, "random seed for traffic")
	f.StringVar(&runFlags.sqliteTrace, "trace", "",
		"write a SQLite transaction trace to this path")
	f.StringVar(&runFlags.csvTrace, "csv-trace", "",
		"write a CSV transaction trace to this path")
	f.BoolVar(&runFlags.monitor, "monitor", false,
		"start the monitoring web server")
	f.IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"monitoring server port (default BUSFABRIC_MONITOR_PORT or random)")

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	policyFactory, err := policyFactoryByName(runFlags.policy)
	if err != nil {
		return err
	}

	simBuilder := simulation.MakeBuilder()
	if runFlags.monitor {
		simBuilder = simBuilder.WithMonitoring(monitorPort())
	}
	if runFlags.sqliteTrace != "" {
		simBuilder = simBuilder.WithSQLiteTrace(runFlags.sqliteTrace)
	}
	if runFlags.csvTrace != "" {
		simBuilder = simBuilder.WithCSVTrace(runFlags.csvTrace)
	}

	sim := simBuilder.Build()
	defer sim.Terminate()

	regions := make([]fabric.Region, runFlags.numTargets)
	for t := range regions {
		regions[t] = fabric.Region{
			Base: uint32(t * targetWindowSize),
			Mask: 0xFFFF_0000,
		}
	}

	xbar := fabric.MakeBuilder().
		WithInitiatorCount(runFlags.numInitiators).
		WithRegions(regions).
		WithPolicyFactory(policyFactory).
		WithTimeTeller(sim.Engine()).
		Build("Fabric")
	sim.RegisterFabric(xbar)

	rng := rand.New(rand.NewSource(runFlags.seed))

	gens := make([]*devices.TrafficGenerator, runFlags.numInitiators)
	for i := range gens {
		name := fmt.Sprintf("Gen%d", i)
		gens[i] = devices.NewTrafficGenerator(
			name, xbar.InitiatorPort(i), sim.Engine(),
			randomScript(rng, runFlags.numTargets, runFlags.numAccesses))
		sim.RegisterComponent(gens[i])
		sim.Clock().Connect(gens[i])
	}

	for t := 0; t < runFlags.numTargets; t++ {
		name := fmt.Sprintf("Mem%d", t)
		mem := devices.NewMemory(
			name, xbar.TargetPort(t), sim.Engine(),
			targetWindowSize, runFlags.memLatency)
		sim.RegisterComponent(mem)
		sim.Clock().Connect(mem)
	}

	// The crossbar combinationally consumes the generator and memory
	// levels, so it evaluates last.
	sim.Clock().Connect(xbar)
	sim.Clock().SetStopCondition(func() bool {
		for _, g := range gens {
			if !g.Done() {
				return false
			}
		}
		return true
	})

	if err := sim.Run(timing.VTimeInCycle(runFlags.maxCycles)); err != nil {
		return err
	}

	printSummary(sim.Engine().CurrentTime(), gens)

	return nil
}

func policyFactoryByName(name string) (func() fabric.ArbitrationPolicy, error) {
	switch name {
	case "fixed":
		return func() fabric.ArbitrationPolicy {
			return fabric.NewFixedPriority()
		}, nil
	case "roundrobin":
		return func() fabric.ArbitrationPolicy {
			return fabric.NewRoundRobin()
		}, nil
	default:
		return nil, fmt.Errorf("unknown arbitration policy %q", name)
	}
}

func monitorPort() int {
	if runFlags.monitorPort != 0 {
		return runFlags.monitorPort
	}

	if v := os.Getenv("BUSFABRIC_MONITOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}

	return 0
}

func randomScript(
	rng *rand.Rand,
	numTargets, numAccesses int,
) []devices.Access {
	script := make([]devices.Access, numAccesses)
	for i := range script {
		target := rng.Intn(numTargets)
		wordOffset := rng.Intn(targetWindowSize/4) * 4
		write := rng.Intn(2) == 1

		script[i] = devices.Access{
			Write: write,
			Addr:  uint32(target*targetWindowSize + wordOffset),
			Sel:   0xF,
			WData: rng.Uint32(),
		}
	}

	return script
}

func printSummary(now timing.VTimeInCycle, gens []*devices.TrafficGenerator) {
	fmt.Printf("simulation finished at cycle %d\n", now)

	for _, g := range gens {
		completed := g.Completed()
		errors := 0
		var totalLatency uint64
		for _, r := range g.Results()[:completed] {
			if r.Err {
				errors++
			}
			totalLatency += uint64(r.CompleteCycle - r.IssueCycle)
		}

		avg := 0.0
		if completed > 0 {
			avg = float64(totalLatency) / float64(completed)
		}

		fmt.Printf("%s: %d completed, %d errors, avg latency %.2f cycles\n",
			g.Name(), completed, errors, avg)
	}
}
