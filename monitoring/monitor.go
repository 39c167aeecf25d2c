// Package monitoring turns a running simulation into a small web server so
// it can be paused, resumed, and inspected from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/chiplab/busfabric/timing"
)

// Engine is the part of the simulation engine the monitor controls.
type Engine interface {
	timing.TimeTeller
	Pause()
	Continue()
	Run() error
}

// Named is any component the monitor can list and inspect.
type Named interface {
	Name() string
}

// Monitor exposes a simulation over HTTP for external control and
// inspection.
type Monitor struct {
	engine     Engine
	portNumber int
	listener   net.Listener

	componentsLock sync.Mutex
	components     []Named

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected and replaced with a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e Engine) {
	m.engine = e
}

// RegisterComponent registers a component to be monitored.
func (m *Monitor) RegisterComponent(c Named) {
	m.componentsLock.Lock()
	defer m.componentsLock.Unlock()

	m.components = append(m.components, c)
}

// CreateProgressBar creates and registers a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the dashboard.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/", m.index)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener

	fmt.Fprintf(os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		_ = http.Serve(listener, r)
	}()
}

// StopServer stops the web server.
func (m *Monitor) StopServer() {
	if m.listener != nil {
		_ = m.listener.Close()
	}
}

// OpenDashboard opens the monitoring page in the default browser.
func (m *Monitor) OpenDashboard() {
	if m.listener == nil {
		return
	}

	port := m.listener.Addr().(*net.TCPAddr).Port
	_ = browser.OpenURL(fmt.Sprintf("http://localhost:%d", port))
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `<html><body><h1>busfabric monitor</h1><ul>
<li><a href="/api/now">now</a></li>
<li><a href="/api/list_components">components</a></li>
<li><a href="/api/resource">resource</a></li>
<li><a href="/api/progress">progress</a></li>
</ul></body></html>`)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.engine.CurrentTime())
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) run(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		err := m.engine.Run()
		if err != nil {
			panic(err)
		}
	}()
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.componentsLock.Lock()
	defer m.componentsLock.Unlock()

	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	rsp, err := json.Marshal(names)
	dieOnErr(err)

	_, err = w.Write(rsp)
	dieOnErr(err)
}

func (m *Monitor) listComponentDetails(
	w http.ResponseWriter,
	r *http.Request,
) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Named {
	m.componentsLock.Lock()
	defer m.componentsLock.Unlock()

	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)

	return nil
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := map[string]any{
		"cpu_percent": cpuPercent,
		"rss_bytes":   memInfo.RSS,
	}

	out, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(out)
	dieOnErr(err)
}

// collectProfile samples the process CPU profile for one second and returns
// the functions with the largest sample counts.
func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer

	err := pprof.StartCPUProfile(&buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.Parse(&buf)
	dieOnErr(err)

	samplesByFunc := make(map[string]int64)
	for _, s := range prof.Sample {
		if len(s.Location) == 0 || len(s.Location[0].Line) == 0 {
			continue
		}
		name := s.Location[0].Line[0].Function.Name
		samplesByFunc[name] += s.Value[0]
	}

	type funcSamples struct {
		Function string `json:"function"`
		Samples  int64  `json:"samples"`
	}

	top := make([]funcSamples, 0, len(samplesByFunc))
	for name, count := range samplesByFunc {
		top = append(top, funcSamples{Function: name, Samples: count})
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].Samples > top[j].Samples
	})
	if len(top) > 20 {
		top = top[:20]
	}

	out, err := json.Marshal(top)
	dieOnErr(err)

	_, err = w.Write(out)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	out, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(out)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
