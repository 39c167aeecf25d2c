package tracing

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/tebeka/atexit"
)

// CSVTraceWriter writes tasks to a CSV file, one row per task.
type CSVTraceWriter struct {
	path string
	file *os.File
	out  *csv.Writer
}

var _ TraceWriter = (*CSVTraceWriter)(nil)

// NewCSVTraceWriter creates a writer targeting the given file path.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	w := &CSVTraceWriter{path: path}

	atexit.Register(func() { w.Flush() })

	return w
}

// Init creates the output file and writes the header row.
func (w *CSVTraceWriter) Init() {
	file, err := os.Create(w.path)
	if err != nil {
		panic(err)
	}

	w.file = file
	w.out = csv.NewWriter(file)

	err = w.out.Write([]string{
		"id", "kind", "what", "location", "start_cycle", "end_cycle",
	})
	if err != nil {
		panic(err)
	}
}

// Write appends one task row.
func (w *CSVTraceWriter) Write(task Task) {
	err := w.out.Write([]string{
		task.ID,
		task.Kind,
		task.What,
		task.Where,
		strconv.FormatUint(uint64(task.StartCycle), 10),
		strconv.FormatUint(uint64(task.EndCycle), 10),
	})
	if err != nil {
		panic(err)
	}
}

// Flush forces buffered rows to the file.
func (w *CSVTraceWriter) Flush() {
	if w.out != nil {
		w.out.Flush()
	}
}

// Close flushes and closes the output file.
func (w *CSVTraceWriter) Close() {
	w.Flush()
	if w.file != nil {
		_ = w.file.Close()
	}
}
