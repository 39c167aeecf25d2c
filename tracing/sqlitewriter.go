package tracing

import (
	"database/sql"
	"encoding/json"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteTraceWriter is a writer that writes trace data to a SQLite database.
type SQLiteTraceWriter struct {
	*sql.DB
	statement *sql.Stmt

	dbName           string
	tasksToWriteToDB []Task
	batchSize        int
}

var _ TraceWriter = (*SQLiteTraceWriter)(nil)

// NewSQLiteTraceWriter creates a new SQLiteTraceWriter. When path is empty
// a unique database name is generated.
func NewSQLiteTraceWriter(path string) *SQLiteTraceWriter {
	if path == "" {
		path = "busfabric_trace_" + xid.New().String()
	}

	w := &SQLiteTraceWriter{
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// Init establishes a connection to the database and creates the trace table.
func (w *SQLiteTraceWriter) Init() {
	w.createDatabase()
	w.createTable()
	w.prepareStatement()
}

// Write buffers a task, flushing when the batch is full.
func (w *SQLiteTraceWriter) Write(task Task) {
	w.tasksToWriteToDB = append(w.tasksToWriteToDB, task)
	if len(w.tasksToWriteToDB) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered tasks to the database.
func (w *SQLiteTraceWriter) Flush() {
	if len(w.tasksToWriteToDB) == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for _, task := range w.tasksToWriteToDB {
		detail := ""
		if task.Detail != nil {
			bytes, err := json.Marshal(task.Detail)
			if err != nil {
				panic(err)
			}
			detail = string(bytes)
		}

		_, err := w.statement.Exec(
			task.ID,
			task.Kind,
			task.What,
			task.Where,
			task.StartCycle,
			task.EndCycle,
			detail,
		)
		if err != nil {
			panic(err)
		}
	}

	w.tasksToWriteToDB = nil
}

// Close flushes pending tasks and closes the database connection.
func (w *SQLiteTraceWriter) Close() {
	w.Flush()
	if w.DB != nil {
		_ = w.DB.Close()
	}
}

func (w *SQLiteTraceWriter) createDatabase() {
	filename := w.dbName + ".sqlite3"

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db
}

func (w *SQLiteTraceWriter) createTable() {
	w.mustExecute(`
		CREATE TABLE IF NOT EXISTS trace (
			id          TEXT,
			kind        TEXT,
			what        TEXT,
			location    TEXT,
			start_cycle INTEGER,
			end_cycle   INTEGER,
			detail      TEXT
		)
	`)
}

func (w *SQLiteTraceWriter) prepareStatement() {
	stmt, err := w.Prepare(`
		INSERT INTO trace (
			id, kind, what, location, start_cycle, end_cycle, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		panic(err)
	}

	w.statement = stmt
}

func (w *SQLiteTraceWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		panic(query + " failed: " + err.Error())
	}

	return res
}
