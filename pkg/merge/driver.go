package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sink stores generated documents.
type Sink interface {
	// Save stores data under the file name and returns where it went
	Save(fileName string, data []byte) (string, error)
}

// DirSink writes documents into a directory, creating it when missing.
type DirSink struct {
	Dir string
}

// Save writes data to Dir/fileName, replacing any existing file.
func (s DirSink) Save(fileName string, data []byte) (path string, err error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", NewDocumentError("create directory", s.Dir, err)
	}
	path = filepath.Join(s.Dir, fileName)

	f, err := os.Create(path)
	if err != nil {
		return "", NewDocumentError("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = NewDocumentError("close", path, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", NewDocumentError("write", path, err)
	}
	return path, nil
}

// MemorySink keeps documents in memory, keyed by file name.
type MemorySink struct {
	mu    sync.Mutex
	Files map[string][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Files: make(map[string][]byte)}
}

func (s *MemorySink) Save(fileName string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[fileName] = append([]byte(nil), data...)
	return fileName, nil
}

// RecordStatus is the outcome of one record.
type RecordStatus string

const (
	StatusGenerated RecordStatus = "generated"
	StatusSkipped   RecordStatus = "skipped"
	StatusFailed    RecordStatus = "failed"
	StatusCancelled RecordStatus = "cancelled"
)

// RecordResult describes what happened to one record.
type RecordResult struct {
	Index    int
	Name     string
	FileName string
	Path     string
	Status   RecordStatus
	Err      error
	Stats    Stats
	Duration time.Duration
}

// BatchReport collects the results of a run, in record order.
type BatchReport struct {
	Template  string
	Results   []RecordResult
	Generated int
	Skipped   int
	Failed    int
	Cancelled int
	// Duplicates lists file names produced by more than one record; the last
	// write wins
	Duplicates []string
	Errors     *MultiError
	Started    time.Time
	Finished   time.Time
}

// Err returns the collected per-record errors, or nil.
func (r *BatchReport) Err() error {
	return r.Errors.Err()
}

// Paths returns the paths of generated documents in record order.
func (r *BatchReport) Paths() []string {
	var paths []string
	for _, res := range r.Results {
		if res.Status == StatusGenerated {
			paths = append(paths, res.Path)
		}
	}
	return paths
}

// Driver turns records into documents.
type Driver struct {
	Engine *Engine
	// Workers is the number of records rendered at once
	Workers int
	// NameField is the record field used to skip records and name files
	NameField string
	Logger    *Logger
	// OnResult, when set, is called once per record as it completes. Calls
	// are serialized.
	OnResult func(RecordResult)
}

// NewDriver creates a driver configured from the global configuration.
func NewDriver() *Driver {
	cfg := GetGlobalConfig()
	return &Driver{
		Engine:    NewEngine(),
		Workers:   cfg.Workers,
		NameField: cfg.Sheet.NameField,
	}
}

func (d *Driver) logger() *Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return GetLogger()
}

// Run renders one document per record and hands each to sink. Records are
// independent: a failing or panicking record is reported and the rest still
// run. Cancelling ctx stops new records from starting; records already
// running finish. The returned error is only set when the batch could not
// start or was cancelled; per-record failures are in the report.
func (d *Driver) Run(ctx context.Context, tmpl *Template, records []*Record, sink Sink) (*BatchReport, error) {
	if tmpl == nil {
		return nil, errors.New("merge: nil template")
	}
	if sink == nil {
		return nil, errors.New("merge: nil sink")
	}
	engine := d.Engine
	if engine == nil {
		engine = NewEngine()
	}
	nameField := d.NameField
	if nameField == "" {
		nameField = FieldName
	}
	log := d.logger().WithField("template", tmpl.Name)

	report := &BatchReport{
		Template: tmpl.Name,
		Results:  make([]RecordResult, len(records)),
		Errors:   NewMultiError(),
		Started:  time.Now(),
	}
	for i := range report.Results {
		report.Results[i] = RecordResult{Index: i, Status: StatusCancelled}
	}
	report.Duplicates = duplicateNames(records, nameField)
	for _, name := range report.Duplicates {
		log.Warn("more than one record produces %s; the last one overwrites the others", name)
	}

	var mu sync.Mutex
	finish := func(res RecordResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Results[res.Index] = res
		if d.OnResult != nil {
			d.OnResult(res)
		}
	}

	pool := NewPool(ctx, d.Workers)
	pool.Start()
	for i, rec := range records {
		ok := pool.Submit(JobFunc(func(context.Context) {
			finish(d.process(engine, tmpl, i, rec, nameField, sink, log))
		}))
		if !ok {
			break
		}
	}
	pool.Wait()

	for _, res := range report.Results {
		switch res.Status {
		case StatusGenerated:
			report.Generated++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
			report.Errors.Add(res.Err)
		case StatusCancelled:
			report.Cancelled++
		}
	}
	report.Finished = time.Now()

	log.Info("batch finished: %d generated, %d skipped, %d failed, %d cancelled",
		report.Generated, report.Skipped, report.Failed, report.Cancelled)

	if err := ctx.Err(); err != nil && report.Cancelled > 0 {
		return report, err
	}
	return report, nil
}

func (d *Driver) process(engine *Engine, tmpl *Template, index int, rec *Record, nameField string, sink Sink, log *Logger) (res RecordResult) {
	start := time.Now()
	res = RecordResult{Index: index}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = NewRecordError(index, res.Name, RecoverError(r))
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			log.Error("%v", res.Err)
		}
	}()

	name, ok := recordName(rec, nameField)
	if !ok {
		res.Status = StatusSkipped
		log.Debug("record %d skipped: %v", index, ErrMissingName)
		return res
	}
	res.Name = name
	res.FileName = SanitizeFileName(name) + ".docx"

	fail := func(err error) RecordResult {
		res.Status = StatusFailed
		res.Err = NewRecordError(index, name, err)
		return res
	}

	doc, err := tmpl.NewDocument()
	if err != nil {
		return fail(err)
	}
	stats, err := engine.Apply(doc.XML, Bind(rec))
	res.Stats = stats
	if err != nil {
		return fail(err)
	}
	data, err := doc.Bytes()
	if err != nil {
		return fail(WithContext(err, "serialize", Fields{"file": res.FileName}))
	}
	path, err := sink.Save(res.FileName, data)
	if err != nil {
		return fail(WithContext(err, "save", Fields{"file": res.FileName, "bytes": len(data)}))
	}

	res.Path = path
	res.Status = StatusGenerated
	log.WithFields(Fields{"record": index, "path": path}).Debug("document generated")
	return res
}

// recordName returns the trimmed identifying name of a record.
func recordName(rec *Record, field string) (string, bool) {
	v := rec.Get(field)
	if v.Kind() == KindMissing {
		return "", false
	}
	name := strings.TrimSpace(Normalize(v))
	return name, name != ""
}

func duplicateNames(records []*Record, field string) []string {
	seen := make(map[string]int)
	var dups []string
	for _, rec := range records {
		name, ok := recordName(rec, field)
		if !ok {
			continue
		}
		file := SanitizeFileName(name) + ".docx"
		seen[file]++
		if seen[file] == 2 {
			dups = append(dups, file)
		}
	}
	return dups
}

// Summary renders a one-line description of the report.
func (r *BatchReport) Summary() string {
	return fmt.Sprintf("%d generados, %d omitidos, %d con error", r.Generated, r.Skipped, r.Failed)
}
