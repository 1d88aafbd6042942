package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

const ImportBatchSize = 10

const (
	msgInvalidFile = "Please upload a valid CSV file."
	msgParseError  = "Error parsing CSV file."
)

// ImportPhase only moves forward: Upload → Map → Importing.
type ImportPhase uint8

const (
	ImportUpload ImportPhase = iota + 1
	ImportMap
	ImportImporting
)

func (p ImportPhase) String() string {
	switch p {
	case ImportUpload:
		return "upload"
	case ImportMap:
		return "map"
	case ImportImporting:
		return "importing"
	default:
		return ""
	}
}

func (p ImportPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type ImportState uint8

const (
	ImportPending ImportState = iota + 1
	ImportRunning
	ImportSucceeded
	ImportFailed
)

func (s ImportState) String() string {
	switch s {
	case ImportPending:
		return "pending"
	case ImportRunning:
		return "running"
	case ImportSucceeded:
		return "succeeded"
	case ImportFailed:
		return "failed"
	default:
		return ""
	}
}

func (s ImportState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ImportField is one target field of the lead schema a CSV column can map onto.
type ImportField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

var ImportFields = []ImportField{
	{Key: "name", Label: "Name", Required: true},
	{Key: "company", Label: "Company", Required: true},
	{Key: "email", Label: "Email", Required: true},
	{Key: "phone", Label: "Phone"},
	{Key: "value", Label: "Value"},
	{Key: "stage", Label: "Stage"},
}

func importField(key string) (ImportField, bool) {
	for _, f := range ImportFields {
		if f.Key == key {
			return f, true
		}
	}
	return ImportField{}, false
}

type ImportSnapshot struct {
	ID        string            `json:"id"`
	Phase     ImportPhase       `json:"phase"`
	State     ImportState       `json:"state"`
	FileName  string            `json:"file_name,omitempty"`
	Headers   []string          `json:"headers"`
	Rows      int               `json:"rows"`
	Fields    []ImportField     `json:"fields"`
	Mapping   map[string]string `json:"mapping"`
	CanImport bool              `json:"can_import"`
	Committed int               `json:"committed"`
	Progress  int               `json:"progress"`
	Error     string            `json:"error,omitempty"`
}

// ImportSession is one run of the import wizard. It is discarded on cancel or close.
type ImportSession struct {
	ID  string
	Now func() time.Time

	mu        sync.Mutex
	phase     ImportPhase
	state     ImportState
	fileName  string
	headers   []string
	rows      []map[string]string
	mapping   map[string]string
	committed int
	progress  int
	err       string
	done      chan struct{}
	doneOnce  sync.Once
}

func NewImportSession() *ImportSession {
	return &ImportSession{
		ID:      uuid.New().String(),
		Now:     time.Now,
		phase:   ImportUpload,
		state:   ImportPending,
		mapping: make(map[string]string),
		done:    make(chan struct{}),
	}
}

func wrongPhase(want, got ImportPhase) error {
	return &DomainError{
		Code:    "WRONG_IMPORT_PHASE",
		Message: fmt.Sprintf("import is in phase %s, expected %s", got, want),
	}
}

// Upload accepts a file by name or MIME type, parses it and moves to Map.
// On failure the session stays in Upload with the error recorded.
func (s *ImportSession) Upload(fileName, contentType string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != ImportUpload {
		return wrongPhase(ImportUpload, s.phase)
	}

	if !acceptsCSV(fileName, contentType) {
		s.err = msgInvalidFile
		return &DomainError{Code: "INVALID_FILE", Message: msgInvalidFile}
	}

	headers, rows, err := parseCSV(r)
	if err != nil {
		s.err = msgParseError
		return &DomainError{Code: "CSV_PARSE_ERROR", Message: msgParseError, Err: err}
	}

	s.fileName = fileName
	s.headers = headers
	s.rows = rows
	s.err = ""
	s.phase = ImportMap
	s.mapping = AutoMap(headers)
	return nil
}

func acceptsCSV(fileName, contentType string) bool {
	if strings.HasSuffix(fileName, ".csv") {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	return err == nil && media == "text/csv"
}

// parseCSV reads a header row followed by records keyed by header. Empty lines are
// skipped; a record whose field count differs from the header is an error.
func parseCSV(r io.Reader) ([]string, []map[string]string, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	raw, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("no header row")
	}
	if err != nil {
		return nil, nil, err
	}
	headers := uniqueHeaders(raw)

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// uniqueHeaders suffixes repeated header names with _1, _2, ...
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for _, h := range raw {
		taken[h] = true
	}

	out := make([]string, len(raw))
	for i, h := range raw {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		name := h + "_" + strconv.Itoa(n)
		for taken[name] {
			n++
			name = h + "_" + strconv.Itoa(n)
		}
		seen[h] = n + 1
		taken[name] = true
		out[i] = name
	}
	return out
}

// AutoMap pairs each field with the first header that contains its key or equals its label,
// both compared in lower case.
func AutoMap(headers []string) map[string]string {
	mapping := make(map[string]string, len(ImportFields))
	for _, f := range ImportFields {
		for _, h := range headers {
			lower := strings.ToLower(h)
			if strings.Contains(lower, f.Key) || lower == strings.ToLower(f.Label) {
				mapping[f.Key] = h
				break
			}
		}
	}
	return mapping
}

// SetMapping overrides the auto-mapping. An empty header clears the field.
func (s *ImportSession) SetMapping(mapping map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != ImportMap {
		return wrongPhase(ImportMap, s.phase)
	}

	var errs []ValidationError
	for key, header := range mapping {
		if _, ok := importField(key); !ok {
			errs = append(errs, ValidationError{key, "is not an import field"})
			continue
		}
		if header != "" && !containsString(s.headers, header) {
			errs = append(errs, ValidationError{key, fmt.Sprintf("column %q is not in the file", header)})
		}
	}
	if err := validationFailure(errs); err != nil {
		return err
	}

	for key, header := range mapping {
		if header == "" {
			delete(s.mapping, key)
			continue
		}
		s.mapping[key] = header
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *ImportSession) CanImport() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canImport()
}

func (s *ImportSession) canImport() bool {
	for _, f := range ImportFields {
		if f.Required && s.mapping[f.Key] == "" {
			return false
		}
	}
	return true
}

// Start moves a fully mapped session into Importing.
func (s *ImportSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != ImportMap {
		return wrongPhase(ImportMap, s.phase)
	}
	if !s.canImport() {
		return &DomainError{Code: "MAPPING_INCOMPLETE", Message: "map every required field before importing"}
	}
	s.phase = ImportImporting
	s.state = ImportRunning
	s.progress = 0
	s.committed = 0
	return nil
}

// Execute inserts the rows in batches, one at a time. The first failing batch halts
// the import; batches already committed stay committed.
func (s *ImportSession) Execute(ctx context.Context, inserter BatchInserter) error {
	defer s.doneOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	if s.state != ImportRunning {
		s.mu.Unlock()
		return wrongPhase(ImportImporting, s.phase)
	}
	rows := s.rows
	mapping := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		mapping[k] = v
	}
	s.mu.Unlock()

	total := len(rows)
	now := s.Now()

	for start := 0; start < total; start += ImportBatchSize {
		end := min(start+ImportBatchSize, total)

		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		batch := make([]entity.NewLead, 0, end-start)
		for _, row := range rows[start:end] {
			batch = append(batch, rowToLead(row, mapping, now))
		}

		if err := inserter.InsertBatch(ctx, batch); err != nil {
			return s.fail(err)
		}

		s.mu.Lock()
		s.committed += len(batch)
		s.progress = percent(s.committed, total)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.progress = 100
	s.state = ImportSucceeded
	s.mu.Unlock()
	return nil
}

func (s *ImportSession) fail(err error) error {
	s.mu.Lock()
	s.state = ImportFailed
	s.err = err.Error()
	committed := s.committed
	s.mu.Unlock()

	return &TechnicalError{
		Code:    "IMPORT_FAILED",
		Message: fmt.Sprintf("import stopped after %d rows: %v", committed, err),
		Err:     err,
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

func rowToLead(row, mapping map[string]string, now time.Time) entity.NewLead {
	get := func(key string) string {
		header := mapping[key]
		if header == "" {
			return ""
		}
		return strings.TrimSpace(row[header])
	}

	lead := entity.NewLead{
		Name:           get("name"),
		Company:        get("company"),
		Email:          get("email"),
		Value:          coerceValue(get("value")),
		Stage:          coerceStage(get("stage")),
		Tags:           []string{},
		LastActivityAt: now,
	}
	if phone := get("phone"); phone != "" {
		lead.Phone = &phone
	}
	return lead
}

func coerceValue(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func coerceStage(raw string) entity.Stage {
	stage, err := entity.ParseStage(raw)
	if err != nil {
		return entity.StageNew
	}
	return stage
}

// Done is closed when Execute returns.
func (s *ImportSession) Done() <-chan struct{} {
	return s.done
}

func (s *ImportSession) Snapshot() ImportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		mapping[k] = v
	}
	return ImportSnapshot{
		ID:        s.ID,
		Phase:     s.phase,
		State:     s.state,
		FileName:  s.fileName,
		Headers:   append([]string{}, s.headers...),
		Rows:      len(s.rows),
		Fields:    ImportFields,
		Mapping:   mapping,
		CanImport: s.canImport(),
		Committed: s.committed,
		Progress:  s.progress,
		Error:     s.err,
	}
}
