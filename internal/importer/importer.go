// Package importer loads vocabulary and grammar topics from spreadsheets.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/store"
)

// TopicsSheet is the workbook sheet read as the grammar topic catalog.
const TopicsSheet = "topics"

// Options controls how rows become words.
type Options struct {
	Owner string
	// Sheet is the workbook sheet holding words. Empty picks a sheet
	// named "words", else the first sheet that is not TopicsSheet.
	Sheet string
	// Defaults for rows that leave a column blank. When a default is
	// empty and an assessor is set, the assessor fills the column in.
	DefaultLevel lang.Level
	DefaultPOS   lang.PartOfSpeech
}

// Result reports what an import did. Row problems do not abort the import;
// they are collected in Errors and the row is skipped.
type Result struct {
	Processed int
	Created   int
	Skipped   int // already present for the owner
	Topics    int
	Errors    []RowError
}

// RowError is a rejected input row. Row is 1-based as shown by spreadsheet
// applications.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e RowError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Importer writes imported rows through the store. Each file is imported
// in one transaction.
type Importer struct {
	backend  store.Backend
	assessor contentgen.Assessor
	log      *logging.Logger
}

func New(backend store.Backend, log *logging.Logger) *Importer {
	return &Importer{backend: backend, log: logging.OrNop(log).With("component", "importer")}
}

// SetAssessor lets rows without a part of speech, level or translation be
// completed by the assessor before they are written. Nil turns assessment off.
func (im *Importer) SetAssessor(a contentgen.Assessor) {
	im.assessor = a
}

// ImportFile dispatches on the file extension: .csv is read as words,
// .xlsx/.xlsm as a workbook.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return im.ImportCSV(ctx, f, opts)
	case ".xlsx", ".xlsm":
		return im.ImportWorkbook(ctx, f, opts)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", ext)
	}
}

// ImportCSV reads words from CSV.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if opts.Owner == "" {
		return nil, errors.New("import: owner is required")
	}
	words := im.prepareWords(ctx, "", rows, opts)
	return im.run(ctx, opts, func(repos store.Repos, res *Result) error {
		return im.writeWords(ctx, repos, words, opts, res)
	})
}

// ImportWorkbook reads words from the words sheet and, when present, the
// topic catalog from TopicsSheet.
func (im *Importer) ImportWorkbook(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	wordSheet := opts.Sheet
	if wordSheet == "" {
		wordSheet = pickWordSheet(sheets)
	}

	var wordRows, topicRows [][]string
	if wordSheet != "" {
		if wordRows, err = wb.GetRows(wordSheet); err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", wordSheet, err)
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(s, TopicsSheet) {
			if topicRows, err = wb.GetRows(s); err != nil {
				return nil, fmt.Errorf("read sheet %s: %w", s, err)
			}
		}
	}
	if wordRows == nil && topicRows == nil {
		return nil, errors.New("workbook has no words or topics sheet")
	}
	if opts.Owner == "" {
		return nil, errors.New("import: owner is required")
	}

	words := im.prepareWords(ctx, wordSheet, wordRows, opts)
	return im.run(ctx, opts, func(repos store.Repos, res *Result) error {
		if err := im.importTopics(ctx, repos, TopicsSheet, topicRows, res); err != nil {
			return err
		}
		return im.writeWords(ctx, repos, words, opts, res)
	})
}

func pickWordSheet(sheets []string) string {
	for _, s := range sheets {
		if strings.EqualFold(s, "words") {
			return s
		}
	}
	for _, s := range sheets {
		if !strings.EqualFold(s, TopicsSheet) {
			return s
		}
	}
	return ""
}

func (im *Importer) run(ctx context.Context, opts Options, fn func(store.Repos, *Result) error) (*Result, error) {
	res := &Result{}
	err := im.backend.WithTx(ctx, func(r store.Repos) error {
		*res = Result{}
		return fn(r, res)
	})
	if err != nil {
		return nil, err
	}
	im.log.Info("import finished",
		"owner", opts.Owner,
		"processed", res.Processed,
		"created", res.Created,
		"skipped", res.Skipped,
		"topics", res.Topics,
		"rejected", len(res.Errors),
	)
	return res, nil
}

// wordBatch is a sheet of parsed, and possibly assessed, words waiting to
// be written.
type wordBatch struct {
	processed int
	rows      []parsedRow
	errors    []RowError
}

type parsedRow struct {
	row  int
	word *store.Word
}

func (im *Importer) prepareWords(ctx context.Context, sheet string, rows [][]string, opts Options) *wordBatch {
	b := &wordBatch{}
	if len(rows) == 0 {
		return b
	}
	cols, hasHeader := wordColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
	}

	var parsed []parsedRow
	for i := start; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		b.processed++
		w, err := parseWord(rows[i], cols, opts)
		if err != nil {
			b.errors = append(b.errors, RowError{Sheet: sheet, Row: i + 1, Err: err})
			continue
		}
		parsed = append(parsed, parsedRow{row: i + 1, word: w})
	}

	im.assess(ctx, parsed)

	for _, p := range parsed {
		if err := checkWord(p.word); err != nil {
			b.errors = append(b.errors, RowError{Sheet: sheet, Row: p.row, Err: err})
			continue
		}
		b.rows = append(b.rows, p)
	}
	sort.SliceStable(b.errors, func(i, j int) bool { return b.errors[i].Row < b.errors[j].Row })
	return b
}

// assess completes words that lack a part of speech, a level or a
// translation. When the assessor fails, part of speech and level fall back
// to noun and A1 and a missing translation still rejects the row.
func (im *Importer) assess(ctx context.Context, rows []parsedRow) {
	if im.assessor == nil {
		return
	}
	var (
		pending []*store.Word
		queries []contentgen.WordQuery
	)
	for _, p := range rows {
		if needsAssessment(p.word) {
			pending = append(pending, p.word)
			queries = append(queries, contentgen.WordQuery{Target: p.word.Target, Native: p.word.Native})
		}
	}
	if len(pending) == 0 {
		return
	}

	assessed, err := im.assessor.Assess(ctx, queries)
	if err != nil || len(assessed) != len(pending) {
		im.log.Warn("word assessment failed, using defaults", "words", len(pending), "error", err)
		for _, w := range pending {
			applyAssessment(w, contentgen.Assessment{PartOfSpeech: lang.Noun, Level: lang.LevelA1})
		}
		return
	}
	for i, w := range pending {
		applyAssessment(w, assessed[i])
	}
	im.log.Debug("words assessed", "words", len(pending))
}

func needsAssessment(w *store.Word) bool {
	return w.Native == "" || w.PartOfSpeech == "" || w.Level == ""
}

// applyAssessment fills only the fields the row left empty.
func applyAssessment(w *store.Word, a contentgen.Assessment) {
	if w.Native == "" {
		w.Native = a.Native
	}
	if w.PartOfSpeech == "" {
		w.PartOfSpeech = a.PartOfSpeech
	}
	if w.Level == "" {
		w.Level = a.Level
	}
	if w.Gender == lang.GenderNone && w.PartOfSpeech == lang.Noun && a.PartOfSpeech == lang.Noun {
		w.Gender = a.Gender
	}
}

func (im *Importer) writeWords(ctx context.Context, repos store.Repos, b *wordBatch, opts Options, res *Result) error {
	res.Processed += b.processed
	res.Errors = append(res.Errors, b.errors...)
	for _, p := range b.rows {
		// Rows are written from copies so a retried transaction starts
		// from the parsed state.
		w := *p.word
		_, err := repos.Words().FindByText(ctx, opts.Owner, w.Native, w.Target)
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("row %d: %w", p.row, err)
		}
		if err := repos.Words().Create(ctx, &w); err != nil {
			return fmt.Errorf("row %d: %w", p.row, err)
		}
		res.Created++
	}
	return nil
}

func (im *Importer) importTopics(ctx context.Context, repos store.Repos, sheet string, rows [][]string, res *Result) error {
	if len(rows) == 0 {
		return nil
	}
	cols, hasHeader := topicColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
	}
	for i := start; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		t, err := parseTopic(rows[i], cols)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Sheet: sheet, Row: i + 1, Err: err})
			continue
		}
		if err := repos.Topics().UpsertTopic(ctx, t); err != nil {
			return fmt.Errorf("topic row %d: %w", i+1, err)
		}
		res.Topics++
	}
	return nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
