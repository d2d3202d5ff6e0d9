package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/store"
)

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, nil), s
}

func opts() Options {
	return Options{Owner: "ana", DefaultLevel: lang.LevelA1}
}

const wordsCSV = `Croatian,English,POS,Gender,Level
kuća,house,noun,f,A1
pisati,to write,verb,,A2
lijep,beautiful,adj,,
kuća,house,noun,f,A1
,empty,noun,,A1
stol,table,gerund,,A1
`

func TestImportCSV_WithHeader(t *testing.T) {
	im, s := newTestImporter(t)
	ctx := context.Background()

	res, err := im.ImportCSV(ctx, strings.NewReader(wordsCSV), opts())
	require.NoError(t, err)

	assert.Equal(t, 6, res.Processed)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Skipped, "repeated row is a duplicate")
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 6, res.Errors[0].Row)
	assert.Equal(t, 7, res.Errors[1].Row)

	words, err := s.Words().List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, words, 3)

	byTarget := map[string]store.Word{}
	for _, w := range words {
		byTarget[w.Target] = w
	}
	assert.Equal(t, lang.GenderFeminine, byTarget["kuća"].Gender)
	assert.Equal(t, lang.LevelA2, byTarget["pisati"].Level)
	assert.Equal(t, lang.LevelA1, byTarget["lijep"].Level, "blank level takes the default")
	assert.Equal(t, lang.Adjective, byTarget["lijep"].PartOfSpeech)
	kuca := byTarget["kuća"]
	assert.Equal(t, 0, kuca.Attempts())
}

func TestImportCSV_ReimportSkipsEverything(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()

	_, err := im.ImportCSV(ctx, strings.NewReader(wordsCSV), opts())
	require.NoError(t, err)
	res, err := im.ImportCSV(ctx, strings.NewReader(wordsCSV), opts())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 4, res.Skipped)
}

func TestImportCSV_PositionalColumns(t *testing.T) {
	im, s := newTestImporter(t)
	ctx := context.Background()
	o := opts()
	o.DefaultPOS = lang.Phrase

	res, err := im.ImportCSV(ctx, strings.NewReader("dobar dan,good day\nhvala,thank you,,,B1\n"), o)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	w, err := s.Words().FindByText(ctx, "ana", "thank you", "hvala")
	require.NoError(t, err)
	assert.Equal(t, lang.Phrase, w.PartOfSpeech)
	assert.Equal(t, lang.LevelB1, w.Level)
}

func TestImportCSV_MissingPOSWithoutDefault(t *testing.T) {
	im, _ := newTestImporter(t)
	res, err := im.ImportCSV(context.Background(), strings.NewReader("dobar dan,good day\n"), opts())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "row 1")
}

func TestImportCSV_OwnersAreSeparate(t *testing.T) {
	im, s := newTestImporter(t)
	ctx := context.Background()
	_, err := im.ImportCSV(ctx, strings.NewReader(wordsCSV), opts())
	require.NoError(t, err)

	o := opts()
	o.Owner = "ben"
	res, err := im.ImportCSV(ctx, strings.NewReader(wordsCSV), o)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	words, err := s.Words().List(ctx, "ben")
	require.NoError(t, err)
	assert.Len(t, words, 3)
}

func TestImport_RequiresOwner(t *testing.T) {
	im, _ := newTestImporter(t)
	_, err := im.ImportCSV(context.Background(), strings.NewReader(wordsCSV), Options{})
	assert.Error(t, err)
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("words")
	require.NoError(t, err)
	_, err = f.NewSheet("topics")
	require.NoError(t, err)

	wordRows := [][]any{
		{"level", "english", "croatian", "pos"},
		{"A1", "water", "voda", "noun"},
		{"B1", "to understand", "razumjeti", "verb"},
		{"Z9", "broken", "pokvaren", "adjective"},
	}
	for i, row := range wordRows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("words", cellRef, &row))
	}

	topicRows := [][]any{
		{"id", "name", "level", "description"},
		{"accusative", "Accusative case", "A2", "Direct objects"},
		{"aspect", "", "B1", ""},
	}
	for i, row := range topicRows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("topics", cellRef, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportWorkbook(t *testing.T) {
	im, s := newTestImporter(t)
	ctx := context.Background()

	res, err := im.ImportWorkbook(ctx, workbook(t), opts())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Topics)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "words", res.Errors[0].Sheet)
	assert.Equal(t, 4, res.Errors[0].Row)

	w, err := s.Words().FindByText(ctx, "ana", "to understand", "razumjeti")
	require.NoError(t, err)
	assert.Equal(t, lang.Verb, w.PartOfSpeech)
	assert.Equal(t, lang.LevelB1, w.Level)

	topic, err := s.Topics().GetTopic(ctx, "aspect")
	require.NoError(t, err)
	assert.Equal(t, "aspect", topic.Name, "blank name falls back to the id")
	assert.Equal(t, lang.LevelB1, topic.Level)

	topics, err := s.Topics().ListTopics(ctx, lang.LevelA2)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Direct objects", topics[0].Description)
}

func TestImportFile(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "words.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(wordsCSV), 0o644))
	res, err := im.ImportFile(ctx, csvPath, opts())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	xlsxPath := filepath.Join(dir, "words.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, workbook(t).Bytes(), 0o644))
	res, err = im.ImportFile(ctx, xlsxPath, opts())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	txtPath := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = im.ImportFile(ctx, txtPath, opts())
	assert.Error(t, err)

	_, err = im.ImportFile(ctx, filepath.Join(dir, "missing.csv"), opts())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRowErrorUnwrap(t *testing.T) {
	_, err := lang.ParseLevel("Z9")
	re := RowError{Sheet: "words", Row: 3, Err: err}
	assert.ErrorIs(t, re, err)
	assert.Equal(t, "words row 3: "+err.Error(), re.Error())
}
