package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/store"
)

type field int

const (
	fieldTarget field = iota
	fieldNative
	fieldPOS
	fieldGender
	fieldLevel
	fieldID
	fieldName
	fieldDescription
)

var wordHeaders = map[string]field{
	"target":         fieldTarget,
	"croatian":       fieldTarget,
	"word":           fieldTarget,
	"native":         fieldNative,
	"english":        fieldNative,
	"translation":    fieldNative,
	"pos":            fieldPOS,
	"part_of_speech": fieldPOS,
	"part of speech": fieldPOS,
	"gender":         fieldGender,
	"level":          fieldLevel,
	"cefr":           fieldLevel,
	"cefr_level":     fieldLevel,
}

var topicHeaders = map[string]field{
	"id":          fieldID,
	"name":        fieldName,
	"description": fieldDescription,
	"level":       fieldLevel,
	"cefr":        fieldLevel,
}

// Without a header, word columns are positional in this order.
var defaultWordColumns = map[field]int{
	fieldTarget: 0,
	fieldNative: 1,
	fieldPOS:    2,
	fieldGender: 3,
	fieldLevel:  4,
}

var defaultTopicColumns = map[field]int{
	fieldID:          0,
	fieldName:        1,
	fieldDescription: 2,
	fieldLevel:       3,
}

// wordColumns reads header as a word header row. A row counts as a header
// when it names both the target and native columns.
func wordColumns(header []string) (map[field]int, bool) {
	cols := mapHeader(header, wordHeaders)
	_, hasTarget := cols[fieldTarget]
	_, hasNative := cols[fieldNative]
	if hasTarget && hasNative {
		return cols, true
	}
	return defaultWordColumns, false
}

func topicColumns(header []string) (map[field]int, bool) {
	cols := mapHeader(header, topicHeaders)
	if _, ok := cols[fieldID]; ok {
		return cols, true
	}
	return defaultTopicColumns, false
}

func mapHeader(header []string, known map[string]field) map[field]int {
	cols := map[field]int{}
	for i, h := range header {
		f, ok := known[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := cols[f]; !dup {
			cols[f] = i
		}
	}
	return cols
}

func cell(row []string, cols map[field]int, f field) string {
	i, ok := cols[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseWord reads one row. Columns the row leaves blank take the option
// defaults and may stay empty; checkWord rejects what is still missing.
func parseWord(row []string, cols map[field]int, opts Options) (*store.Word, error) {
	w := &store.Word{
		Owner:        opts.Owner,
		Target:       cell(row, cols, fieldTarget),
		Native:       cell(row, cols, fieldNative),
		PartOfSpeech: opts.DefaultPOS,
		Level:        opts.DefaultLevel,
	}
	if w.Target == "" {
		return nil, errors.New("target word is empty")
	}

	if s := cell(row, cols, fieldPOS); s != "" {
		pos, err := lang.ParsePartOfSpeech(s)
		if err != nil {
			return nil, err
		}
		w.PartOfSpeech = pos
	}

	gender, err := lang.ParseGender(cell(row, cols, fieldGender))
	if err != nil {
		return nil, err
	}
	w.Gender = gender

	if s := cell(row, cols, fieldLevel); s != "" {
		level, err := lang.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		w.Level = level
	}
	return w, nil
}

func checkWord(w *store.Word) error {
	switch {
	case w.Native == "":
		return errors.New("translation is empty")
	case w.PartOfSpeech == "":
		return errors.New("part of speech is missing")
	case w.Level == "":
		return errors.New("level is missing")
	}
	return nil
}

func parseTopic(row []string, cols map[field]int) (store.GrammarTopic, error) {
	t := store.GrammarTopic{
		ID:          cell(row, cols, fieldID),
		Name:        cell(row, cols, fieldName),
		Description: cell(row, cols, fieldDescription),
	}
	if t.ID == "" {
		return t, errors.New("topic id is empty")
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	level, err := lang.ParseLevel(cell(row, cols, fieldLevel))
	if err != nil {
		return t, fmt.Errorf("topic %s: %w", t.ID, err)
	}
	t.Level = level
	return t, nil
}
