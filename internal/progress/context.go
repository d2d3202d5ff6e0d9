package progress

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/lexiz/internal/mastery"
)

var contextTemplate = template.Must(template.New("learner").Funcs(template.FuncMap{
	"pct": func(n, of int) int {
		if of == 0 {
			return 0
		}
		return n * 100 / of
	},
}).Parse(`Current CEFR level: {{.Summary.Level}}
Vocabulary: {{.Summary.TotalWords}} words, {{.Vocabulary.Mastered}} mastered, {{.Vocabulary.Learning}} learning, {{.Vocabulary.New}} new.
{{- if .Vocabulary.ByLevel}}
Words by level: {{range $i, $l := .Vocabulary.ByLevel}}{{if $i}}, {{end}}{{$l.Level}}: {{$l.Count}}{{end}}.
{{- end}}
{{- if .Vocabulary.Recent}}
Recently added: {{range $i, $w := .Vocabulary.Recent}}{{if $i}}, {{end}}{{$w.Target}} ({{$w.Native}}){{end}}.
{{- end}}
Grammar topics: {{.Topics.Practiced}} of {{.Topics.Total}} practiced, {{.Topics.Strong}} strong.
{{- if .WeakTopics}}
Weakest topics: {{range $i, $t := .WeakTopics}}{{if $i}}, {{end}}{{$t}}{{end}}.
{{- end}}
Exercises done: {{.Summary.TotalExercises}}, {{pct .Summary.TotalErrors .Summary.TotalExercises}}% wrong.
{{- if .Errors.WeakAreas}}
Common mistakes: {{range $i, $a := .Errors.WeakAreas}}{{if $i}}, {{end}}{{$a.Category}} ({{$a.Count}}){{end}}.
{{- end}}
Study streak: {{.Summary.StreakDays}} days. Reviews in the last {{len .Activity.Days}} days: {{.ActiveReviews}}.`))

// weakTopicCount bounds the weak topics named in the context.
const weakTopicCount = 3

// RenderContext formats the report as a plain-text learner profile.
func RenderContext(r *Report) (string, error) {
	var weak []string
	for _, s := range r.Topics.Statuses {
		if len(weak) == weakTopicCount {
			break
		}
		if s.Label == mastery.LabelWeak || s.Label == mastery.LabelLearning {
			weak = append(weak, fmt.Sprintf("%s (%d%%)", s.Topic.Name, s.Percent))
		}
	}
	active := 0
	for _, d := range r.Activity.Days {
		active += d.Reviews
	}

	var buf bytes.Buffer
	err := contextTemplate.Execute(&buf, struct {
		*Report
		WeakTopics    []string
		ActiveReviews int
	}{r, weak, active})
	if err != nil {
		return "", fmt.Errorf("render learner context: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
