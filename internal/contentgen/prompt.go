package contentgen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/lexiz/internal/lang"
)

const generateSystemTemplate = `You are a {{.Target}} language tutor writing practice exercises for a {{.Native}}-speaking learner.

Rules:
- Write exactly the number of exercises requested, one per listed seed, in the order the seeds are listed.
- Copy each seed's id verbatim into seed_id. Never invent seed ids.
- Match the difficulty to the CEFR level given.
- expected_answer is the single best answer; keep it short and free of explanations.
- Use correct {{.Target}} spelling including diacritics.
- Never repeat an exercise from the "already asked" list.
- When a learner profile is given, lean the exercises toward the listed common mistakes and weak topics without leaving the seeds.`

const evaluateSystemTemplate = `You are a {{.Target}} language tutor grading a learner's answers.

Rules:
- Return exactly one result per answer, in the same order, with index set to the answer's position.
- Accept alternative valid forms and word orders; treat a missing diacritic as an accent error, not as correct.
- Score 1 for a fully correct answer, partial credit between 0 and 1 for minor slips.
- For wrong answers pick the single most important error_category. Leave it empty for correct answers.
- Set topic_id to the item's topic hint when the answer exercised that topic, otherwise leave it empty.
- Keep feedback to one encouraging sentence.`

const assessSystemTemplate = `You are a {{.Target}} linguist classifying vocabulary for a {{.Native}}-speaking learner.

Rules:
- Return exactly one entry per word, in the same order, with index set to the word's position.
- Copy the word into target unchanged.
- When a translation is given, copy it into native; otherwise give the most common {{.Native}} translation.
- Give the grammatical gender only for nouns; leave it empty for every other part of speech.
- Pick the CEFR level at which learners usually meet the word.`

var modalityInstructions = map[lang.Modality]string{
	lang.ModalityVocabNativeToTarget:  "Ask the learner to translate the {{native}} word of the seed into {{target}}.",
	lang.ModalityVocabTargetToNative:  "Ask the learner to translate the {{target}} word of the seed into {{native}}.",
	lang.ModalityVocabFillBlank:       "Write a natural {{target}} sentence using the seed word and replace the word with ___. The answer is the missing word in the correct form.",
	lang.ModalityGrammar:              "Write a short fill-in or transformation exercise that practices the seed grammar topic.",
	lang.ModalitySentenceConstruction: "Give scrambled {{target}} words that form one sentence practicing the seed topic. The answer is the sentence in correct order.",
	lang.ModalityTranslateToNative:    "Give a {{target}} sentence that uses the seed topic and ask for its {{native}} translation.",
	lang.ModalityTranslateToTarget:    "Give a {{native}} sentence whose {{target}} translation needs the seed topic and ask for that translation.",
	lang.ModalityReading:              "Write a two or three sentence {{target}} passage using the seed topic and one comprehension question about it.",
}

var generateUserTemplate = template.Must(template.New("generate").Parse(`Exercise type: {{.Modality}}
Instructions: {{.Instructions}}
Level: {{.Level}}
Number of exercises: {{.Count}}
{{if .Learner}}
Learner profile:
{{.Learner}}
{{end}}
Seeds:
{{range .Seeds}}- id={{.ID}} ({{.Kind}}): {{.Text}}{{if .Detail}} [{{.Detail}}]{{end}}
{{end}}
Already asked:
{{.Prior}}`))

var evaluateUserTemplate = template.Must(template.New("evaluate").Parse(`Exercise type: {{.Modality}}

Answers:
{{range $i, $it := .Items}}{{$i}}. Exercise: {{$it.Context}}
   Expected: {{$it.ExpectedAnswer}}
   Learner: {{$it.UserAnswer}}{{if $it.TopicHint}}
   Topic hint: {{$it.TopicHint}}{{end}}
{{end}}`))

var assessUserTemplate = template.Must(template.New("assess").Parse(`Words:
{{range $i, $w := .}}{{$i}}. {{$w.Target}}{{if $w.Native}} = {{$w.Native}}{{end}}
{{end}}`))

// systemPrompt renders one of the system templates for the configured
// language pair.
func systemPrompt(tmpl string, cfg Config) string {
	r := strings.NewReplacer("{{.Target}}", cfg.TargetLanguage, "{{.Native}}", cfg.NativeLanguage)
	return r.Replace(tmpl)
}

func modalityInstruction(m lang.Modality, cfg Config) string {
	text, ok := modalityInstructions[m]
	if !ok {
		text = "Write one exercise practicing the seed."
	}
	r := strings.NewReplacer("{{target}}", cfg.TargetLanguage, "{{native}}", cfg.NativeLanguage)
	return r.Replace(text)
}

func buildGenerateMessage(req GenerateRequest, prior []string, cfg Config) (string, error) {
	var buf bytes.Buffer
	err := generateUserTemplate.Execute(&buf, map[string]any{
		"Modality":     req.Modality,
		"Instructions": modalityInstruction(req.Modality, cfg),
		"Level":        req.Level,
		"Count":        req.Count,
		"Seeds":        req.Seeds,
		"Prior":        buildDedup(prior, cfg.MaxPriorPrompts),
		"Learner":      req.LearnerContext,
	})
	if err != nil {
		return "", fmt.Errorf("render generate prompt: %w", err)
	}
	return buf.String(), nil
}

func buildEvaluateMessage(req EvaluateRequest) (string, error) {
	var buf bytes.Buffer
	if err := evaluateUserTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render evaluate prompt: %w", err)
	}
	return buf.String(), nil
}

func buildAssessMessage(words []WordQuery) (string, error) {
	var buf bytes.Buffer
	if err := assessUserTemplate.Execute(&buf, words); err != nil {
		return "", fmt.Errorf("render assess prompt: %w", err)
	}
	return buf.String(), nil
}

// buildDedup formats prior prompts for the prompt, keeping the most recent
// max of them. Returns "None" if there are none.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, p := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return strings.TrimRight(b.String(), "\n")
}
