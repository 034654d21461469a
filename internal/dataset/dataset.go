// Package dataset implements the normalization and answer-extraction
// utilities tied to the optimizer's training-example format: questions
// paired with a ground-truth final answer, optionally wrapped in a
// chain-of-thought rationale.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Delimiter constants the LLM is instructed to respect. These must be
// matched bit-exactly — the optimizer's scoring loop depends on them.
const (
	StyleStart  = "<START>"
	StyleEnd    = "<END>"
	AnswerStart = "<ANS_START>"
	AnswerEnd   = "<ANS_END>"

	// InvalidAnswer is the dataset format's invalid-answer sentinel. No
	// function in this package returns it: ExtractFinalAnswer returns its
	// input unchanged when the answer markers are missing.
	InvalidAnswer = "[invalid]"
)

// Example is one (question, final answer) training record, optionally
// annotated with a chain-of-thought rationale that brackets the final
// answer in AnswerStart/AnswerEnd markers.
type Example struct {
	Question         string `json:"question"`
	FinalAnswer      string `json:"final_answer"`
	AnswerWithReason string `json:"answer_with_reason,omitempty"`
}

// Answer returns AnswerWithReason when present, else FinalAnswer — the
// value collate_examples and the few-shot renderer substitute for
// "{answer}".
func (e Example) Answer() string {
	if e.AnswerWithReason != "" {
		return e.AnswerWithReason
	}
	return e.FinalAnswer
}

// NormalizePrediction cleans free-text model output into a comparable
// canonical form. The sequence of transformations mirrors the original
// dataset-specific processor exactly; reordering any step changes the
// result for edge cases like "Sentence 1: and Sentence 2: foo.bar".
func NormalizePrediction(prediction string, lowercase bool) string {
	normalized := prediction
	normalized = strings.ReplaceAll(normalized, " and ", " ")
	normalized = strings.ReplaceAll(normalized, "Sentence 1:", " ")
	normalized = strings.ReplaceAll(normalized, "Sentence 2:", " ")
	normalized = strings.TrimSpace(normalized)

	if idx := strings.IndexByte(normalized, '\n'); idx >= 0 {
		normalized = normalized[:idx]
	}
	if idx := strings.IndexByte(normalized, '.'); idx >= 0 {
		normalized = normalized[:idx]
	}

	if lowercase {
		normalized = strings.ToLower(normalized)
	}

	normalized = strings.ReplaceAll(normalized, "-", " ")
	normalized = stripASCIIPunctuation(normalized)

	return strings.TrimSpace(normalized)
}

func stripASCIIPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isASCIIPunctuation(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCIIPunctuation(r rune) bool {
	switch {
	case r >= '!' && r <= '/':
		return true
	case r >= ':' && r <= '@':
		return true
	case r >= '[' && r <= '`':
		return true
	case r >= '{' && r <= '~':
		return true
	default:
		return false
	}
}

// ExtractFinalAnswer returns the substring between the literal AnswerStart
// and AnswerEnd markers. If either marker is absent, the input is returned
// unchanged — this is the dataset-format contract the solve prompt asks
// the LLM to honor.
func ExtractFinalAnswer(text string) string {
	startIdx := strings.Index(text, AnswerStart)
	if startIdx < 0 {
		return text
	}
	startIdx += len(AnswerStart)

	endIdx := strings.Index(text[startIdx:], AnswerEnd)
	if endIdx < 0 {
		return text
	}

	return text[startIdx : startIdx+endIdx]
}

// AssessAnswer extracts the final answer from llmOutput and compares it
// case-insensitively against groundTruth.
func AssessAnswer(llmOutput, groundTruth string) (correct bool, predicted string) {
	predicted = ExtractFinalAnswer(llmOutput)
	correct = strings.EqualFold(predicted, groundTruth)
	return correct, predicted
}

// CollateExamples renders examples into one string by substituting
// "{question}" and "{answer}" into template for each example in order and
// concatenating the results. No separator is added beyond whatever
// trailing whitespace the template itself carries.
func CollateExamples(examples []Example, template string) string {
	var b strings.Builder
	for _, ex := range examples {
		replacer := strings.NewReplacer("{question}", ex.Question, "{answer}", ex.Answer())
		b.WriteString(replacer.Replace(template))
	}
	return b.String()
}

// LoadExamples reads one JSON-encoded Example per line from r. A blank
// line is skipped; any other malformed line is a hard error, since a
// silently-dropped training example would skew every score downstream.
func LoadExamples(r io.Reader) ([]Example, error) {
	var examples []Example
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			return nil, fmt.Errorf("dataset: parse line %d: %w", line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("dataset: no examples found")
	}
	return examples, nil
}

// ExtractDelimited returns every substring sandwiched between literal
// start and end markers, in order of appearance. Used both for
// "<START>...<END>" style extraction and "<ANS_START>...<ANS_END>" answer
// extraction.
func ExtractDelimited(text, start, end string) []string {
	var matches []string
	rest := text
	for {
		startIdx := strings.Index(rest, start)
		if startIdx < 0 {
			break
		}
		rest = rest[startIdx+len(start):]

		endIdx := strings.Index(rest, end)
		if endIdx < 0 {
			break
		}

		matches = append(matches, rest[:endIdx])
		rest = rest[endIdx+len(end):]
	}
	return matches
}
