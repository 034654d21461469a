package dataset

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalizePredictionIdempotent(t *testing.T) {
	cases := []string{
		"Sentence 1: The cat and the dog.\nextra line",
		"ALREADY-normalized text!!",
		"",
		"  leading and trailing spaces  ",
	}
	for _, lc := range []bool{true, false} {
		for _, c := range cases {
			once := NormalizePrediction(c, lc)
			twice := NormalizePrediction(once, lc)
			if once != twice {
				t.Errorf("NormalizePrediction not idempotent for %q (lowercase=%v): %q != %q", c, lc, once, twice)
			}
		}
	}
}

func TestNormalizePredictionSteps(t *testing.T) {
	got := NormalizePrediction("Sentence 1: cats and dogs-like.\nmore text", true)
	want := "cats dogs like"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractFinalAnswerRoundTrip(t *testing.T) {
	cases := []string{"42", "Paris", "a multi word answer"}
	for _, s := range cases {
		wrapped := "reason " + AnswerStart + s + AnswerEnd
		if got := ExtractFinalAnswer(wrapped); got != s {
			t.Errorf("ExtractFinalAnswer(%q) = %q, want %q", wrapped, got, s)
		}
	}
}

func TestExtractFinalAnswerMissingMarkers(t *testing.T) {
	in := "no markers here"
	if got := ExtractFinalAnswer(in); got != in {
		t.Errorf("expected unchanged input, got %q", got)
	}
}

func TestAssessAnswer(t *testing.T) {
	correct, predicted := AssessAnswer("blah "+AnswerStart+"Paris"+AnswerEnd, "paris")
	if !correct {
		t.Errorf("expected case-insensitive match to succeed")
	}
	if predicted != "Paris" {
		t.Errorf("predicted = %q, want Paris", predicted)
	}

	correct, _ = AssessAnswer(AnswerStart+"London"+AnswerEnd, "paris")
	if correct {
		t.Errorf("expected mismatch to be marked incorrect")
	}
}

func TestCollateExamplesPreservesOrder(t *testing.T) {
	examples := []Example{
		{Question: "q1", FinalAnswer: "a1"},
		{Question: "q2", AnswerWithReason: "because a2"},
	}
	out := CollateExamples(examples, "[Question] {question} [Answer] {answer}\n")

	idx1 := indexOf(out, "q1")
	idx2 := indexOf(out, "q2")
	if idx1 < 0 || idx2 < 0 || idx1 > idx2 {
		t.Errorf("expected q1 before q2 in %q", out)
	}
	if indexOf(out, "because a2") < 0 {
		t.Errorf("expected answer_with_reason to be used when present: %q", out)
	}
}

func TestExtractDelimited(t *testing.T) {
	text := "prefix <START>v1<END> middle <START>v2<END> suffix"
	got := ExtractDelimited(text, StyleStart, StyleEnd)
	want := []string{"v1", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLoadExamples(t *testing.T) {
	input := "" +
		`{"question":"2+2?","final_answer":"4"}` + "\n" +
		"\n" +
		`{"question":"3+3?","final_answer":"6","answer_with_reason":"because 6"}` + "\n"

	examples, err := LoadExamples(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadExamples: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(examples))
	}
	if examples[1].AnswerWithReason != "because 6" {
		t.Errorf("answer_with_reason = %q", examples[1].AnswerWithReason)
	}
}

func TestLoadExamplesRejectsMalformedLine(t *testing.T) {
	if _, err := LoadExamples(strings.NewReader("not json")); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestLoadExamplesRejectsEmptyInput(t *testing.T) {
	if _, err := LoadExamples(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
