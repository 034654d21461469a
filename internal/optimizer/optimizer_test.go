package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/iolog"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// scriptedClient returns canned replies in order, one per ChatCompletion
// call, so tests can drive each optimizer stage deterministically.
type scriptedClient struct {
	replies []string
	calls   []call
}

type call struct {
	userPrompt   string
	systemPrompt string
}

func (c *scriptedClient) ChatCompletion(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	c.calls = append(c.calls, call{userPrompt, systemPrompt})
	if len(c.calls) > len(c.replies) {
		return "", fmt.Errorf("scriptedClient: no reply queued for call %d", len(c.calls))
	}
	return c.replies[len(c.calls)-1], nil
}

func testPool() promptpool.Pool {
	p, err := promptpool.Load([]byte(`
system_prompt: "You are a helpful assistant."
final_prompt: "{instruction}\n{answer_format}\n{few_shot_examples}"
quest_reason_ans: "[Question] {question} [Answer] {answer}\n"
expert_profile: "You are an expert prompt engineer."
expert_template: "Describe an expert for: {task_description}"
intent_template: "{task_description} {instruction}"
thinking_styles:
  - "Work backwards from the answer."
  - "Think step by step."
meta_critique_template: "{instruction} {examples}"
meta_positive_critique_template: "{instruction} {examples}"
critique_refine_template: "{instruction} {examples} {critique} {steps_per_sample}"
solve_template: "{questions_batch_size} {answer_format} {instruction} {questions}"
examples_critique_template: "{prompt} {examples} {task_description} {num_examples}"
examples_optimization_template: "{prompt} {examples} {gt_example} {critique} {task_description} {num_examples}"
examples_critique_template_zero_shot: "{prompt} {task_description} {num_examples}"
meta_sample_template: "{task_description} {meta_prompts} {num_variations} {prompt_instruction}"
generate_reason_template: "{task_description} {instruction} {question} {answer}"
reason_optimization_template: "{task_description} {instruction}"
`))
	if err != nil {
		panic(err)
	}
	return p
}

func testDataset() []dataset.Example {
	return []dataset.Example{
		{Question: "2+2?", FinalAnswer: "4"},
		{Question: "3+3?", FinalAnswer: "6"},
		{Question: "1+1?", FinalAnswer: "2"},
	}
}

func newTestOrchestrator(t *testing.T, client *scriptedClient) *Orchestrator {
	t.Helper()
	log, err := iolog.New(t.TempDir())
	if err != nil {
		t.Fatalf("iolog.New: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	return New(testDataset(), client, testPool(), log, rng, nil)
}

func TestGenDifferentStylesSeedsFromBaseAndExtendsFromMatches(t *testing.T) {
	client := &scriptedClient{replies: []string{"<START>variation one<END><START>variation two<END>"}}
	o := newTestOrchestrator(t, client)

	candidates, err := o.GenDifferentStyles(context.Background(), "answer correctly", "do math", 1, 2)
	if err != nil {
		t.Fatalf("GenDifferentStyles: %v", err)
	}
	if candidates[0] != "do math\nanswer correctly" {
		t.Fatalf("seed candidate = %q", candidates[0])
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates (seed + 2 matches), got %d: %v", len(candidates), candidates)
	}
}

func TestGetPromptScoreStopsOnFirstWrongBatch(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"<ANS_START>wrong<ANS_END><ANS_START>6<ANS_END><ANS_START>2<ANS_END>",
	}}
	o := newTestOrchestrator(t, client)
	params := Params{QuestionsBatchSize: 3, MinCorrectCount: 5, MaxEvalBatches: 5, AnswerFormat: "plain"}

	scored, err := o.GetPromptScore(context.Background(), []string{"solve it"}, params)
	if err != nil {
		t.Fatalf("GetPromptScore: %v", err)
	}
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored prompt")
	}
	if scored[0].Score != 0 {
		t.Fatalf("score = %v, want 0 (stopped after the first batch, which had a wrong answer)", scored[0].Score)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected exactly 1 LLM call (early exit), got %d", len(client.calls))
	}
}

func TestGetPromptScoreAllCorrectStopsAtMinCorrectCount(t *testing.T) {
	// newTestOrchestrator seeds the RNG with 1, which draws the batch order
	// [0 1 2] first and [2 1 0] after the first resample; each reply answers
	// its batch correctly in that order.
	replies := []string{
		"<ANS_START>4<ANS_END><ANS_START>6<ANS_END><ANS_START>2<ANS_END>",
		"<ANS_START>2<ANS_END><ANS_START>6<ANS_END><ANS_START>4<ANS_END>",
	}
	client := &scriptedClient{replies: replies}
	o := newTestOrchestrator(t, client)
	params := Params{QuestionsBatchSize: 3, MinCorrectCount: 2, MaxEvalBatches: 5, AnswerFormat: "plain"}

	scored, err := o.GetPromptScore(context.Background(), []string{"solve it"}, params)
	if err != nil {
		t.Fatalf("GetPromptScore: %v", err)
	}
	if scored[0].Score != 1 {
		t.Fatalf("score = %v, want 1 (all batches fully correct)", scored[0].Score)
	}
	if len(scored[0].CritiqueSet) != 0 {
		t.Fatalf("expected empty critique set for an all-correct prompt")
	}
}

func TestCritiqueAndRefineReturnsMalformedOnNoMatch(t *testing.T) {
	client := &scriptedClient{replies: []string{"a critique", "no delimiters here"}}
	o := newTestOrchestrator(t, client)

	_, err := o.CritiqueAndRefine(context.Background(), "instr", nil, false)
	if err != ErrMalformedResponse {
		t.Fatalf("got %v, want ErrMalformedResponse", err)
	}
}

func TestCritiqueAndRefineExtractsRefinedInstruction(t *testing.T) {
	client := &scriptedClient{replies: []string{"a critique", "<START>better instruction<END>"}}
	o := newTestOrchestrator(t, client)

	refined, err := o.CritiqueAndRefine(context.Background(), "instr", nil, true)
	if err != nil {
		t.Fatalf("CritiqueAndRefine: %v", err)
	}
	if refined != "better instruction" {
		t.Fatalf("got %q", refined)
	}
	if client.calls[0].systemPrompt != "You are an expert prompt engineer." {
		t.Fatalf("expected expert profile as system prompt for critique call")
	}
}

func TestRefinePromptsSkipsMalformedReplies(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"critique 1", "<START>refined one<END>",
		"critique 2", "malformed, no delimiters",
	}}
	o := newTestOrchestrator(t, client)
	params := Params{MinCorrectCount: 1, MaxEvalBatches: 2}

	refined, err := o.RefinePrompts(context.Background(), []ScoredPrompt{
		{Instruction: "first", Score: 1.0},
		{Instruction: "second", Score: 0.0},
	}, params)
	if err != nil {
		t.Fatalf("RefinePrompts: %v", err)
	}
	if len(refined) != 1 || refined[0] != "refined one" {
		t.Fatalf("got %v, want [\"refined one\"]", refined)
	}
}

func TestSelectTopPromptsOrdersByScoreThenLength(t *testing.T) {
	scored := []ScoredPrompt{
		{Instruction: "short", Score: 0.5},
		{Instruction: "a much longer instruction", Score: 0.5},
		{Instruction: "best", Score: 0.9},
	}
	top := SelectTopPrompts(scored, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 results")
	}
	if top[0].Instruction != "best" {
		t.Fatalf("top[0] = %q, want highest score first", top[0].Instruction)
	}
	if top[1].Instruction != "a much longer instruction" {
		t.Fatalf("top[1] = %q, want longer instruction to win the score tie", top[1].Instruction)
	}
}

func TestExtractExamplesFromResponse(t *testing.T) {
	text := "<START>[Question] What is 2+2? [Answer] reasoning here <ANS_START>4<ANS_END><END>" +
		"<START>not a question-answer block<END>"

	examples := ExtractExamplesFromResponse(text)
	if len(examples) != 1 {
		t.Fatalf("expected 1 extracted example, got %d: %+v", len(examples), examples)
	}
	if examples[0].Question != "What is 2+2?" {
		t.Fatalf("question = %q", examples[0].Question)
	}
	if examples[0].FinalAnswer != "4" {
		t.Fatalf("final answer = %q", examples[0].FinalAnswer)
	}
}

func TestGenerateBestExamplesZeroShot(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"a critique of zero examples",
		"<START>[Question] 5+5? [Answer] because math <ANS_START>10<ANS_END><END>",
	}}
	o := newTestOrchestrator(t, client)
	params := Params{BaseInstruction: "solve", TaskDescription: "arithmetic", NumTrainExamples: 1}

	examples, err := o.GenerateBestExamplesZeroShot(context.Background(), params)
	if err != nil {
		t.Fatalf("GenerateBestExamplesZeroShot: %v", err)
	}
	if len(examples) != 1 || examples[0].Question != "5+5?" {
		t.Fatalf("got %+v", examples)
	}
}
