package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

const (
	questionKeyInPrompt = "[Question]"
	answerKeyInPrompt   = "[Answer]"
)

// ExtractExamplesFromResponse implements extract_examples_from_response:
// it scans every <START>...<END> block for the inner [Question]...[Answer]
// convention and turns each match into a dataset.Example.
func ExtractExamplesFromResponse(responseWithExamples string) []dataset.Example {
	var examples []dataset.Example

	for _, block := range dataset.ExtractDelimited(responseWithExamples, dataset.StyleStart, dataset.StyleEnd) {
		text := strings.TrimSpace(block)
		if !strings.Contains(text, questionKeyInPrompt) || !strings.Contains(text, answerKeyInPrompt) {
			continue
		}

		question := strings.TrimSpace(extractBetween(text, questionKeyInPrompt, answerKeyInPrompt))

		answerIdx := strings.Index(text, answerKeyInPrompt)
		answerWithReason := strings.TrimSpace(text[answerIdx+len(answerKeyInPrompt):])

		examples = append(examples, dataset.Example{
			Question:         question,
			AnswerWithReason: answerWithReason,
			FinalAnswer:      dataset.ExtractFinalAnswer(answerWithReason),
		})
	}

	return examples
}

func extractBetween(text, start, end string) string {
	startIdx := strings.Index(text, start)
	if startIdx < 0 {
		return ""
	}
	startIdx += len(start)

	rest := text[startIdx:]
	endIdx := strings.Index(rest, end)
	if endIdx < 0 {
		return ""
	}
	return rest[:endIdx]
}

// GenerateReasoning implements generate_reasoning: synthesizes a
// chain-of-thought explanation connecting instruction to answer, for
// annotating a few-shot example.
func (o *Orchestrator) GenerateReasoning(ctx context.Context, taskDescription, instruction, question, answer string) (string, error) {
	prompt := promptpool.Substitute(o.pool.GenerateReasonTemplate, map[string]string{
		"task_description": taskDescription,
		"instruction":      instruction,
		"question":         question,
		"answer":           answer,
	})
	reasoning, err := o.chatCompletion(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("generate reasoning: %w", err)
	}
	return reasoning, nil
}

// GenerateExpertIdentity implements generate_expert_identity.
func (o *Orchestrator) GenerateExpertIdentity(ctx context.Context, taskDescription string) (string, error) {
	prompt := promptpool.Substitute(o.pool.ExpertTemplate, map[string]string{
		"task_description": taskDescription,
	})
	identity, err := o.chatCompletion(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("generate expert identity: %w", err)
	}
	return identity, nil
}

// GenerateIntentKeywords implements generate_intent_keywords.
func (o *Orchestrator) GenerateIntentKeywords(ctx context.Context, taskDescription, instruction string) (string, error) {
	prompt := promptpool.Substitute(o.pool.IntentTemplate, map[string]string{
		"task_description": taskDescription,
		"instruction":      instruction,
	})
	keywords, err := o.chatCompletion(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("generate intent keywords: %w", err)
	}
	return keywords, nil
}

// GenerateBestExamples implements generate_best_examples: critique the
// current few-shot set, then ask the LLM to synthesize a replacement set
// from that critique and one randomly drawn ground-truth example.
func (o *Orchestrator) GenerateBestExamples(ctx context.Context, examples []dataset.Example, params Params) ([]dataset.Example, error) {
	exampleString := dataset.CollateExamples(examples, o.pool.QuestReasonAns)

	critiquePrompt := promptpool.Substitute(o.pool.ExamplesCritiqueTemplate, map[string]string{
		"prompt":           params.BaseInstruction,
		"examples":         exampleString,
		"task_description": params.TaskDescription,
		"num_examples":     strconv.Itoa(params.FewShotCount),
	})
	critique, err := o.chatCompletion(ctx, critiquePrompt, o.pool.ExpertProfile)
	if err != nil {
		return nil, fmt.Errorf("critique examples: %w", err)
	}

	if len(o.dataset) == 0 {
		return nil, fmt.Errorf("optimizer: dataset is empty, cannot sample ground-truth example")
	}
	groundTruth := o.dataset[o.rng.Intn(len(o.dataset))]
	groundTruthString := dataset.CollateExamples([]dataset.Example{groundTruth}, o.pool.QuestReasonAns)

	optimizePrompt := promptpool.Substitute(o.pool.ExamplesOptimizationTemplate, map[string]string{
		"prompt":           params.BaseInstruction,
		"examples":         exampleString,
		"gt_example":       groundTruthString,
		"critique":         critique,
		"task_description": params.TaskDescription,
		"num_examples":     strconv.Itoa(params.FewShotCount),
	})
	synthesized, err := o.chatCompletion(ctx, optimizePrompt, o.pool.ExpertProfile)
	if err != nil {
		return nil, fmt.Errorf("synthesize examples: %w", err)
	}

	return ExtractExamplesFromResponse(synthesized), nil
}

// GenerateBestExamplesZeroShot implements generate_best_examples_zero_shot:
// the same critique-then-synthesize flow as GenerateBestExamples, but with
// no seed examples or ground-truth example at all — used to bootstrap a
// training set for a dataset that doesn't have one yet.
func (o *Orchestrator) GenerateBestExamplesZeroShot(ctx context.Context, params Params) ([]dataset.Example, error) {
	critiquePrompt := promptpool.Substitute(o.pool.ExamplesCritiqueTemplateZeroShot, map[string]string{
		"prompt":           params.BaseInstruction,
		"task_description": params.TaskDescription,
		"num_examples":     strconv.Itoa(params.NumTrainExamples),
	})
	critique, err := o.chatCompletion(ctx, critiquePrompt, o.pool.ExpertProfile)
	if err != nil {
		return nil, fmt.Errorf("critique zero-shot examples: %w", err)
	}

	optimizePrompt := promptpool.Substitute(o.pool.ExamplesOptimizationTemplate, map[string]string{
		"prompt":           params.BaseInstruction,
		"examples":         "",
		"gt_example":       "",
		"critique":         critique,
		"task_description": params.TaskDescription,
		"num_examples":     strconv.Itoa(params.NumTrainExamples),
	})
	synthesized, err := o.chatCompletion(ctx, optimizePrompt, o.pool.ExpertProfile)
	if err != nil {
		return nil, fmt.Errorf("synthesize zero-shot examples: %w", err)
	}

	return ExtractExamplesFromResponse(synthesized), nil
}
