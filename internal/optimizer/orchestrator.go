package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/iolog"
	"github.com/ai-flowx/promptforge/internal/llm"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// Orchestrator runs the outer mutation loop and inner refinement loop
// described in spec.md §4.8 (get_best_prompt). All randomness in a run —
// batch sampling, the fair-coin branch between refining the instruction
// and refining the examples — is drawn from rng, so two runs seeded alike
// produce identical traces.
type Orchestrator struct {
	dataset []dataset.Example
	client  llm.Client
	pool    promptpool.Pool
	iolog   *iolog.Logger
	rng     *rand.Rand
	logger  *slog.Logger
}

func New(ds []dataset.Example, client llm.Client, pool promptpool.Pool, log *iolog.Logger, rng *rand.Rand, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		dataset: ds,
		client:  client,
		pool:    pool,
		iolog:   log,
		rng:     rng,
		logger:  logger,
	}
}

// chatCompletion mirrors CritiqueNRefine::chat_completion: systemPrompt
// falls back to the pool's base system prompt when the caller doesn't
// supply one.
func (o *Orchestrator) chatCompletion(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = o.pool.SystemPrompt
	}
	return o.client.ChatCompletion(ctx, userPrompt, systemPrompt)
}

// sampleBatch draws n examples from the dataset without replacement,
// capped at the dataset size.
func (o *Orchestrator) sampleBatch(n int) []dataset.Example {
	if n > len(o.dataset) {
		n = len(o.dataset)
	}
	perm := o.rng.Perm(len(o.dataset))[:n]
	batch := make([]dataset.Example, n)
	for i, j := range perm {
		batch[i] = o.dataset[j]
	}
	return batch
}

func joinQuestions(batch []dataset.Example) string {
	qs := make([]string, len(batch))
	for i, ex := range batch {
		qs[i] = ex.Question
	}
	return strings.Join(qs, "\n")
}

// GetBestPrompt runs the full optimization procedure and returns the
// assembled final prompt and the expert-identity system prompt to pair it
// with, per spec.md §4.8. It mutates params.BaseInstruction in place as
// the outer loop narrows in on a winner, exactly as the original's
// `&mut CritiqueNRefineParams` does.
//
// The three branches mirror get_best_prompt's call sites:
//   - generateSyntheticExamples: skip optimization entirely, synthesize a
//     zero-shot training set and write it to disk.
//   - runWithoutTrainExamples: run one round of mutation and log the first
//     MutationRounds candidates through the diagnostics logger (nothing is
//     emitted when it is nil) without scoring them against the dataset.
//   - the default path: the full mutate/score/refine loop.
func (o *Orchestrator) GetBestPrompt(ctx context.Context, params *Params, useExamples, runWithoutTrainExamples, generateSyntheticExamples bool) (string, string, error) {
	if generateSyntheticExamples {
		trainExamples, err := o.GenerateBestExamplesZeroShot(ctx, *params)
		if err != nil {
			return "", "", fmt.Errorf("generate synthetic examples: %w", err)
		}
		// Written to the process working directory, not o.iolog's base
		// path: the original writes train_synthetic.jsonl next to the
		// binary's invocation, and nothing downstream reads it back from
		// the log tree, so that placement is preserved rather than
		// "fixed".
		if err := writeJSONLines("train_synthetic.jsonl", trainExamples); err != nil {
			return "", "", fmt.Errorf("write train_synthetic.jsonl: %w", err)
		}
		return "", "", nil
	}

	currentBaseInstruction := params.BaseInstruction

	for round := 1; round <= params.MutateRefineIterations; round++ {
		candidates, err := o.GenDifferentStyles(ctx, currentBaseInstruction, params.TaskDescription, params.MutationRounds+1, params.StyleVariation)
		if err != nil {
			return "", "", fmt.Errorf("mutation round %d: %w", round, err)
		}

		if runWithoutTrainExamples {
			return o.printCandidateVariations(ctx, candidates, params)
		}

		scored, err := o.GetPromptScore(ctx, candidates, *params)
		if err != nil {
			return "", "", fmt.Errorf("score candidates: %w", err)
		}
		scored = SelectTopPrompts(scored, params.TopN)

		if params.RefineInstruction {
			refinedInstructions, err := o.RefinePrompts(ctx, scored, *params)
			if err != nil {
				return "", "", fmt.Errorf("refine prompts: %w", err)
			}
			refinedScored, err := o.GetPromptScore(ctx, refinedInstructions, *params)
			if err != nil {
				return "", "", fmt.Errorf("score refined prompts: %w", err)
			}
			scored = SelectTopPrompts(append(refinedScored, scored...), params.TopN)
		}

		if len(scored) == 0 {
			return "", "", fmt.Errorf("optimizer: no candidate prompts survived round %d", round)
		}
		currentBaseInstruction = scored[0].Instruction
		o.iolog.AppendDict(iolog.ChainedEntry{
			Outputs: map[string]any{
				"round_num":   round,
				"best_prompt": currentBaseInstruction,
				"score":       scored[0].Score,
			},
			Meta: iolog.EntryMeta{MethodName: "mutate_refine_round"},
		})
	}

	params.BaseInstruction = currentBaseInstruction

	examples, err := o.seedExamples(ctx, *params)
	if err != nil {
		return "", "", fmt.Errorf("seed examples: %w", err)
	}

	for i := 0; i < params.RefineTaskEgIterations; i++ {
		if o.rng.Intn(2) == 0 {
			refined, ok, err := o.GetBestInstrByCritique(ctx, examples, *params)
			if err != nil {
				return "", "", fmt.Errorf("refine instruction by critique: %w", err)
			}
			if ok {
				params.BaseInstruction = refined
			}
		} else if useExamples {
			examples, err = o.GenerateBestExamples(ctx, examples, *params)
			if err != nil {
				return "", "", fmt.Errorf("generate best examples: %w", err)
			}
		}
	}

	if params.GenerateReasoning {
		for i := range examples {
			reason, err := o.GenerateReasoning(ctx, params.TaskDescription, params.BaseInstruction, examples[i].Question, examples[i].FinalAnswer)
			if err != nil {
				return "", "", fmt.Errorf("generate reasoning: %w", err)
			}
			examples[i].AnswerWithReason = fmt.Sprintf("%s %s%s%s", reason, dataset.AnswerStart, examples[i].FinalAnswer, dataset.AnswerEnd)
		}
	}

	exampleString := dataset.CollateExamples(examples, o.pool.QuestReasonAns)

	var finalBestPrompt string
	if params.FewShotCount == 0 {
		finalBestPrompt = promptpool.Substitute(o.pool.FinalPrompt, map[string]string{
			"instruction":       params.BaseInstruction,
			"answer_format":     params.AnswerFormat,
			"few_shot_examples": "",
		})
	} else {
		finalBestPrompt = promptpool.Substitute(o.pool.FinalPrompt, map[string]string{
			"instruction":       params.BaseInstruction,
			"answer_format":     params.AnswerFormat,
			"few_shot_examples": exampleString,
		})
	}

	expertIdentity := o.pool.SystemPrompt
	if params.GenerateExpertIdentity {
		expertIdentity, err = o.GenerateExpertIdentity(ctx, params.TaskDescription)
		if err != nil {
			return "", "", fmt.Errorf("generate expert identity: %w", err)
		}
	}

	if params.GenerateIntentKeywords {
		intentKeywords, err := o.GenerateIntentKeywords(ctx, params.TaskDescription, params.BaseInstruction)
		if err != nil {
			return "", "", fmt.Errorf("generate intent keywords: %w", err)
		}
		finalBestPrompt += "Keywords: " + intentKeywords
	}

	if err := o.iolog.DumpChained("best_prompt"); err != nil {
		return "", "", fmt.Errorf("dump chained log: %w", err)
	}

	if o.logger != nil {
		o.logger.Info("final best prompt assembled", slog.String("prompt", finalBestPrompt))
	}

	return finalBestPrompt, expertIdentity, nil
}

// seedExamples walks the dataset solving one question at a time until
// few_shot_count wrong-answer examples have been collected, then tops up
// with a random sample if the dataset didn't yield enough.
func (o *Orchestrator) seedExamples(ctx context.Context, params Params) ([]dataset.Example, error) {
	var examples []dataset.Example
	for _, example := range o.dataset {
		solvePrompt := promptpool.Substitute(o.pool.SolveTemplate, map[string]string{
			"questions_batch_size": "1",
			"instruction":          params.BaseInstruction,
			"answer_format":        params.AnswerFormat,
			"questions":            example.Question,
		})
		generated, err := o.chatCompletion(ctx, solvePrompt, "")
		if err != nil {
			return nil, err
		}
		examples = append(examples, o.evaluate(generated, []dataset.Example{example})...)
		if len(examples) >= params.FewShotCount {
			break
		}
	}

	if len(examples) < params.FewShotCount {
		examples = append(examples, o.sampleBatch(params.FewShotCount-len(examples))...)
	}

	return examples, nil
}

func (o *Orchestrator) printCandidateVariations(ctx context.Context, candidates []string, params *Params) (string, string, error) {
	limit := params.MutationRounds
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for i, candidate := range candidates[:limit] {
		finalBestPrompt := promptpool.Substitute(o.pool.FinalPrompt, map[string]string{
			"instruction":       candidate,
			"answer_format":     params.AnswerFormat,
			"few_shot_examples": "",
		})
		expertIdentity := o.pool.SystemPrompt
		if params.GenerateExpertIdentity {
			var err error
			expertIdentity, err = o.GenerateExpertIdentity(ctx, params.TaskDescription)
			if err != nil {
				return "", "", err
			}
		}
		intentKeywords, err := o.GenerateIntentKeywords(ctx, params.TaskDescription, params.BaseInstruction)
		if err != nil {
			return "", "", err
		}
		finalBestPrompt += "Keywords: " + intentKeywords
		if o.logger != nil {
			o.logger.Info("candidate variation", slog.Int("index", i+1), slog.String("expert_identity", expertIdentity), slog.String("prompt", finalBestPrompt))
		}
	}
	return "", "", nil
}

func writeJSONLines(path string, examples []dataset.Example) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return err
		}
	}
	return nil
}
