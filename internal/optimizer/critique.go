package optimizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// CritiqueAndRefine implements critique_and_refine: one LLM call asks for
// a critique of prompt against critiqueSet, a second asks for a refined
// instruction given that critique. furtherEnhance selects the "this prompt
// is already good, make it better" template over the "this prompt is
// failing" template.
//
// It returns ErrMalformedResponse when the refinement reply has no
// <START>...<END> match; the caller decides whether that's fatal.
func (o *Orchestrator) CritiqueAndRefine(ctx context.Context, prompt string, critiqueSet []dataset.Example, furtherEnhance bool) (string, error) {
	exampleString := dataset.CollateExamples(critiqueSet, o.pool.QuestReasonAns)

	critiqueTemplate := o.pool.MetaCritiqueTemplate
	if furtherEnhance {
		critiqueTemplate = o.pool.MetaPositiveCritiqueTemplate
	}

	metaCritiquePrompt := promptpool.Substitute(critiqueTemplate, map[string]string{
		"instruction": prompt,
		"examples":    exampleString,
	})

	critiqueText, err := o.chatCompletion(ctx, metaCritiquePrompt, o.pool.ExpertProfile)
	if err != nil {
		return "", fmt.Errorf("request critique: %w", err)
	}

	critiqueRefinePrompt := promptpool.Substitute(o.pool.CritiqueRefineTemplate, map[string]string{
		"instruction":      prompt,
		"examples":         exampleString,
		"critique":         critiqueText,
		"steps_per_sample": "1",
	})

	refined, err := o.chatCompletion(ctx, critiqueRefinePrompt, o.pool.ExpertProfile)
	if err != nil {
		return "", fmt.Errorf("request refinement: %w", err)
	}

	matches := dataset.ExtractDelimited(refined, dataset.StyleStart, dataset.StyleEnd)
	if len(matches) == 0 {
		return "", ErrMalformedResponse
	}
	return strings.TrimSpace(matches[0]), nil
}

// RefinePrompts implements refine_prompts: every scored prompt is sent
// through CritiqueAndRefine, using the positive-critique template when its
// score already clears min_correct_count/max_eval_batches. A malformed LLM
// reply for one prompt is logged and skipped rather than aborting the
// whole batch.
func (o *Orchestrator) RefinePrompts(ctx context.Context, scored []ScoredPrompt, params Params) ([]string, error) {
	threshold := 0.0
	if params.MaxEvalBatches > 0 {
		// Real-valued division: a prompt only needs to clear the same
		// fractional bar get_prompt_score measures it against, not an
		// integer-truncated one.
		threshold = float64(params.MinCorrectCount) / float64(params.MaxEvalBatches)
	}

	refined := make([]string, 0, len(scored))
	for _, sp := range scored {
		furtherEnhance := sp.Score >= threshold
		instruction, err := o.CritiqueAndRefine(ctx, sp.Instruction, sp.CritiqueSet, furtherEnhance)
		if err != nil {
			if err == ErrMalformedResponse {
				if o.logger != nil {
					o.logger.Warn("skipping malformed critique-refine reply", "instruction", sp.Instruction)
				}
				continue
			}
			return nil, err
		}
		refined = append(refined, instruction)
	}
	return refined, nil
}

// GetBestInstrByCritique implements get_best_instr_by_critique: a single
// critique-and-refine pass over params.BaseInstruction using examples as
// the critique set, always through the non-positive template. It reports
// ok=false rather than an error when the reply has no usable match,
// matching the original's Option<String>.
func (o *Orchestrator) GetBestInstrByCritique(ctx context.Context, examples []dataset.Example, params Params) (string, bool, error) {
	exampleString := dataset.CollateExamples(examples, o.pool.QuestReasonAns)

	metaCritiquePrompt := promptpool.Substitute(o.pool.MetaCritiqueTemplate, map[string]string{
		"instruction": params.BaseInstruction,
		"examples":    exampleString,
	})
	critiqueText, err := o.chatCompletion(ctx, metaCritiquePrompt, o.pool.ExpertProfile)
	if err != nil {
		return "", false, fmt.Errorf("request critique: %w", err)
	}

	critiqueRefinePrompt := promptpool.Substitute(o.pool.CritiqueRefineTemplate, map[string]string{
		"instruction":      params.BaseInstruction,
		"examples":         exampleString,
		"critique":         critiqueText,
		"steps_per_sample": "1",
	})
	// The original calls chat_completion here without an explicit system
	// prompt override, falling back to the pool's base system prompt
	// rather than the expert profile used above.
	refined, err := o.chatCompletion(ctx, critiqueRefinePrompt, "")
	if err != nil {
		return "", false, fmt.Errorf("request refinement: %w", err)
	}

	matches := dataset.ExtractDelimited(refined, dataset.StyleStart, dataset.StyleEnd)
	if len(matches) == 0 {
		return "", false, nil
	}
	return strings.TrimSpace(matches[0]), true, nil
}
