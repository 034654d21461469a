package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// GenDifferentStyles implements gen_different_styles: it seeds a candidate
// pool with the unmodified task description plus base instruction, then
// runs mutationRounds LLM calls against the meta-sample template, each
// asking for thinkingStylesCount stylistic variations, and folds every
// <START>...<END> match into the pool.
func (o *Orchestrator) GenDifferentStyles(ctx context.Context, baseInstruction, taskDescription string, mutationRounds, thinkingStylesCount int) ([]string, error) {
	candidates := []string{fmt.Sprintf("%s\n%s", taskDescription, baseInstruction)}

	styles := o.pool.ThinkingStyles
	if thinkingStylesCount < len(styles) {
		styles = styles[:thinkingStylesCount]
	}

	for round := 0; round < mutationRounds; round++ {
		mutatedSamplePrompt := promptpool.Substitute(o.pool.MetaSampleTemplate, map[string]string{
			"task_description":   taskDescription,
			"meta_prompts":       strings.Join(styles, "\n"),
			"num_variations":     strconv.Itoa(thinkingStylesCount),
			"prompt_instruction": baseInstruction,
		})

		generated, err := o.chatCompletion(ctx, mutatedSamplePrompt, "")
		if err != nil {
			return nil, fmt.Errorf("mutation round %d: %w", round, err)
		}

		candidates = append(candidates, dataset.ExtractDelimited(generated, dataset.StyleStart, dataset.StyleEnd)...)

		if o.logger != nil {
			o.logger.Debug("mutation round complete", "round", round, "generated_count", len(candidates))
		}
	}

	return candidates, nil
}
