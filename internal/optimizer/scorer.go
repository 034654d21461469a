package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// GetPromptScore implements get_prompt_score: for each instruction it
// repeatedly solves a fresh random batch of questions until either a batch
// comes back with a wrong answer (the batch's wrong examples become the
// critique set and the loop stops), min_correct_count all-correct batches
// have been seen, or max_eval_batches is exhausted.
//
// This early-exit-on-first-wrong-batch shape is preserved exactly as the
// original implements it, not tightened into "evaluate every batch": a
// prompt that gets unlucky on its very first batch is scored on that one
// batch alone, the same as upstream.
func (o *Orchestrator) GetPromptScore(ctx context.Context, instructions []string, params Params) ([]ScoredPrompt, error) {
	scored := make([]ScoredPrompt, 0, len(instructions))

	for _, instruction := range instructions {
		correctCount := 0.0
		count := 0.0
		var critiqueSet []dataset.Example
		batch := o.sampleBatch(params.QuestionsBatchSize)

		for len(critiqueSet) == 0 && correctCount < float64(params.MinCorrectCount) && count < float64(params.MaxEvalBatches) {
			count++
			solvePrompt := promptpool.Substitute(o.pool.SolveTemplate, map[string]string{
				"questions_batch_size": strconv.Itoa(params.QuestionsBatchSize),
				"answer_format":        params.AnswerFormat,
				"instruction":          instruction,
				"questions":            joinQuestions(batch),
			})

			generated, err := o.chatCompletion(ctx, solvePrompt, "")
			if err != nil {
				return nil, fmt.Errorf("score instruction: %w", err)
			}

			critiqueSet = o.evaluate(generated, batch)
			if len(critiqueSet) == 0 {
				batch = o.sampleBatch(params.QuestionsBatchSize)
				correctCount++
			}
		}

		score := 0.0
		if count > 0 {
			score = correctCount / count
		}
		scored = append(scored, ScoredPrompt{Instruction: instruction, Score: score, CritiqueSet: critiqueSet})
	}

	return scored, nil
}

// evaluate implements evaluate/access_answer: it extracts every
// <ANS_START>...<ANS_END> answer from generatedText, pairs them
// positionally with batch, and returns the examples whose predicted
// answer didn't match the ground truth.
func (o *Orchestrator) evaluate(generatedText string, batch []dataset.Example) []dataset.Example {
	matches := dataset.ExtractDelimited(generatedText, dataset.AnswerStart, dataset.AnswerEnd)

	limit := len(matches)
	if len(batch) < limit {
		limit = len(batch)
	}

	var wrong []dataset.Example
	for i := 0; i < limit; i++ {
		correct, _ := dataset.AssessAnswer(matches[i], batch[i].FinalAnswer)
		if !correct {
			wrong = append(wrong, batch[i])
		}
	}
	return wrong
}

// SelectTopPrompts implements select_top_prompts: sort by score
// descending, tie-broken by longer instruction first, and keep the top n.
func SelectTopPrompts(scored []ScoredPrompt, topN int) []ScoredPrompt {
	sorted := make([]ScoredPrompt, len(scored))
	copy(sorted, scored)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return len(sorted[i].Instruction) > len(sorted[j].Instruction)
	})

	if topN < len(sorted) {
		sorted = sorted[:topN]
	}
	return sorted
}
