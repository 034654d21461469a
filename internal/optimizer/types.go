// Package optimizer implements the critique-and-refine prompt optimization
// loop (spec.md §4.4-§4.8), grounded on
// original_source/src/optimizer/optimizer.rs. It owns every piece of
// mutable run state the original kept scattered across a struct and free
// functions: the dataset, the LLM client, the prompt pool, the I/O logger,
// and a single seeded RNG so a run is reproducible end to end.
package optimizer

import "github.com/ai-flowx/promptforge/internal/dataset"

// Params mirrors CritiqueNRefineParams: the tunables that drive one
// optimization run, loaded from config and progressively mutated as the
// outer mutation loop in Orchestrator.GetBestPrompt narrows in on a best
// instruction.
type Params struct {
	UniqueModelID string

	// Number of candidate prompts to generate per mutation round.
	StyleVariation int
	// Number of questions asked to the LLM in a single scoring batch.
	QuestionsBatchSize int
	// Number of all-correct batches required before a prompt is
	// considered good enough to stop early.
	MinCorrectCount int
	// Max number of scoring batches evaluated per candidate prompt.
	MaxEvalBatches int
	// Number of top-scoring prompts carried into the next round.
	TopN int
	// Number of stylistic-variation rounds per mutation iteration.
	MutationRounds int
	// Whether to run critique-and-refine on the mutated prompts.
	RefineInstruction bool
	// Outer loop count: mutate, score, optionally refine.
	MutateRefineIterations int
	// Inner loop count: alternate refining the instruction and the
	// in-context examples.
	RefineTaskEgIterations int

	TaskDescription string
	BaseInstruction string
	AnswerFormat    string

	SeenSetSize  int
	FewShotCount int

	GenerateReasoning      bool
	GenerateExpertIdentity bool
	GenerateIntentKeywords bool

	NumTrainExamples int
}

// ScoredPrompt is one row of a prompt_score_list: an instruction, its
// fractional pass rate, and the wrong-answer examples gathered while
// scoring it (fed to critique-and-refine as the critique example set).
type ScoredPrompt struct {
	Instruction string
	Score       float64
	CritiqueSet []dataset.Example
}
