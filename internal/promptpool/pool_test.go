package promptpool

import "testing"

func minimalValidYAML() []byte {
	return []byte(`
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
`)
}

func TestLoadValid(t *testing.T) {
	p, err := Load(minimalValidYAML())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.ThinkingStyles) != 2 {
		t.Errorf("expected 2 thinking styles, got %d", len(p.ThinkingStyles))
	}
}

func TestLoadMissingPlaceholderFails(t *testing.T) {
	data := []byte(`
system_prompt: "x"
final_prompt: "{instruction} no answer format here"
quest_reason_ans: "{question} {answer}"
expert_profile: "x"
expert_template: "{task_description}"
intent_template: "{task_description} {instruction}"
thinking_styles: ["a"]
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
`)
	if _, err := Load(data); err == nil {
		t.Fatalf("expected error for missing {few_shot_examples} placeholder")
	}
}

func TestSubstituteLiteral(t *testing.T) {
	out := Substitute("hello {name}, {name}!", map[string]string{"name": "{world}"})
	want := "hello {world}, {world}!"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestSubstituteDoesNotRecurse(t *testing.T) {
	// A substituted value that itself contains a placeholder token must
	// not be re-substituted in the same pass.
	out := Substitute("{a}{b}", map[string]string{"a": "{b}", "b": "X"})
	if out != "{b}X" {
		t.Errorf("got %q, want literal %q (no recursive substitution)", out, "{b}X")
	}
}
