// Package promptpool holds the immutable bundle of template strings the
// optimizer substitutes into at every phase. Templates are uninterpreted
// strings: placeholder substitution is always literal-string replacement,
// never a format-string interpreter, because templates may themselves
// contain stray braces (YAML-authored prose, JSON examples, etc).
package promptpool

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pool is the fully-populated, read-only set of templates shared by every
// optimizer component. Construction deserializes from YAML; callers must
// not mutate a Pool after Load returns one.
type Pool struct {
	SystemPrompt   string `yaml:"system_prompt"`
	FinalPrompt    string `yaml:"final_prompt"`
	QuestReasonAns string `yaml:"quest_reason_ans"`

	ExpertProfile  string `yaml:"expert_profile"`
	ExpertTemplate string `yaml:"expert_template"`
	IntentTemplate string `yaml:"intent_template"`

	ThinkingStyles []string `yaml:"thinking_styles"`

	MetaCritiqueTemplate         string `yaml:"meta_critique_template"`
	MetaPositiveCritiqueTemplate string `yaml:"meta_positive_critique_template"`
	CritiqueRefineTemplate       string `yaml:"critique_refine_template"`

	SolveTemplate string `yaml:"solve_template"`

	ExamplesCritiqueTemplate         string `yaml:"examples_critique_template"`
	ExamplesOptimizationTemplate     string `yaml:"examples_optimization_template"`
	ExamplesCritiqueTemplateZeroShot string `yaml:"examples_critique_template_zero_shot"`

	MetaSampleTemplate         string `yaml:"meta_sample_template"`
	GenerateReasonTemplate     string `yaml:"generate_reason_template"`
	ReasonOptimizationTemplate string `yaml:"reason_optimization_template"`
}

// requiredPlaceholders lists, per template field, the "{name}" tokens an
// implementer is expected to substitute. Validated at Load time per the
// REDESIGN note: fail loudly on a missing placeholder rather than let a
// literal "{instruction}" leak into a live prompt.
var requiredPlaceholders = map[string][]string{
	"final_prompt":                        {"{instruction}", "{answer_format}", "{few_shot_examples}"},
	"quest_reason_ans":                    {"{question}", "{answer}"},
	"expert_template":                     {"{task_description}"},
	"intent_template":                     {"{task_description}", "{instruction}"},
	"meta_critique_template":              {"{instruction}", "{examples}"},
	"meta_positive_critique_template":     {"{instruction}", "{examples}"},
	"critique_refine_template":            {"{instruction}", "{examples}", "{critique}", "{steps_per_sample}"},
	"solve_template":                      {"{questions_batch_size}", "{answer_format}", "{instruction}", "{questions}"},
	"examples_critique_template":          {"{prompt}", "{examples}", "{task_description}", "{num_examples}"},
	"examples_optimization_template":      {"{prompt}", "{examples}", "{gt_example}", "{critique}", "{task_description}", "{num_examples}"},
	"examples_critique_template_zero_shot": {"{prompt}", "{task_description}", "{num_examples}"},
	"meta_sample_template":                {"{task_description}", "{meta_prompts}", "{num_variations}", "{prompt_instruction}"},
	"generate_reason_template":            {"{task_description}", "{instruction}", "{question}", "{answer}"},
	"reason_optimization_template":        {"{task_description}", "{instruction}"},
}

// fieldTemplates maps the yaml key back to the actual rendered template
// text, so Validate can check placeholder coverage without reflection.
func (p *Pool) fieldTemplates() map[string]string {
	return map[string]string{
		"final_prompt":                          p.FinalPrompt,
		"quest_reason_ans":                      p.QuestReasonAns,
		"expert_template":                       p.ExpertTemplate,
		"intent_template":                       p.IntentTemplate,
		"meta_critique_template":                p.MetaCritiqueTemplate,
		"meta_positive_critique_template":       p.MetaPositiveCritiqueTemplate,
		"critique_refine_template":              p.CritiqueRefineTemplate,
		"solve_template":                        p.SolveTemplate,
		"examples_critique_template":            p.ExamplesCritiqueTemplate,
		"examples_optimization_template":        p.ExamplesOptimizationTemplate,
		"examples_critique_template_zero_shot":  p.ExamplesCritiqueTemplateZeroShot,
		"meta_sample_template":                 p.MetaSampleTemplate,
		"generate_reason_template":             p.GenerateReasonTemplate,
		"reason_optimization_template":         p.ReasonOptimizationTemplate,
	}
}

// Load parses a YAML document into a Pool and validates it.
func Load(data []byte) (Pool, error) {
	var p Pool
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pool{}, fmt.Errorf("parse prompt pool yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pool{}, err
	}
	return p, nil
}

// Validate checks that every expected placeholder appears in its template
// and that the pool has at least one thinking style (the mutator feeds its
// meta-sample prompt from that list), a system prompt and an expert
// profile.
func (p *Pool) Validate() error {
	for field, required := range requiredPlaceholders {
		tmpl := p.fieldTemplates()[field]
		if tmpl == "" {
			return fmt.Errorf("prompt pool: template %q is empty", field)
		}
		for _, token := range required {
			if !strings.Contains(tmpl, token) {
				return fmt.Errorf("prompt pool: template %q is missing placeholder %q", field, token)
			}
		}
	}
	if len(p.ThinkingStyles) == 0 {
		return fmt.Errorf("prompt pool: thinking_styles must be non-empty")
	}
	if p.SystemPrompt == "" {
		return fmt.Errorf("prompt pool: system_prompt must be non-empty")
	}
	if p.ExpertProfile == "" {
		return fmt.Errorf("prompt pool: expert_profile must be non-empty")
	}
	return nil
}

// Substitute performs literal, non-escaping "{name}" replacement — the
// only substitution mechanism any optimizer component is allowed to use
// against pool templates. All placeholders are replaced in a single pass
// (via strings.Replacer) so that a replacement value which itself contains
// "{token}" text is never re-scanned for further substitution, and the
// result does not depend on map iteration order.
func Substitute(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
