// Package config loads the YAML configuration for one optimizer run:
// dataset and prompt pool locations, LLM credentials, and
// OptimizationParams overrides (spec.md §6). A built-in default document is
// merged with an optional user-supplied overlay — the overlay wins wherever
// both define a key, and anything it omits falls back to the default.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a config file that parsed as YAML but failed a
// semantic check in Validate (a missing required field or a non-positive
// max_eval_batches). Read and parse failures are returned as ordinary
// wrapped errors instead.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "config: " + e.Reason }

type Config struct {
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogBasePath    string        `yaml:"log_base_path"`
	Seed           int64         `yaml:"seed"`

	Dataset      DatasetConfig      `yaml:"dataset"`
	PromptPool   PromptPoolConfig   `yaml:"prompt_pool"`
	LLM          LLMConfig          `yaml:"llm"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Run          RunConfig          `yaml:"run"`
}

type DatasetConfig struct {
	Path      string `yaml:"path"`
	Lowercase bool   `yaml:"lowercase"`
}

type PromptPoolConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider         string   `yaml:"provider"`
	APIKey           string   `yaml:"api_key"`
	BaseURL          string   `yaml:"base_url"`
	Model            string   `yaml:"model"`
	RecognizedModels []string `yaml:"recognized_models"`
}

// OptimizationConfig maps directly onto optimizer.Params; see spec.md §3.
type OptimizationConfig struct {
	UniqueModelID string `yaml:"unique_model_id"`

	StyleVariation         int  `yaml:"style_variation"`
	QuestionsBatchSize     int  `yaml:"questions_batch_size"`
	MinCorrectCount        int  `yaml:"min_correct_count"`
	MaxEvalBatches         int  `yaml:"max_eval_batches"`
	TopN                   int  `yaml:"top_n"`
	MutationRounds         int  `yaml:"mutation_rounds"`
	RefineInstruction      bool `yaml:"refine_instruction"`
	MutateRefineIterations int  `yaml:"mutate_refine_iterations"`
	RefineTaskEgIterations int  `yaml:"refine_task_eg_iterations"`

	TaskDescription string `yaml:"task_description"`
	BaseInstruction string `yaml:"base_instruction"`
	AnswerFormat    string `yaml:"answer_format"`

	SeenSetSize  int `yaml:"seen_set_size"`
	FewShotCount int `yaml:"few_shot_count"`

	GenerateReasoning      bool `yaml:"generate_reasoning"`
	GenerateExpertIdentity bool `yaml:"generate_expert_identity"`
	GenerateIntentKeywords bool `yaml:"generate_intent_keywords"`

	NumTrainExamples int `yaml:"num_train_examples"`
}

// RunConfig selects which of GetBestPrompt's three branches a run takes.
type RunConfig struct {
	UseExamples               bool `yaml:"use_examples"`
	RunWithoutTrainExamples   bool `yaml:"run_without_train_examples"`
	GenerateSyntheticExamples bool `yaml:"generate_synthetic_examples"`
}

const defaultConfigYAML = `
log_level: info
request_timeout: 30s
log_base_path: ./logs
seed: 1

dataset:
  lowercase: false

prompt_pool:
  path: ./prompt_pool.yml

llm:
  provider: openrouter
  base_url: ""

optimization:
  style_variation: 5
  questions_batch_size: 5
  min_correct_count: 3
  max_eval_batches: 6
  top_n: 3
  mutation_rounds: 2
  refine_instruction: true
  mutate_refine_iterations: 3
  refine_task_eg_iterations: 3
  seen_set_size: 25
  few_shot_count: 3
  generate_reasoning: true
  generate_expert_identity: true
  generate_intent_keywords: true
  num_train_examples: 5

run:
  use_examples: true
  run_without_train_examples: false
  generate_synthetic_examples: false
`

// Load reads overlayPath (if non-empty) and merges it over the built-in
// defaults. An overlay may omit any field; the default value survives.
func Load(overlayPath string, readFile func(string) ([]byte, error)) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse built-in defaults: %w", err)
	}

	if overlayPath != "" {
		data, err := readFile(overlayPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", overlayPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", overlayPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields a run cannot proceed without. It does not
// check prompt pool template placeholders — promptpool.Load does that once
// the pool file is actually read.
func (c Config) Validate() error {
	switch {
	case c.Dataset.Path == "":
		return &ValidationError{Reason: "dataset.path is required"}
	case c.PromptPool.Path == "":
		return &ValidationError{Reason: "prompt_pool.path is required"}
	case c.LLM.Provider == "":
		return &ValidationError{Reason: "llm.provider is required"}
	case c.LLM.Model == "":
		return &ValidationError{Reason: "llm.model is required"}
	case c.Optimization.TaskDescription == "" && !c.Run.GenerateSyntheticExamples:
		return &ValidationError{Reason: "optimization.task_description is required"}
	case c.Optimization.BaseInstruction == "":
		return &ValidationError{Reason: "optimization.base_instruction is required"}
	case c.Optimization.MaxEvalBatches <= 0:
		return &ValidationError{Reason: "optimization.max_eval_batches must be positive"}
	}
	return nil
}
