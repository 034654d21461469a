package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ai-flowx/promptforge/internal/applog"
	"github.com/ai-flowx/promptforge/internal/config"
	"github.com/ai-flowx/promptforge/internal/dataset"
	"github.com/ai-flowx/promptforge/internal/iolog"
	"github.com/ai-flowx/promptforge/internal/llm"
	"github.com/ai-flowx/promptforge/internal/optimizer"
	"github.com/ai-flowx/promptforge/internal/promptpool"
)

// version is set to the git ref at release time by the build; a plain
// "dev" default keeps `go build ./...` working without ldflags.
var version = "dev"

const (
	exitArgumentError = -1
	exitConfigError   = -2
)

// CLI is the surface kong parses: a config overlay path and a version
// flag, matching spec.md §6's two-flag entrypoint.
type CLI struct {
	ConfigFile string           `short:"c" default:"config.yml" help:"Path to the YAML config overlay."`
	Version    kong.VersionFlag `help:"Print the version and exit."`
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("promptforge"),
		kong.Description("Automated critique-and-refine prompt optimization."),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitArgumentError)
	}

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitArgumentError)
	}

	if err := run(cli.ConfigFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile, os.ReadFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := applog.New(cfg.LogLevel)

	poolData, err := os.ReadFile(cfg.PromptPool.Path)
	if err != nil {
		return fmt.Errorf("read prompt pool: %w", err)
	}
	pool, err := promptpool.Load(poolData)
	if err != nil {
		return fmt.Errorf("load prompt pool: %w", err)
	}

	datasetFile, err := os.Open(cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	examples, err := dataset.LoadExamples(datasetFile)
	datasetFile.Close()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	registry := llm.NewRegistry(cfg.RequestTimeout, logger)
	client, err := registry.Build(llm.Provider(cfg.LLM.Provider), cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.RecognizedModels)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	ioLogger, err := iolog.New(cfg.LogBasePath)
	if err != nil {
		return fmt.Errorf("init io logger: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	orch := optimizer.New(examples, client, pool, ioLogger, rng, logger)

	params := &optimizer.Params{
		UniqueModelID:          cfg.Optimization.UniqueModelID,
		StyleVariation:         cfg.Optimization.StyleVariation,
		QuestionsBatchSize:     cfg.Optimization.QuestionsBatchSize,
		MinCorrectCount:        cfg.Optimization.MinCorrectCount,
		MaxEvalBatches:         cfg.Optimization.MaxEvalBatches,
		TopN:                   cfg.Optimization.TopN,
		MutationRounds:         cfg.Optimization.MutationRounds,
		RefineInstruction:      cfg.Optimization.RefineInstruction,
		MutateRefineIterations: cfg.Optimization.MutateRefineIterations,
		RefineTaskEgIterations: cfg.Optimization.RefineTaskEgIterations,
		TaskDescription:        cfg.Optimization.TaskDescription,
		BaseInstruction:        cfg.Optimization.BaseInstruction,
		AnswerFormat:           cfg.Optimization.AnswerFormat,
		SeenSetSize:            cfg.Optimization.SeenSetSize,
		FewShotCount:           cfg.Optimization.FewShotCount,
		GenerateReasoning:      cfg.Optimization.GenerateReasoning,
		GenerateExpertIdentity: cfg.Optimization.GenerateExpertIdentity,
		GenerateIntentKeywords: cfg.Optimization.GenerateIntentKeywords,
		NumTrainExamples:       cfg.Optimization.NumTrainExamples,
	}

	prompt, expertIdentity, err := orch.GetBestPrompt(context.Background(), params, cfg.Run.UseExamples, cfg.Run.RunWithoutTrainExamples, cfg.Run.GenerateSyntheticExamples)
	if err != nil {
		return fmt.Errorf("optimize prompt: %w", err)
	}

	if prompt != "" {
		fmt.Println("Expert identity:")
		fmt.Println(expertIdentity)
		fmt.Println()
		fmt.Println("Final prompt:")
		fmt.Println(prompt)
	}

	return nil
}
