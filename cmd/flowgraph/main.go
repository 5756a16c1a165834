// Command flowgraph runs a workflow definition from a JSON file.
//
// Usage:
//
//	flowgraph -workflow workflow.json [-inputs inputs.json] [-env .env] [-strict]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smilemakc/flowgraph/internal/application/observer"
	"github.com/smilemakc/flowgraph/internal/config"
	"github.com/smilemakc/flowgraph/internal/infrastructure/logger"
	"github.com/smilemakc/flowgraph/internal/infrastructure/storage"
	"github.com/smilemakc/flowgraph/internal/infrastructure/tracing"
	"github.com/smilemakc/flowgraph/pkg/engine"
	"github.com/smilemakc/flowgraph/pkg/executor"
	"github.com/smilemakc/flowgraph/pkg/executor/builtin"
	"github.com/smilemakc/flowgraph/pkg/models"
	"github.com/smilemakc/flowgraph/pkg/plan"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	workflowPath := flag.String("workflow", "", "path to the workflow definition JSON")
	inputsPath := flag.String("inputs", "", "path to the inputs JSON (optional)")
	envFile := flag.String("env", ".env", "path to the env file")
	strict := flag.Bool("strict", false, "strict build validation")
	flag.Parse()

	if *workflowPath == "" {
		return fmt.Errorf("-workflow is required")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	def, err := loadDefinition(*workflowPath)
	if err != nil {
		return err
	}

	inputs := map[string]interface{}{}
	if *inputsPath != "" {
		if err := loadJSON(*inputsPath, &inputs); err != nil {
			return err
		}
	}

	var buildOpts []plan.Option
	if *strict {
		buildOpts = append(buildOpts, plan.WithStrictValidation())
	}
	p, err := plan.NewBuilder(buildOpts...).Build(def)
	if err != nil {
		return err
	}
	for _, w := range p.Warnings {
		log.Warn("build warning", "warning", w)
	}

	registry := executor.NewRegistry()
	builtin.MustRegisterBuiltins(registry, &builtin.Options{
		OpenAIAPIKey: cfg.OpenAI.APIKey,
	})

	manager := observer.NewManager(
		observer.WithLogger(log),
		observer.WithBufferSize(cfg.Observer.BufferSize),
	)
	defer manager.Close()
	if cfg.Observer.EnableLogger {
		if err := manager.Register(observer.NewLoggerObserver(os.Stderr, nil)); err != nil {
			return err
		}
	}
	if cfg.Observer.EnableMetrics {
		if err := manager.Register(observer.NewMetricsObserver(nil)); err != nil {
			return err
		}
	}

	tracerProvider, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err.Error())
		}
	}()

	opts := &engine.Options{
		Registry:          registry,
		Waitpoints:        engine.NewMemoryWaitpointStore(),
		Notifier:          manager,
		Tracer:            tracerProvider.Tracer(),
		MaxConcurrency:    cfg.Engine.MaxConcurrency,
		NodeTimeout:       cfg.Engine.NodeTimeout,
		MaxOutputSize:     cfg.Engine.MaxOutputSize,
		CancelGracePeriod: cfg.Engine.CancelGracePeriod,
		StrictTemplates:   cfg.Engine.StrictTemplates,
	}

	exec, err := engine.New(opts)
	if err != nil {
		return err
	}

	outcome, err := exec.Run(ctx, p, inputs)
	if err != nil {
		return err
	}

	if cfg.Database.DSN != "" {
		db := storage.Connect(cfg.Database)
		defer db.Close()
		if err := storage.CreateTables(ctx, db); err != nil {
			log.Warn("schema setup failed", "error", err.Error())
		} else {
			repo := storage.NewExecutionRepository(db)
			if err := repo.Save(ctx, outcome.ToExecution(def.Name)); err != nil {
				log.Warn("failed to persist execution", "error", err.Error())
			}
		}
	}

	return printOutcome(outcome)
}

func loadDefinition(path string) (*models.Definition, error) {
	var def models.Definition
	if err := loadJSON(path, &def); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", path, err)
	}
	return &def, nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func printOutcome(outcome *engine.Outcome) error {
	summary := map[string]interface{}{
		"execution_id": outcome.ExecutionID,
		"status":       outcome.Status,
		"success":      outcome.Success,
		"outputs":      outcome.Outputs,
		"completed":    outcome.CompletedNodes,
		"failed":       outcome.FailedNodes,
		"skipped":      outcome.SkippedNodes,
		"duration_ms":  outcome.DurationMs,
	}
	if outcome.IsPaused() {
		summary["waitpoint_id"] = outcome.WaitpointID
		summary["partial_outputs"] = outcome.PartialOutputs
	}
	if outcome.Error != "" {
		summary["error"] = outcome.Error
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
