package main

import (
	"fmt"

	"github.com/liftstation/pumpkernel/internal/agents"
	"github.com/liftstation/pumpkernel/internal/config"
	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/coordinator"
	"github.com/liftstation/pumpkernel/internal/dataset"
	"github.com/liftstation/pumpkernel/internal/forecast"
	"github.com/liftstation/pumpkernel/internal/kernel"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
	"github.com/liftstation/pumpkernel/internal/validator"
)

// buildDriver wires every kernel component from a resolved config,
// matching the component graph in SPEC_FULL.md's module layout table.
func buildDriver(cfg config.Config) (*kernel.Driver, error) {
	if cfg.DatasetPath == "" {
		return nil, fmt.Errorf("dataset_path is required (set PUMPKERNEL_DATASET_PATH or --config)")
	}

	logger := logging.NewComponentLogger("pumpkernel")
	cset := constraints.Default()

	if cfg.ForecasterModelPath != "" {
		logger.Info("forecaster_model_path=%s configured but unused: this build's forecaster is a persistence+trend heuristic over the dataset, not a loaded artifact", cfg.ForecasterModelPath)
	}

	reader, err := dataset.Load(cfg.DatasetPath, cfg.PriceScenario, cfg.DatasetMetaPath)
	if err != nil {
		return nil, err
	}

	model, err := pumpmodel.New(cfg.PumpModelCacheSize)
	if err != nil {
		return nil, fmt.Errorf("pump model: %w", err)
	}

	fc, err := forecast.New(reader, cfg.ForecasterLookback, cfg.ForecasterCacheSize, logging.NewComponentLogger("forecaster"))
	if err != nil {
		return nil, fmt.Errorf("forecaster: %w", err)
	}

	client := buildLLMClient(cfg)

	registry := agents.NewRegistry(client, logging.NewComponentLogger("agents"))
	coord := coordinator.New(client, logging.NewComponentLogger("coordinator"), model, cset)
	valid := validator.New(model, cset)

	driver := kernel.New(registry, fc, model, coord, valid, cset, reader, logging.NewComponentLogger("kernel"), kernel.Config{
		AgentTimeout:       cfg.AgentTimeout,
		CoordinatorTimeout: cfg.CoordinatorTimeout,
	})
	return driver, nil
}

func buildLLMClient(cfg config.Config) llm.Client {
	if cfg.UsesMockLLM() {
		return llm.NewMockClient(cfg.LLMModel, nil)
	}
	return llm.NewAnthropicClient(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
	}, logging.NewComponentLogger("llm"))
}
