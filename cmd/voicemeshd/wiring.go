package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/voicemesh"
	"github.com/hupe1980/voicemesh/config"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/engine"
	"github.com/hupe1980/voicemesh/internal/bizapi"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/memory"
	"github.com/hupe1980/voicemesh/memory/mongo"
	"github.com/hupe1980/voicemesh/memory/postgres"
	"github.com/hupe1980/voicemesh/model"
	"github.com/hupe1980/voicemesh/model/anthropic"
	"github.com/hupe1980/voicemesh/model/openai"
)

// application owns the process-wide services.
type application struct {
	mesh    *voicemesh.VoiceMesh
	closers []func(ctx context.Context) error
}

// Close drains sessions and memory saves, then releases backends.
func (a *application) Close(ctx context.Context) error {
	errs := []error{a.mesh.Shutdown(ctx)}

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}

	return errors.Join(errs...)
}

func build(ctx context.Context, cfg config.Config, logger *logging.StructuredLogger) (*application, error) {
	app := &application{}

	m := newInstrumentedModel(newModel(cfg.Model), logger)

	store, err := newMemoryStore(ctx, cfg.Memory, app)
	if err != nil {
		return nil, err
	}

	var api *bizapi.Client
	if cfg.BizAPI.BookReadingURL != "" {
		api, err = bizapi.New(func(o *bizapi.Options) {
			o.BookReadingURL = cfg.BizAPI.BookReadingURL
			o.ResourceURL = cfg.BizAPI.ResourceURL
			o.Timeout = cfg.BizAPI.Timeout
			o.RateLimit = cfg.BizAPI.RateLimit
			o.Burst = cfg.BizAPI.Burst
			o.Logger = logger.WithComponent("bizapi")
		})
		if err != nil {
			return nil, fmt.Errorf("bizapi: %w", err)
		}
	} else {
		logger.Warn("voicemeshd.bizapi.disabled", "reason", "bizapi.book_reading_url not set")
	}

	var rewriter *memory.QueryRewriter
	if cfg.Memory.RewriteQueries {
		rewriter = memory.NewQueryRewriter(m, logger.WithComponent("memory"))
	}

	registry := engine.Registry{}

	for name, factory := range registryFor(api, rewriter) {
		if cfg.AgentEnabled(name) {
			registry[name] = factory
		}
	}

	callbacks := engine.NewCallbackManager()
	callbacks.RegisterCallback(engine.NewLoggingCallback(engine.CallbackOnError, logger))

	mesh, err := voicemesh.New(func(o *voicemesh.Options) {
		o.Model = m
		o.Registry = registry
		o.MemoryStore = store
		o.Saver = memory.SaverOptions{
			Workers: int64(cfg.Memory.Workers),
			Queue:   int64(cfg.Memory.Queue),
			Timeout: cfg.Memory.SaveTimeout,
		}
		o.MaxContinuationDepth = cfg.Agents.MaxContinuationDepth
		if cfg.Agents.FallbackText != "" {
			o.FallbackText = cfg.Agents.FallbackText
		}
		if cfg.Agents.OuterPrompt != "" {
			o.Prompt = cfg.Agents.OuterPrompt
		}
		o.Callbacks = callbacks
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	app.mesh = mesh

	return app, nil
}

// registryFor avoids handing a typed nil rewriter to the reading partner.
func registryFor(api *bizapi.Client, rewriter *memory.QueryRewriter) engine.Registry {
	if rewriter == nil {
		return voicemesh.DefaultRegistry(api, nil)
	}

	return voicemesh.DefaultRegistry(api, rewriter)
}

func newModel(cfg config.ModelConfig) model.Model {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
		})
	default:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	}
}

func newMemoryStore(ctx context.Context, cfg config.MemoryConfig, app *application) (core.MemoryStore, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres memory: %w", err)
		}

		if err := store.CreateSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("postgres memory schema: %w", err)
		}

		app.closers = append(app.closers, func(context.Context) error {
			store.Close()
			return nil
		})

		return store, nil
	case config.BackendMongo:
		store, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("mongo memory: %w", err)
		}

		if err := store.CreateSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("mongo memory schema: %w", err)
		}

		app.closers = append(app.closers, store.Close)

		return store, nil
	default:
		return memory.NewInMemoryStore(), nil
	}
}

// instrumentedModel records latency and outcome of every model call.
type instrumentedModel struct {
	model.Model
	logger *logging.StructuredLogger
}

func newInstrumentedModel(m model.Model, logger *logging.StructuredLogger) model.Model {
	return &instrumentedModel{Model: m, logger: logger.WithComponent("model")}
}

func (m *instrumentedModel) StreamWithTools(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	chunks, errs := m.Model.StreamWithTools(ctx, req)
	return m.observe(chunks, errs)
}

func (m *instrumentedModel) StreamNoTools(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	chunks, errs := m.Model.StreamNoTools(ctx, req)
	return m.observe(chunks, errs)
}

// observe forwards errs and logs the call once the stream ends. Chunks pass
// through untouched.
func (m *instrumentedModel) observe(chunks <-chan model.Chunk, errs <-chan error) (<-chan model.Chunk, <-chan error) {
	start := time.Now()
	out := make(chan error, 1)

	go func() {
		defer close(out)

		var callErr error
		for err := range errs {
			if err != nil && callErr == nil {
				callErr = err
				out <- err
			}
		}

		m.logger.LogLLMCall(m.Info().Name, time.Since(start), callErr)
	}()

	return chunks, out
}
