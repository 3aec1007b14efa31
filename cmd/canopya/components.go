package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canopya/canopya/chat"
	"github.com/canopya/canopya/config"
	"github.com/canopya/canopya/embedder"
	"github.com/canopya/canopya/ingest"
	"github.com/canopya/canopya/llm"
	"github.com/canopya/canopya/rag"
	"github.com/canopya/canopya/tracestore"
	"github.com/canopya/canopya/vector"
)

// components holds the wired pipeline shared by serve and chat.
type components struct {
	embed      embedder.Embedder
	store      *vector.Failover
	generator  *llm.Failover
	dispatcher *chat.Dispatcher
	traces     *tracestore.Store
}

// buildComponents wires the full pipeline from config: embedder, dual-backend
// vector store and generator, lexical index, retriever, engine, dispatcher.
// withTraces controls whether the SQLite trace store is opened (the one-shot
// chat REPL skips it).
func buildComponents(ctx context.Context, cfg *config.Config, withTraces bool) (*components, error) {
	embed, err := embedder.NewOllamaEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.NewFailoverFromConfig(ctx, cfg.VectorStore)
	if err != nil {
		embed.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	generator, err := llm.NewFailoverFromConfig(ctx, cfg.LLM)
	if err != nil {
		store.Close()
		embed.Close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	expander := rag.NewExpander()
	if cfg.SynonymsFile != "" {
		expander, err = rag.NewExpanderFromFile(cfg.SynonymsFile)
		if err != nil {
			generator.Close()
			store.Close()
			embed.Close()
			return nil, fmt.Errorf("failed to load synonyms file: %w", err)
		}
	}

	lexical := rag.BuildLexicalIndex(ctx, store, cfg.VectorStore.Collection, cfg.VectorStore.ScrollLimit)
	retriever := rag.NewRetriever(store, embed, lexical, expander, cfg.VectorStore.Collection)

	var traces *tracestore.Store
	var recorder rag.Recorder
	if withTraces {
		traces, err = tracestore.New(cfg.Traces)
		if err != nil {
			slog.Warn("Query tracing disabled", "error", err)
		} else {
			recorder = traces
		}
	}

	engine := rag.NewEngine(cfg.RAG, retriever, generator, recorder)
	dispatcher := chat.NewDispatcher(engine, chat.NewRuleEngine(), nil)

	return &components{
		embed:      embed,
		store:      store,
		generator:  generator,
		dispatcher: dispatcher,
		traces:     traces,
	}, nil
}

func (c *components) Close() {
	if c.traces != nil {
		c.traces.Close()
	}
	c.generator.Close()
	c.store.Close()
	c.embed.Close()
}

// buildIngestPipeline wires just the parts document ingestion needs.
func buildIngestPipeline(ctx context.Context, cfg *config.Config) (*ingest.Pipeline, func(), error) {
	embed, err := embedder.NewOllamaEmbedder(cfg.Embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.NewFailoverFromConfig(ctx, cfg.VectorStore)
	if err != nil {
		embed.Close()
		return nil, nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	pipeline, err := ingest.NewPipeline(store, embed, cfg.Ingest)
	if err != nil {
		store.Close()
		embed.Close()
		return nil, nil, err
	}

	cleanup := func() {
		store.Close()
		embed.Close()
	}
	return pipeline, cleanup, nil
}
