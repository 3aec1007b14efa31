package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/canopya/canopya/ingest"
)

// IngestCmd indexes documents into the knowledge base.
type IngestCmd struct {
	Paths []string `arg:"" help:"Document files or directories to ingest (pdf, md, txt)." type:"path"`
}

func (c *IngestCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cleanup, err := cli.initLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	files, err := ingest.CollectFiles(c.Paths)
	if err != nil {
		return fmt.Errorf("failed to collect documents: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents found under %v", c.Paths)
	}

	pipeline, closePipeline, err := buildIngestPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePipeline()

	stats, err := pipeline.Run(ctx, files)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %d file(s): %d chunks indexed, %d skipped.\n",
		stats.Files, stats.Chunks, stats.Skipped)
	return nil
}
