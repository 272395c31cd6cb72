package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chainHTTP/internal/config"
	"chainHTTP/internal/output"
	"chainHTTP/internal/probe"
	"chainHTTP/internal/resolve"
	"chainHTTP/internal/server"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cfg.Close()

	// Nothing to do without URLs, an input source or a listen address
	if flag.NArg() == 0 && cfg.InputFile == "" && cfg.ListenAddr == "" && !config.HasPipedData() {
		flag.Usage()
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreResponse {
		if err := os.MkdirAll(cfg.StoreResponseDir, 0o755); err != nil {
			cfg.Logger.Error("failed to create response directory",
				"path", cfg.StoreResponseDir,
				"error", err,
			)
			os.Exit(1)
		}
		cfg.Logger.Info("response storage enabled", "directory", cfg.StoreResponseDir)
	}

	prober := probe.NewProber(cfg)
	defer prober.Close()

	resolver, err := resolve.New(cfg, prober)
	if err != nil {
		cfg.Logger.Error("failed to initialize resolver", "error", err)
		os.Exit(1)
	}

	if cfg.ListenAddr != "" {
		if err := server.Serve(ctx, cfg.ListenAddr, server.New(resolver, cfg.Logger), cfg.Logger); err != nil {
			cfg.Logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, resolver); err != nil {
		cfg.Logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run resolves every input URL and writes one JSON line per input
func run(ctx context.Context, cfg *config.Config, resolver *resolve.Resolver) error {
	inputs := flag.Args()
	if cfg.InputFile != "" {
		file, err := os.Open(cfg.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		inputs = append(inputs, readURLs(file)...)
	} else if len(inputs) == 0 {
		inputs = readURLs(os.Stdin)
	}
	cfg.Logger.Info("loaded URLs", "count", len(inputs))

	var outputWriter io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		outputWriter = file
	}
	writer := bufio.NewWriter(outputWriter)
	defer writer.Flush()

	bar := newStatusBar(os.Stderr, len(inputs), !cfg.Silent)
	defer bar.Close()

	successCount, errorCount := 0, 0
	for outcome := range resolver.ResolveAll(ctx, inputs, cfg.Concurrency) {
		bar.Update(outcome.Input)

		if err := writeOutcome(writer, outcome); err != nil {
			cfg.Logger.Error("failed to write result", "input", outcome.Input, "error", err)
			continue
		}

		if outcome.Err != nil {
			errorCount++
			continue
		}
		successCount++

		// With -o the console still lists the final URL of each chain
		if cfg.OutputFile != "" && !cfg.Silent {
			fmt.Println(outcome.Result.FinalURL())
		}
	}

	cfg.Logger.Info("resolution completed",
		"total", len(inputs),
		"success", successCount,
		"errors", errorCount,
	)
	if ctx.Err() != nil {
		cfg.Logger.Warn("interrupted before all inputs were resolved")
	}
	return nil
}

// writeOutcome encodes a ChainResult, or a Failure line when resolution failed
func writeOutcome(w io.Writer, outcome resolve.Outcome) error {
	var v any = outcome.Result
	if outcome.Err != nil {
		v = output.Failure{
			Input: outcome.Input,
			Error: outcome.Err.Error(),
			Kind:  resolve.KindOf(outcome.Err),
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// readURLs reads URLs from the input reader, skipping comments and empty lines
func readURLs(reader io.Reader) []string {
	var urls []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls
}
