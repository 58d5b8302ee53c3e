package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/internal/infrastructure"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/internal/workflow"
)

// session holds the loaded configuration and started infrastructure for one command.
type session struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

func start(cctx *cli.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	level := slog.LevelInfo
	if cctx.Bool("verbose") {
		level = slog.LevelDebug
	}

	infra, err := infrastructure.New(cfg, level)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}
	infra.Lifecycle.WaitForStartup()

	if err := infra.Ready(); err != nil {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, err
	}

	infra.Logger.Debug(
		"botwatch started",
		"version", cfg.Version,
		"env", cfg.Env(),
		"output_dir", cfg.Pipeline.OutputDir,
	)

	return &session{cfg: cfg, infra: infra}, nil
}

func (s *session) runtime() *workflow.Runtime {
	var recorder workflow.Recorder
	if rep := s.infra.Reports(s.cfg); rep != nil {
		recorder = rep
	}
	return s.infra.Pipeline(s.cfg, recorder)
}

func (s *session) close() {
	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		s.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func runPipeline(cctx *cli.Context) error {
	urls := cctx.Args().Slice()
	if path := cctx.String("urls-file"); path != "" {
		listed, err := readURLs(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		urls = append(urls, listed...)
	}
	if len(urls) == 0 {
		return cli.Exit("need to provide at least one post url", 1)
	}

	s, err := start(cctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := workflow.Run(ctx, s.runtime(), urls)
	if perr := printSummary(cctx, summary); perr != nil {
		return cli.Exit(perr, 1)
	}
	if err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func runRank(cctx *cli.Context) error {
	s, err := start(cctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer s.close()

	rt := s.runtime()
	if cctx.IsSet("bot-threshold") {
		threshold := cctx.Float64("bot-threshold")
		w := (&scoring.Overrides{BotThreshold: &threshold}).Apply(rt.Weights)
		if err := w.Validate(); err != nil {
			return cli.Exit(err, 1)
		}
		rt = rt.WithWeights(w)
	}

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := workflow.RankAll(ctx, rt)
	if perr := printSummary(cctx, summary); perr != nil {
		return cli.Exit(perr, 1)
	}
	if err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func runWeights(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(err, 1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg.Ranker.Weights())
}

func printSummary(cctx *cli.Context, summary *workflow.Summary) error {
	if summary == nil {
		return nil
	}
	if cctx.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	summary.Print(os.Stdout)
	return nil
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	return urls, nil
}
