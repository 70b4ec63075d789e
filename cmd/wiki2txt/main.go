package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/wikivec/internal/ui"
	cfgPkg "github.com/xhad/wikivec/pkg/config"
	"github.com/xhad/wikivec/pkg/corpus"
	"github.com/xhad/wikivec/pkg/extractor"
	"github.com/xhad/wikivec/pkg/fetcher"
	"github.com/xhad/wikivec/pkg/normalizer"
	"github.com/xhad/wikivec/pkg/processor"
)

type Config struct {
	Cmd        string
	ConfigPath string
	File       string
	Progress   bool
}

func main() {
	config := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.Cmd, "cmd", "", "Command to run: parse, sample, convert or fetch")
	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.File, "file", "", "Path to the wiki dump (parse) or corpus file (sample)")
	flag.BoolVar(&config.Progress, "progress", true, "Show progress bars")
	flag.Parse()

	return config
}

func loadConfig(path string) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration: %d errors", len(errs))
	}
	return cfg, nil
}

func run(ctx context.Context, config Config) error {
	cfg, err := loadConfig(config.ConfigPath)
	if err != nil {
		return err
	}

	switch config.Cmd {
	case "parse":
		return parse(ctx, config, cfg)
	case "sample":
		path := cfg.Corpus.CorpusPath
		if config.File != "" {
			path = config.File
		}
		return corpus.Sample(path, cfg.Corpus.SampleLines, os.Stdout)
	case "convert":
		return convert(cfg)
	case "fetch":
		return fetch(ctx, config, cfg)
	case "":
		return errors.New("missing --cmd")
	}
	return fmt.Errorf("unknown command %q", config.Cmd)
}

func parse(ctx context.Context, config Config, cfg *cfgPkg.Config) error {
	dumpPath := cfg.Corpus.DumpPath
	if config.File != "" {
		dumpPath = config.File
	}
	// Nothing to extract without a dump
	if dumpPath == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Corpus.DataDir, 0755); err != nil {
		return err
	}

	extractorConfig := extractor.ExtractorConfig{
		WorkerCount: cfg.Extractor.WorkerCount,
		LogEvery:    cfg.Extractor.LogEvery,
		Processor: processor.ProcessorConfig{
			TokenMinLen:      cfg.Extractor.TokenMinLen,
			TokenMaxLen:      cfg.Extractor.TokenMaxLen,
			MinArticleTokens: cfg.Extractor.MinArticleTokens,
			Namespaces:       cfg.Extractor.Namespaces,
			RemoveStopwords:  cfg.Extractor.RemoveStopwords,
		},
	}
	if config.Progress {
		bar := ui.ProgressBar(-1, "Extracting articles")
		defer bar.Finish()
		extractorConfig.OnProgress = func(saved int) {
			bar.Set(saved)
		}
	}

	color.Blue("Extracting %s into %s", dumpPath, cfg.Corpus.CorpusPath)
	saved, err := extractor.NewWithConfig(extractorConfig).Extract(ctx, dumpPath, cfg.Corpus.CorpusPath)
	if err != nil {
		return err
	}
	color.Green("\n✓ Saved %d articles", saved)
	return nil
}

func convert(cfg *cfgPkg.Config) error {
	n, err := normalizer.NewWithConfig(normalizer.NormalizerConfig{
		Conversion:    cfg.Normalizer.Conversion,
		InputPattern:  cfg.Normalizer.InputPattern,
		OutputPattern: cfg.Normalizer.OutputPattern,
		First:         cfg.Normalizer.First,
		Last:          cfg.Normalizer.Last,
	})
	if err != nil {
		return err
	}
	return n.NormalizeNumbered()
}

func fetch(ctx context.Context, config Config, cfg *cfgPkg.Config) error {
	fetcherConfig := fetcher.FetcherConfig{
		IndexURL:  cfg.Fetcher.IndexURL,
		Pattern:   cfg.Fetcher.Pattern,
		RateLimit: cfg.Fetcher.RateLimit,
		Timeout:   cfg.Fetcher.Timeout,
	}
	if config.Progress {
		var bar *progressbar.ProgressBar
		fetcherConfig.OnProgress = func(written, total int64) {
			if bar == nil {
				bar = ui.BytesBar(total, "Downloading dump")
			}
			bar.Set64(written)
		}
		defer func() {
			if bar != nil {
				bar.Finish()
			}
		}()
	}

	f, err := fetcher.NewWithConfig(fetcherConfig)
	if err != nil {
		return err
	}

	path, err := f.Fetch(ctx, cfg.Corpus.DataDir)
	if err != nil {
		return err
	}
	color.Green("\n✓ Downloaded %s", path)
	color.Cyan("Run with --cmd=parse --file=%s to build the corpus", path)
	return nil
}
