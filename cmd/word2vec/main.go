package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/wikivec/internal/types"
	"github.com/xhad/wikivec/internal/ui"
	cfgPkg "github.com/xhad/wikivec/pkg/config"
	"github.com/xhad/wikivec/pkg/embedding"
	"github.com/xhad/wikivec/pkg/processor"
	"github.com/xhad/wikivec/pkg/query"
	"github.com/xhad/wikivec/pkg/store"
	"github.com/xhad/wikivec/server"
)

type Config struct {
	Cmd        string
	ConfigPath string
	CorpusFile string
	Positive   string
	Negative   string
	TopN       int
	Backend    string
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

	flag.StringVar(&config.Cmd, "cmd", "", "Command to run: train, test, export or serve")
	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.CorpusFile, "corpus_file", "", "Corpus file to train on")
	flag.StringVar(&config.Positive, "positive", "", "Comma separated positive query words")
	flag.StringVar(&config.Negative, "negative", "", "Comma separated negative query words")
	flag.IntVar(&config.TopN, "topn", 0, "Number of neighbors to return")
	flag.StringVar(&config.Backend, "backend", "", "Query backend: file or pgvector")
	flag.Parse()

	return config
}

// loadConfig applies command line overrides on top of the config file.
func loadConfig(config Config) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return nil, err
	}

	if config.CorpusFile != "" {
		cfg.Corpus.CorpusPath = config.CorpusFile
	}
	if config.Positive != "" || config.Negative != "" {
		cfg.Query.Positive = splitWords(config.Positive)
		cfg.Query.Negative = splitWords(config.Negative)
	}
	if config.TopN != 0 {
		cfg.Query.TopN = config.TopN
	}
	if config.Backend != "" {
		cfg.Query.Backend = config.Backend
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration: %d errors", len(errs))
	}
	return cfg, nil
}

func splitWords(s string) []string {
	var words []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func run(ctx context.Context, config Config) error {
	cfg, err := loadConfig(config)
	if err != nil {
		return err
	}

	switch config.Cmd {
	case "train":
		return train(ctx, cfg)
	case "test":
		return test(ctx, cfg)
	case "export":
		return export(ctx, cfg)
	case "serve":
		return serve(ctx, cfg)
	case "":
		return errors.New("missing --cmd")
	}
	return fmt.Errorf("unknown command %q", config.Cmd)
}

func train(ctx context.Context, cfg *cfgPkg.Config) error {
	trainer := embedding.NewTrainerWithConfig(embedding.TrainerConfig{
		VectorDimension: cfg.Embedding.VectorDimension,
		Window:          cfg.Embedding.Window,
		MinCount:        cfg.Embedding.MinCount,
		Iterations:      cfg.Embedding.Iterations,
		NegativeSamples: cfg.Embedding.NegativeSamples,
		Architecture:    cfg.Embedding.Architecture,
		WorkerCount:     cfg.Embedding.WorkerCount,
		ModelPath:       cfg.ModelPath(),
		VectorPath:      cfg.VectorPath(),
	})

	spinner := ui.Spinner(fmt.Sprintf("Training on %s", cfg.Corpus.CorpusPath))
	table, err := trainer.Train(ctx, cfg.Corpus.CorpusPath)
	spinner.Finish()
	if err != nil {
		return err
	}

	color.Green("\n✓ Trained %d word vectors of dimension %d", table.Len(), table.Dim)
	return nil
}

func test(ctx context.Context, cfg *cfgPkg.Config) error {
	searcher, closeFn, err := openSearcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = query.Similar(ctx, searcher, cfg.Query.Positive, cfg.Query.Negative, cfg.Query.TopN, os.Stdout)
	return err
}

func export(ctx context.Context, cfg *cfgPkg.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("database url is required for export")
	}

	f, err := os.Open(cfg.VectorPath())
	if err != nil {
		return fmt.Errorf("failed to open vectors: %w", err)
	}
	defer f.Close()

	table, err := embedding.ReadWord2VecFormat(f)
	if err != nil {
		return err
	}

	vs, err := openStore(ctx, cfg, table.Dim)
	if err != nil {
		return err
	}
	defer vs.Close()

	vectors := table.WordVectors()
	bar := ui.ProgressBar(len(vectors), "Storing in vector database")
	batchSize := cfg.Database.BatchSize
	for i := 0; i < len(vectors); i += batchSize {
		end := min(i+batchSize, len(vectors))
		if err := vs.Store(ctx, vectors[i:end]); err != nil {
			return err
		}
		bar.Add(end - i)
	}
	bar.Finish()

	color.Green("\n✓ Exported %d word vectors to %s", len(vectors), cfg.Database.TableName)
	return nil
}

func serve(ctx context.Context, cfg *cfgPkg.Config) error {
	searcher, closeFn, err := openSearcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	// Sentence embedding needs the local vectors even when queries go to the database
	var embedder embeddings.Embedder
	if model, err := embedding.Load(cfg.VectorPath()); err != nil {
		color.Yellow("Embedding disabled: %v", err)
	} else if impl, err := embedding.NewEmbedder(model, tokenizer(cfg), 0); err != nil {
		color.Yellow("Embedding disabled: %v", err)
	} else {
		embedder = impl
	}

	s := server.NewWSServer(server.Config{
		Addr:        cfg.Server.Addr,
		DefaultTopN: cfg.Query.TopN,
		MaxTopN:     cfg.Server.MaxTopN,
	}, searcher, embedder)
	return s.ListenAndServe(ctx)
}

func openSearcher(ctx context.Context, cfg *cfgPkg.Config) (types.Searcher, func(), error) {
	switch cfg.Query.Backend {
	case "pgvector":
		model, err := embedding.Load(cfg.VectorPath())
		dim := cfg.Embedding.VectorDimension
		if err == nil {
			dim = model.Dim()
		}
		vs, err := openStore(ctx, cfg, dim)
		if err != nil {
			return nil, nil, err
		}
		return vs, vs.Close, nil
	default:
		model, err := embedding.Load(cfg.VectorPath())
		if err != nil {
			return nil, nil, err
		}
		return model, func() {}, nil
	}
}

func openStore(ctx context.Context, cfg *cfgPkg.Config, dim int) (*store.VectorStore, error) {
	vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  dim,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return vs, nil
}

func tokenizer(cfg *cfgPkg.Config) *processor.Processor {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		TokenMinLen: cfg.Extractor.TokenMinLen,
		TokenMaxLen: cfg.Extractor.TokenMaxLen,
	})
	return &p
}
