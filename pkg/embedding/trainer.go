package embedding

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xhad/wikivec/pkg/corpus"
	"github.com/ynqa/wego/pkg/model/modelutil/vector"
	wego "github.com/ynqa/wego/pkg/model/word2vec"
)

type TrainerConfig struct {
	VectorDimension int
	Window          int
	MinCount        int
	Iterations      int
	NegativeSamples int
	// Architecture is "cbow" or "skipgram".
	Architecture string
	WorkerCount  int
	ModelPath    string
	VectorPath   string
}

type Trainer struct {
	config TrainerConfig
}

func NewTrainerWithConfig(config TrainerConfig) *Trainer {
	if config.VectorDimension == 0 {
		config.VectorDimension = 200
	}
	if config.Window == 0 {
		config.Window = 5
	}
	if config.MinCount == 0 {
		config.MinCount = 5
	}
	if config.Iterations == 0 {
		config.Iterations = 5
	}
	if config.NegativeSamples == 0 {
		config.NegativeSamples = 5
	}
	if config.Architecture == "" {
		config.Architecture = "cbow"
	}
	if config.WorkerCount == 0 {
		config.WorkerCount = 3
	}

	return &Trainer{config: config}
}

// Train fits a word2vec model on the corpus at corpusPath in a single pass
// of the training library, then saves it twice: the library's own text
// format at ModelPath and the binary interchange format at VectorPath.
func (t *Trainer) Train(ctx context.Context, corpusPath string) (*VectorTable, error) {
	sentences, err := corpus.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer sentences.Close()

	lines, tokens, vocabulary, err := sentences.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}
	log.Printf("Training on %d lines, %d tokens, %d distinct words", lines, tokens, vocabulary)

	arch, err := t.architecture()
	if err != nil {
		return nil, err
	}
	model, err := wego.New(
		wego.Dim(t.config.VectorDimension),
		wego.Window(t.config.Window),
		wego.MinCount(t.config.MinCount),
		wego.Iter(t.config.Iterations),
		wego.NegativeSampleSize(t.config.NegativeSamples),
		wego.Model(arch),
		wego.Optimizer(wego.NegativeSampling),
		wego.Goroutines(t.config.WorkerCount),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := model.Train(sentences); err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}

	var native bytes.Buffer
	if err := model.Save(&native, vector.Single); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	table, err := ReadNative(bytes.NewReader(native.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to read trained vectors: %w", err)
	}
	if table.Dim != t.config.VectorDimension {
		return nil, fmt.Errorf("trained vectors have %d dimensions, want %d", table.Dim, t.config.VectorDimension)
	}

	if err := writeFile(t.config.ModelPath, native.Bytes()); err != nil {
		return nil, err
	}

	var interchange bytes.Buffer
	if err := table.WriteWord2VecFormat(&interchange); err != nil {
		return nil, err
	}
	if err := writeFile(t.config.VectorPath, interchange.Bytes()); err != nil {
		return nil, err
	}

	log.Printf("Saved %d word vectors to %s and %s", table.Len(), t.config.ModelPath, t.config.VectorPath)
	return table, nil
}

func (t *Trainer) architecture() (wego.ModelType, error) {
	switch t.config.Architecture {
	case "cbow":
		return wego.Cbow, nil
	case "skipgram":
		return wego.SkipGram, nil
	}
	return "", fmt.Errorf("unknown architecture %q", t.config.Architecture)
}

func writeFile(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
