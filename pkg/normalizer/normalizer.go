package normalizer

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/longbridgeapp/opencc"
	"github.com/xhad/wikivec/internal/types"
)

type NormalizerConfig struct {
	// Conversion is an OpenCC profile name such as t2s or tw2s.
	Conversion    string
	InputPattern  string
	OutputPattern string
	First         int
	Last          int
	OnLine        func(path string, lines int)
}

type Normalizer struct {
	config    NormalizerConfig
	converter types.Converter
}

func NewWithConfig(config NormalizerConfig) (*Normalizer, error) {
	if config.Conversion == "" {
		config.Conversion = "t2s"
	}

	cc, err := opencc.New(config.Conversion)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion %s: %w", config.Conversion, err)
	}
	return New(config, cc), nil
}

// New uses converter instead of an OpenCC profile.
func New(config NormalizerConfig, converter types.Converter) *Normalizer {
	return &Normalizer{config: config, converter: converter}
}

// NormalizeNumbered converts every numbered input file in [First, Last].
func (n *Normalizer) NormalizeNumbered() error {
	for i := n.config.First; i <= n.config.Last; i++ {
		src := fmt.Sprintf(n.config.InputPattern, i)
		dst := fmt.Sprintf(n.config.OutputPattern, i)
		if _, err := n.NormalizeFile(src, dst); err != nil {
			return err
		}
		log.Printf("%d finished.", i)
	}
	return nil
}

// NormalizeFile writes convert(line) for every line of src to dst and
// returns the line count.
func (n *Normalizer) NormalizeFile(src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	lines, err := n.Normalize(in, out)
	if err != nil {
		return lines, fmt.Errorf("%s: %w", src, err)
	}
	if n.config.OnLine != nil {
		n.config.OnLine(dst, lines)
	}
	return lines, out.Close()
}

// Normalize converts r line by line into w.
func (n *Normalizer) Normalize(r io.Reader, w io.Writer) (int, error) {
	reader := bufio.NewReaderSize(r, 1<<20)
	writer := bufio.NewWriterSize(w, 1<<20)

	lines := 0
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			converted, cerr := n.converter.Convert(strings.TrimSuffix(line, "\n"))
			if cerr != nil {
				return lines, fmt.Errorf("line %d: %w", lines+1, cerr)
			}
			if _, werr := writer.WriteString(converted + "\n"); werr != nil {
				return lines, werr
			}
			lines++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, err
		}
	}

	return lines, writer.Flush()
}
