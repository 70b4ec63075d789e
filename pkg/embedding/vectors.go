package embedding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xhad/wikivec/internal/models"
)

// VectorTable maps each vocabulary word to a vector of length Dim. Words
// keeps insertion order, which is the order files are written in.
type VectorTable struct {
	Dim     int
	Words   []string
	vectors map[string][]float32
}

func NewVectorTable(dim int) *VectorTable {
	return &VectorTable{Dim: dim, vectors: make(map[string][]float32)}
}

// Add stores vec for word. A repeated word keeps its first vector.
func (t *VectorTable) Add(word string, vec []float32) error {
	if len(vec) != t.Dim {
		return fmt.Errorf("vector for %q has %d dimensions, want %d", word, len(vec), t.Dim)
	}
	if _, ok := t.vectors[word]; ok {
		return nil
	}
	t.Words = append(t.Words, word)
	t.vectors[word] = vec
	return nil
}

func (t *VectorTable) Len() int {
	return len(t.Words)
}

func (t *VectorTable) Vector(word string) ([]float32, bool) {
	v, ok := t.vectors[word]
	return v, ok
}

func (t *VectorTable) WordVectors() []models.WordVector {
	out := make([]models.WordVector, 0, len(t.Words))
	for _, w := range t.Words {
		out = append(out, models.WordVector{Word: w, Vector: t.vectors[w]})
	}
	return out
}

// WriteWord2VecFormat writes the binary word2vec interchange format:
// a "<count> <dim>" header line, then per word the word, a space, Dim
// little-endian float32 values and a newline.
func (t *VectorTable) WriteWord2VecFormat(w io.Writer) error {
	writer := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(writer, "%d %d\n", len(t.Words), t.Dim); err != nil {
		return err
	}
	for _, word := range t.Words {
		if _, err := writer.WriteString(word + " "); err != nil {
			return err
		}
		if err := binary.Write(writer, binary.LittleEndian, t.vectors[word]); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// ReadWord2VecFormat reads what WriteWord2VecFormat writes. The newline
// after each vector is optional.
func ReadWord2VecFormat(r io.Reader) (*VectorTable, error) {
	reader := bufio.NewReader(r)

	header, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var count, dim int
	if _, err := fmt.Sscanf(header, "%d %d", &count, &dim); err != nil {
		return nil, fmt.Errorf("invalid header %q: %w", strings.TrimSpace(header), err)
	}
	if dim <= 0 || count < 0 {
		return nil, fmt.Errorf("invalid header %q", strings.TrimSpace(header))
	}

	table := NewVectorTable(dim)
	for i := 0; i < count; i++ {
		word, err := reader.ReadString(' ')
		if err != nil {
			return nil, fmt.Errorf("failed to read word %d: %w", i, err)
		}
		word = strings.TrimLeft(word[:len(word)-1], "\n")

		vec := make([]float32, dim)
		if err := binary.Read(reader, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("failed to read vector for %q: %w", word, err)
		}
		if err := table.Add(word, vec); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// ReadNative parses the trainer's text save format, one "word v1 ... vd"
// line per word. A leading "<count> <dim>" header line is accepted.
func ReadNative(r io.Reader) (*VectorTable, error) {
	reader := bufio.NewReaderSize(r, 1<<20)

	var table *VectorTable
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}

		fields := strings.Fields(line)
		switch {
		case len(fields) == 0:
		case lineNo == 1 && len(fields) == 2 && isInt(fields[0]) && isInt(fields[1]):
		default:
			vec := make([]float32, len(fields)-1)
			for i, f := range fields[1:] {
				v, perr := strconv.ParseFloat(f, 32)
				if perr != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, perr)
				}
				vec[i] = float32(v)
			}
			if table == nil {
				table = NewVectorTable(len(vec))
			}
			if aerr := table.Add(fields[0], vec); aerr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, aerr)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if table == nil || table.Dim == 0 {
		return nil, errors.New("no vectors found")
	}
	return table, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
