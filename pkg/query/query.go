package query

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/xhad/wikivec/internal/models"
	"github.com/xhad/wikivec/internal/types"
)

// Similar prints the n nearest words for the analogy query, one
// "word score" line each. A word missing from the vocabulary is reported
// on w and is not an error for the caller.
func Similar(ctx context.Context, searcher types.Searcher, positive, negative []string, n int, w io.Writer) ([]models.Neighbor, error) {
	neighbors, err := searcher.MostSimilar(ctx, positive, negative, n)
	if err != nil {
		var unknown models.UnknownWordError
		if errors.As(err, &unknown) {
			color.New(color.FgRed).Fprintln(w, unknown.Error())
			return nil, nil
		}
		return nil, err
	}

	header := color.New(color.FgCyan)
	header.Fprintf(w, "positive=%v negative=%v\n", positive, negative)

	word := color.New(color.FgGreen).SprintFunc()
	for _, nb := range neighbors {
		if _, err := fmt.Fprintf(w, "%s %.6f\n", word(nb.Word), nb.Score); err != nil {
			return nil, err
		}
	}
	return neighbors, nil
}
