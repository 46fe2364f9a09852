package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/talaikis/qbook/pkg/core"
)

// Summary counts the outcome of a replay
type Summary struct {
	Events    int // lines read
	Applied   int // events the book applied or intentionally ignored
	Malformed int // lines that failed boundary validation
	Dropped   int // events the book refused (unrecognized side)
}

// Replayer feeds an NDJSON stream of event messages into a book, one event
// per line. It is the file-based counterpart of the kafka consumer and is
// used by the replay CLI and in tests.
type Replayer struct {
	book   *core.Book
	logger zerolog.Logger
}

// NewReplayer creates a Replayer for the given book
func NewReplayer(book *core.Book, logger zerolog.Logger) *Replayer {
	return &Replayer{
		book:   book,
		logger: logger,
	}
}

// Replay reads events from r until EOF or context cancellation. Malformed
// lines are logged and skipped; an index-corruption error from the book
// aborts the replay.
func (rp *Replayer) Replay(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sum.Events++

		ev, err := DecodeEvent(line)
		if err != nil {
			sum.Malformed++
			rp.logger.Warn().Err(err).Int("line", sum.Events).Msg("Skipping malformed event")
			continue
		}

		ok, err := rp.book.Update(ev)
		if err != nil {
			return sum, fmt.Errorf("book update failed at line %d: %w", sum.Events, err)
		}
		if !ok {
			sum.Dropped++
			continue
		}
		sum.Applied++
	}

	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("reading event stream: %w", err)
	}

	return sum, nil
}
