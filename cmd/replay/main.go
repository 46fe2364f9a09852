// Replays a newline-delimited JSON event file into a fresh book and prints
// the resulting depth table, useful for checking a captured feed offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/talaikis/qbook/pkg/core"
	"github.com/talaikis/qbook/pkg/feed"
)

func main() {
	var (
		file       = flag.String("file", "", "Path to the NDJSON event file (required)")
		instrument = flag.String("instrument", "PETR4", "Instrument the events belong to")
		levels     = flag.Int("levels", 5, "Depth levels to print")
		verbose    = flag.Bool("v", false, "Log every malformed line")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -file events.ndjson [-instrument PETR4] [-levels 5]")
		os.Exit(2)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open event file")
	}
	defer f.Close()

	book := core.NewBook(*instrument)
	replayer := feed.NewReplayer(book, logger)

	start := time.Now()
	summary, err := replayer.Replay(context.Background(), f)
	if err != nil {
		logger.Fatal().Err(err).Msg("Replay aborted")
	}
	elapsed := time.Since(start)

	printSummary(summary, elapsed)
	printDepth(book, *levels)
	printStats(book)
}

func printSummary(s feed.Summary, elapsed time.Duration) {
	bold := color.New(color.Bold)
	bold.Printf("\nReplayed %d events in %s\n", s.Events, elapsed.Round(time.Millisecond))
	fmt.Printf("  applied:   %d\n", s.Applied)
	fmt.Printf("  dropped:   %d\n", s.Dropped)
	if s.Malformed > 0 {
		color.Yellow("  malformed: %d", s.Malformed)
	} else {
		fmt.Printf("  malformed: %d\n", s.Malformed)
	}
}

func printDepth(book *core.Book, levels int) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\nTop %d levels for %s:\n\n", levels, book.Instrument())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "BID QTY\tBID\t\tASK\tASK QTY\t")

	for _, row := range book.TopN(levels) {
		bidQty, bidPrice := "-", "-"
		if row.HasBid {
			bidQty = fmt.Sprintf("%d", row.BidQty)
			bidPrice = green(fmt.Sprintf("%.4f", row.BidPrice))
		}

		askQty, askPrice := "-", "-"
		if row.HasAsk {
			askQty = fmt.Sprintf("%d", row.AskQty)
			askPrice = red(fmt.Sprintf("%.4f", row.AskPrice))
		}

		fmt.Fprintf(w, "%s\t%s\t\t%s\t%s\t\n", bidQty, bidPrice, askPrice, askQty)
	}
	w.Flush()
}

func printStats(book *core.Book) {
	stats := book.Stats()
	fmt.Printf("\nResting orders: %d bid / %d ask across %d / %d levels\n",
		stats.BidOrders, stats.AskOrders, stats.BidLevels, stats.AskLevels)

	if price, ok := book.LastTradePrice(); ok {
		fmt.Printf("Last trade price: %.4f\n", price)
	}
	fmt.Printf("Highest order id seen: %d\n", book.MaxOrderID())
}
