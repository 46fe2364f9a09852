// Drives a book with synthetic order events and reports apply latency
// percentiles. Runs fully in process, so the numbers measure the book itself
// rather than transport.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"github.com/talaikis/qbook/pkg/core"
)

const (
	basePrice = 100.0
	tick      = 0.01
	maxDrift  = 50
)

func main() {
	var (
		numEvents  = flag.Int("events", 1_000_000, "Number of events to generate")
		eventsPer  = flag.Int("rate", 0, "Events per second, 0 for unlimited")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		instrument = flag.String("instrument", "LOADTEST", "Instrument name")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, stopping...")
		cancel()
	}()

	var limiter *rate.Limiter
	if *eventsPer > 0 {
		limiter = rate.NewLimiter(rate.Limit(*eventsPer), *eventsPer)
	}

	book := core.NewBook(*instrument)
	gen := newGenerator(*seed)

	// Track apply latency from 100ns to 1s at 3 significant figures
	hist := hdrhistogram.New(100, int64(time.Second), 3)

	log.Printf("Applying %d events (seed %d)...", *numEvents, *seed)
	start := time.Now()

	applied := 0
	for i := 0; i < *numEvents; i++ {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		ev := gen.next()

		evStart := time.Now()
		ok, err := book.Update(ev)
		elapsed := time.Since(evStart)

		if err != nil {
			log.Fatalf("Book rejected event %s: %v", ev, err)
		}
		if ok {
			applied++
		}

		_ = hist.RecordValue(elapsed.Nanoseconds())
	}
	duration := time.Since(start)

	stats := book.Stats()
	log.Printf("Done in %v (%.0f events/sec)", duration.Round(time.Millisecond),
		float64(hist.TotalCount())/duration.Seconds())
	log.Printf("Applied: %d, resting: %d bid / %d ask, levels: %d / %d",
		applied, stats.BidOrders, stats.AskOrders, stats.BidLevels, stats.AskLevels)

	log.Printf("Apply latency: p50=%s p90=%s p99=%s p99.9=%s max=%s",
		time.Duration(hist.ValueAtQuantile(50)),
		time.Duration(hist.ValueAtQuantile(90)),
		time.Duration(hist.ValueAtQuantile(99)),
		time.Duration(hist.ValueAtQuantile(99.9)),
		time.Duration(hist.Max()))
}

// generator produces a plausible event stream: mostly inserts, with
// cancels, fills and replaces against orders it knows are resting.
type generator struct {
	r      *rand.Rand
	nextID int64
	live   []liveOrder
}

type liveOrder struct {
	id    int64
	side  core.Side
	price float64
	qty   int64
}

func newGenerator(seed int64) *generator {
	return &generator{
		r:      rand.New(rand.NewSource(seed)),
		nextID: 1,
	}
}

func (g *generator) next() *core.OrderEvent {
	if len(g.live) > 0 {
		switch p := g.r.Float64(); {
		case p < 0.15:
			return g.cancel()
		case p < 0.25:
			return g.fill()
		case p < 0.35:
			return g.partialFill()
		case p < 0.40:
			return g.replace()
		}
	}
	return g.insert()
}

func (g *generator) insert() *core.OrderEvent {
	side := core.Bid
	drift := -g.r.Intn(maxDrift)
	if g.r.Float64() < 0.5 {
		side = core.Ask
		drift = g.r.Intn(maxDrift)
	}

	id := g.nextID
	g.nextID++
	price := basePrice + float64(drift)*tick
	qty := int64(g.r.Intn(100) + 1)

	g.live = append(g.live, liveOrder{id: id, side: side, price: price, qty: qty})

	ev, _ := core.NewOrderEvent(id, 0, side, price, qty, 0, core.StatusNew, false)
	return ev
}

func (g *generator) pick() int {
	return g.r.Intn(len(g.live))
}

func (g *generator) remove(i int) liveOrder {
	o := g.live[i]
	g.live[i] = g.live[len(g.live)-1]
	g.live = g.live[:len(g.live)-1]
	return o
}

func (g *generator) cancel() *core.OrderEvent {
	o := g.remove(g.pick())
	ev, _ := core.NewOrderEvent(o.id, 0, o.side, o.price, o.qty, 0, core.StatusCanceled, false)
	return ev
}

func (g *generator) fill() *core.OrderEvent {
	o := g.remove(g.pick())
	ev, _ := core.NewOrderEvent(o.id, 0, o.side, o.price, o.qty, o.qty, core.StatusFilled, false)
	return ev
}

func (g *generator) partialFill() *core.OrderEvent {
	i := g.pick()
	o := g.live[i]
	if o.qty < 2 {
		return g.fill()
	}

	traded := int64(g.r.Intn(int(o.qty-1)) + 1)
	g.live[i].qty = o.qty - traded

	ev, _ := core.NewOrderEvent(o.id, 0, o.side, o.price, o.qty, traded, core.StatusPartiallyFilled, false)
	return ev
}

func (g *generator) replace() *core.OrderEvent {
	i := g.pick()
	o := g.live[i]

	drift := -g.r.Intn(maxDrift)
	if o.side == core.Ask {
		drift = g.r.Intn(maxDrift)
	}
	price := basePrice + float64(drift)*tick

	g.live[i].price = price

	ev, _ := core.NewOrderEvent(o.id, 0, o.side, price, o.qty, 0, core.StatusReplaced, false)
	return ev
}
