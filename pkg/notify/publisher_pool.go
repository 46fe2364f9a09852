package notify

import (
	"context"
	"fmt"
	"sync"
)

var (
	publisherPool chan Publisher
	poolInitOnce  sync.Once
	maxPoolSize   = 16
)

// initPublisherPool pre-populates the pool so publishing never pays
// connection setup on the hot path.
func initPublisherPool() {
	poolInitOnce.Do(func() {
		publisherPool = make(chan Publisher, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			pub, err := NewKafkaPublisher()
			if err != nil {
				fmt.Printf("Error creating publisher: %v\n", err)
				continue
			}
			publisherPool <- pub
		}
	})
}

// GetPublisher gets a publisher from the pool
func GetPublisher() Publisher {
	initPublisherPool()

	select {
	case pub := <-publisherPool:
		return pub
	default:
		return nil
	}
}

// ReturnPublisher returns a publisher to the pool
func ReturnPublisher(pub Publisher) {
	if pub == nil {
		return
	}

	select {
	case publisherPool <- pub:
	default:
		_ = pub.Close()
	}
}

// Publish sends a book update using a pooled publisher. A send failure
// retires the publisher instead of returning it to the pool.
func Publish(ctx context.Context, u *BookUpdate) error {
	pub := GetPublisher()
	if pub == nil {
		return fmt.Errorf("failed to get publisher from pool")
	}

	if err := pub.PublishBookUpdate(ctx, u); err != nil {
		_ = pub.Close()
		return err
	}

	ReturnPublisher(pub)
	return nil
}
