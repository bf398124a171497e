package admin

import (
	"context"
	"sync"
	"time"

	"github.com/bingwamta/databot/internal/chat"
)

// concurrencyMeter records the peak number of concurrent sends.
type concurrencyMeter struct {
	mu      sync.Mutex
	current int
	max     int
	delay   time.Duration
}

func (p *concurrencyMeter) Send(context.Context, int64, chat.Message) (chat.Handle, error) {
	p.mu.Lock()
	p.current++
	if p.current > p.max {
		p.max = p.current
	}
	p.mu.Unlock()

	time.Sleep(p.delay)

	p.mu.Lock()
	p.current--
	p.mu.Unlock()
	return chat.Handle{MessageID: "1"}, nil
}

func (p *concurrencyMeter) Edit(context.Context, chat.Handle, chat.Message) error { return nil }
func (p *concurrencyMeter) Delete(context.Context, chat.Handle) error { return nil }

func (p *concurrencyMeter) peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}
