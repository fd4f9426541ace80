package cashback

import (
	"context"
	"sync"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/session"
)

// DefaultPollInterval is the balance refresh cadence while connected on
// the target chain.
const DefaultPollInterval = 10 * time.Second

// Poller drives periodic refreshes bound to session state: the interval
// starts the moment the session lands on the target chain and stops the
// moment it leaves, so no timer outlives the state that started it.
type Poller struct {
	svc      *Service
	machine  *session.Machine
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. A non-positive interval uses the default.
func NewPoller(machine *session.Machine, svc *Service, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{svc: svc, machine: machine, interval: interval}
}

// Start begins watching session transitions. Calling Start on a running
// poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the poller and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	states, unwatch := p.machine.Watch()
	defer unwatch()

	var ticker *time.Ticker
	var ticks <-chan time.Time

	start := func() {
		if ticker != nil {
			return
		}
		p.refresh(ctx)
		ticker = time.NewTicker(p.interval)
		ticks = ticker.C
	}
	stop := func() {
		if ticker == nil {
			return
		}
		ticker.Stop()
		ticker = nil
		ticks = nil
	}
	defer stop()

	if p.machine.OnChain() {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-states:
			if !ok {
				return
			}
			if snap.State == session.StateOnChain {
				start()
			} else {
				stop()
				if !snap.State.Connected() {
					p.svc.Invalidate()
				}
			}

		case <-ticks:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	_ = p.svc.Refresh(refreshCtx) // failures are recorded on the service
}
