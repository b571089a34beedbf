package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitas-games/hexworld/pkg/snapshot"
)

// ErrInboxFull is returned by Submit when the pump is not keeping up.
var ErrInboxFull = errors.New("engine: input inbox is full")

const (
	DefaultTickRate  = 10
	DefaultInboxSize = 1024
)

// PumpConfig tunes a Pump. Zero values take the defaults.
type PumpConfig struct {
	TickRateHz int
	InboxSize  int

	// SnapshotEvery exports a snapshot into Snapshots every N ticks.
	SnapshotEvery uint64
	Snapshots     chan<- snapshot.SnapshotV1

	Logger *log.Logger
}

// Pump is the only writer of an Engine: it collects inputs between ticks,
// applies them in arrival order, walks moving entities and publishes the
// resulting events on its bus.
type Pump struct {
	engine *Engine
	bus    EventBus
	cfg    PumpConfig
	logger *log.Logger

	inbox    chan Input
	stop     chan struct{}
	stopOnce sync.Once
	tick     atomic.Uint64

	now func() time.Time
}

// NewPump wires a pump to an engine and bus.
func NewPump(e *Engine, bus EventBus, cfg PumpConfig) *Pump {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = DefaultTickRate
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if bus == nil {
		bus = NewNullEventBus()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[pump] ", log.LstdFlags)
	}
	return &Pump{
		engine: e,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		inbox:  make(chan Input, cfg.InboxSize),
		stop:   make(chan struct{}),
		now:    time.Now,
	}
}

// Bus returns the bus events are published on.
func (p *Pump) Bus() EventBus { return p.bus }

// Engine returns the engine driven by the pump.
func (p *Pump) Engine() *Engine { return p.engine }

// Tick returns the number of completed ticks.
func (p *Pump) Tick() uint64 { return p.tick.Load() }

// SetTick restarts tick numbering, e.g. after loading a snapshot.
func (p *Pump) SetTick(t uint64) { p.tick.Store(t) }

// Submit queues an input without blocking.
func (p *Pump) Submit(in Input) error {
	select {
	case p.inbox <- in:
		return nil
	default:
		return ErrInboxFull
	}
}

// Run ticks until ctx is done, Stop is called, or a Quit input is applied.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.TickRateHz))
	defer ticker.Stop()

	var pending []Input
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case in := <-p.inbox:
			pending = append(pending, in)
		case <-ticker.C:
			quit := p.step(pending)
			pending = pending[:0]
			if quit {
				p.logger.Printf("quit requested at tick %d", p.Tick())
				return nil
			}
		}
	}
}

// Step drains whatever is queued and runs one tick on the calling
// goroutine. It reports whether a Quit was applied. Do not mix with Run.
func (p *Pump) Step() bool {
	var pending []Input
	for {
		select {
		case in := <-p.inbox:
			pending = append(pending, in)
		default:
			return p.step(pending)
		}
	}
}

// Stop makes Run return.
func (p *Pump) Stop() { p.stopOnce.Do(func() { close(p.stop) }) }

func (p *Pump) step(inputs []Input) bool {
	tick := p.tick.Add(1)
	quit := false

	for _, in := range inputs {
		events, err := p.engine.Apply(in)
		if err != nil {
			p.publish(tick, Event{Type: EventInputRejected, Client: in.ClientID(), Error: err.Error()})
			continue
		}
		for _, ev := range events {
			p.publish(tick, ev)
		}
		if _, ok := in.(Quit); ok {
			quit = true
		}
	}
	for _, ev := range p.engine.Advance() {
		p.publish(tick, ev)
	}
	p.publish(tick, Event{Type: EventTick})

	if p.cfg.SnapshotEvery > 0 && p.cfg.Snapshots != nil && tick%p.cfg.SnapshotEvery == 0 {
		p.offerSnapshot(tick)
	}
	return quit
}

func (p *Pump) publish(tick uint64, ev Event) {
	ev.Tick = tick
	ev.Timestamp = p.now()
	p.bus.Publish(ev)
}

func (p *Pump) offerSnapshot(tick uint64) {
	snap := p.engine.ExportSnapshot(tick)
	select {
	case p.cfg.Snapshots <- snap:
	default:
		p.logger.Printf("snapshot sink full, dropping snapshot at tick %d", tick)
	}
}
