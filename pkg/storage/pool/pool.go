// Package pool implements an adaptive connection pool (C4): a bounded
// set of backend handles, sized between min and max by recent
// utilization, handed out through a FIFO semaphore.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Connection is a pooled handle. Factory implementations embed this or
// wrap a real driver connection; Conn exposes the id pool/cache
// cooperation (C5 eviction) keys off.
type Connection struct {
	ID   uint64
	Conn interface{}
}

// Config controls the pool's sizing behavior.
type Config struct {
	Min                 int
	Max                 int
	ScaleUpThreshold    float64
	ScaleUpIncrement    int
	ScaleUpCooldown     time.Duration
	ScaleDownThreshold  float64
	ScaleDownDecrement  int
	ScaleDownCooldown   time.Duration
}

// DefaultConfig returns the pool's documented defaults.
func DefaultConfig(min, max int) Config {
	return Config{
		Min:                min,
		Max:                max,
		ScaleUpThreshold:   0.8,
		ScaleUpIncrement:   2,
		ScaleUpCooldown:    30 * time.Second,
		ScaleDownThreshold: 0.3,
		ScaleDownDecrement: 1,
		ScaleDownCooldown:  60 * time.Second,
	}
}

// Stats is an immutable snapshot of the pool's current sizing state.
type Stats struct {
	Size      int
	Acquired  int
	Available int
}

// CleanupFunc is invoked with a connection's id when it is released,
// letting C5 evict that connection's cached prepared statements.
type CleanupFunc func(connID uint64)

// Pool is an adaptive bounded pool of connections created by factory.
type Pool struct {
	cfg     Config
	factory func(ctx context.Context) (interface{}, error)
	closer  func(interface{}) error
	log     *logrus.Entry

	mu        sync.Mutex
	sem       chan struct{}
	idle      []*Connection
	acquired  int
	nextID    atomic.Uint64
	closed    bool

	lastScaleUp   time.Time
	lastScaleDown time.Time

	onRelease CleanupFunc
}

// New constructs a Pool pre-populated with cfg.Min connections.
func New(ctx context.Context, cfg Config, factory func(ctx context.Context) (interface{}, error), closer func(interface{}) error, log *logrus.Logger) (*Pool, error) {
	if log == nil {
		log = logrus.New()
	}
	p := &Pool{
		cfg:     cfg,
		factory: factory,
		closer:  closer,
		log:     log.WithField("component", "connection_pool"),
		sem:     make(chan struct{}, cfg.Max),
	}
	for i := 0; i < cfg.Max; i++ {
		p.sem <- struct{}{}
	}
	for i := 0; i < cfg.Min; i++ {
		conn, err := p.newConnection(ctx)
		if err != nil {
			return nil, fmt.Errorf("pre-populate connection pool: %w", err)
		}
		p.idle = append(p.idle, conn)
	}
	return p, nil
}

func (p *Pool) newConnection(ctx context.Context) (*Connection, error) {
	raw, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	return &Connection{ID: p.nextID.Add(1), Conn: raw}, nil
}

// OnRelease registers the callback invoked with a connection's id each
// time it is released back to the pool.
func (p *Pool) OnRelease(f CleanupFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRelease = f
}

// Get acquires a connection, waiting in FIFO order on the semaphore
// channel until one is available or ctx is cancelled.
func (p *Pool) Get(ctx context.Context) (*Connection, error) {
	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem <- struct{}{}
		return nil, fmt.Errorf("connection pool is closed")
	}
	var conn *Connection
	if n := len(p.idle); n > 0 {
		conn = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if conn == nil {
		var err error
		conn, err = p.newConnection(ctx)
		if err != nil {
			p.sem <- struct{}{}
			return nil, err
		}
	}

	p.mu.Lock()
	p.acquired++
	p.mu.Unlock()

	p.maybeScaleUp()
	return conn, nil
}

// Release returns conn to the pool and invokes the registered cleanup
// callback, if any, with its id.
func (p *Pool) Release(conn *Connection) {
	p.mu.Lock()
	p.acquired--
	p.idle = append(p.idle, conn)
	cleanup := p.onRelease
	p.mu.Unlock()

	if cleanup != nil {
		cleanup(conn.ID)
	}
	p.sem <- struct{}{}
	p.maybeScaleDown()
}

func (p *Pool) utilization() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.Max == 0 {
		return 0
	}
	return float64(p.acquired) / float64(p.cfg.Max)
}

func (p *Pool) maybeScaleUp() {
	if p.utilization() < p.cfg.ScaleUpThreshold {
		return
	}
	p.mu.Lock()
	if time.Since(p.lastScaleUp) < p.cfg.ScaleUpCooldown {
		p.mu.Unlock()
		return
	}
	p.lastScaleUp = time.Now()
	increment := p.cfg.ScaleUpIncrement
	p.mu.Unlock()

	for i := 0; i < increment; i++ {
		select {
		case p.sem <- struct{}{}:
		default:
		}
	}
	p.log.WithField("increment", increment).Info("scaled connection pool up")
}

func (p *Pool) maybeScaleDown() {
	if p.utilization() > p.cfg.ScaleDownThreshold {
		return
	}
	p.mu.Lock()
	if time.Since(p.lastScaleDown) < p.cfg.ScaleDownCooldown || len(p.idle) <= p.cfg.Min {
		p.mu.Unlock()
		return
	}
	p.lastScaleDown = time.Now()
	decrement := p.cfg.ScaleDownDecrement
	if decrement > len(p.idle)-p.cfg.Min {
		decrement = len(p.idle) - p.cfg.Min
	}
	var toClose []*Connection
	if decrement > 0 {
		toClose = p.idle[len(p.idle)-decrement:]
		p.idle = p.idle[:len(p.idle)-decrement]
	}
	p.mu.Unlock()

	for _, conn := range toClose {
		if p.closer != nil {
			_ = p.closer(conn.Conn)
		}
		select {
		case <-p.sem:
		default:
		}
	}
	if len(toClose) > 0 {
		p.log.WithField("decrement", len(toClose)).Info("scaled connection pool down")
	}
}

// Stats returns an immutable snapshot of the pool's current sizing.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:      p.acquired + len(p.idle),
		Acquired:  p.acquired,
		Available: len(p.idle),
	}
}

// Close closes every idle connection and marks the pool closed.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var firstErr error
	for _, conn := range idle {
		if p.closer != nil {
			if err := p.closer(conn.Conn); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
