package enforcement

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

const (
	DefaultKickInterval = time.Second * 5
	DefaultMaxAttempts  = 20
	// DefaultBanSeconds is the length of each reasserted ban. It only has to
	// outlive the reconnect attempt it blocks.
	DefaultBanSeconds = 1
)

// Banner issues one timed ban against a player GUID on the game server.
type Banner interface {
	Ban(ctx context.Context, guid string, seconds int, reason string) error
}

// Announcer publishes the log reason of a kick directive that asked for it.
type Announcer interface {
	Announce(ctx context.Context, directive *protocol.KickDirective)
}

type Option func(*Coordinator)

func WithLogger(logger pkg.Logger) Option {
	return func(c *Coordinator) {
		c.logger = pkg.Component(logger, "enforcement")
	}
}

func WithKickInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		c.interval = interval
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(c *Coordinator) {
		c.maxAttempts = attempts
	}
}

func WithBanSeconds(seconds int) Option {
	return func(c *Coordinator) {
		c.banSeconds = seconds
	}
}

func WithAnnouncer(announcer Announcer) Option {
	return func(c *Coordinator) {
		c.announcer = announcer
	}
}

// entry is the record of one kick-retry cycle. Removing it from the map and
// closing done is how the owning task is told to stop.
type entry struct {
	target   string
	attempts atomic.Int32
	done     chan struct{}
	once     sync.Once
}

func newEntry(target string) *entry {
	return &entry{target: target, done: make(chan struct{})}
}

func (e *entry) cancel() {
	e.once.Do(func() { close(e.done) })
}

func (e *entry) cancelled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Coordinator tracks the players under enforcement and runs one retry task per player.
type Coordinator struct {
	banner    Banner
	announcer Announcer

	entries cmap.ConcurrentMap[string, *entry]
	tasks   errgroup.Group

	interval    time.Duration
	maxAttempts int
	banSeconds  int
	after       func(time.Duration) <-chan time.Time

	// startMu makes the stop check and tasks.Go atomic against Shutdown.
	startMu  sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once

	logger pkg.Logger
}

func NewCoordinator(banner Banner, opts ...Option) *Coordinator {
	c := &Coordinator{
		banner:      banner,
		entries:     cmap.New[*entry](),
		interval:    DefaultKickInterval,
		maxAttempts: DefaultMaxAttempts,
		banSeconds:  DefaultBanSeconds,
		after:       time.After,
		stop:        make(chan struct{}),
		logger:      pkg.Component(pkg.DefaultLogger, "enforcement"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c
}

// OnKickDirective supersedes any running cycle for the target and starts a new one.
func (c *Coordinator) OnKickDirective(ctx context.Context, d *protocol.KickDirective) {
	if c.remove(d.Name) {
		c.logger.Debugf("restarting enforcement of '%s'", d.Name)
	}
	if d.Log && c.announcer != nil {
		c.announcer.Announce(ctx, d)
	}
	c.Start(ctx, d.Name, d.GUID, d.KickReason)
}

// Start begins a retry cycle for target. It reports false and does nothing
// if the target is already under enforcement.
func (c *Coordinator) Start(ctx context.Context, target, guid, reason string) bool {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	select {
	case <-c.stop:
		c.logger.Warnf("coordinator stopped, not enforcing '%s'", target)
		return false
	default:
	}

	e := newEntry(target)
	if !c.entries.SetIfAbsent(target, e) {
		c.logger.Debugf("'%s' is already under enforcement", target)
		return false
	}

	ctx = pkg.ShieldCancel(ctx)
	c.tasks.Go(func() error {
		defer pkg.Recover()

		c.run(ctx, e, guid, reason)
		return nil
	})
	return true
}

// OnTargetLeft stops the cycle of a player who disconnected.
func (c *Coordinator) OnTargetLeft(target string) {
	if c.remove(target) {
		c.logger.Debugf("'%s' left, stopping enforcement", target)
	}
}

// Clear stops every running cycle.
func (c *Coordinator) Clear() {
	for _, target := range c.entries.Keys() {
		c.remove(target)
	}
}

// Attempts returns how many bans were issued in the target's current cycle.
func (c *Coordinator) Attempts(target string) (int, bool) {
	e, ok := c.entries.Get(target)
	if !ok {
		return 0, false
	}
	return int(e.attempts.Load()), true
}

func (c *Coordinator) Enforcing(target string) bool {
	return c.entries.Has(target)
}

func (c *Coordinator) Active() int {
	return c.entries.Count()
}

// Shutdown stops every cycle and waits for the tasks to return.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.startMu.Lock()
	c.stopOnce.Do(func() { close(c.stop) })
	c.startMu.Unlock()
	c.Clear()

	done := make(chan error, 1)
	go func() {
		defer pkg.Recover()

		done <- c.tasks.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) remove(target string) bool {
	e, ok := c.entries.Pop(target)
	if !ok {
		return false
	}
	e.cancel()
	return true
}
