package door

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"dooropener/queue"
	"dooropener/state"
)

// Connector builds the actuator. It is retried until it succeeds.
type Connector func() (DoorOpener, error)

// Controller serializes open commands onto a single actuator that is
// initialized in the background.
type Controller struct {
	connect Connector
	status  chan<- state.AuthState
	cmds    *queue.Unbounded[struct{}]

	attempts  int
	delay     time.Duration
	hold      time.Duration
	initRetry time.Duration

	ready atomic.Bool
}

// NewController creates a controller. HardwareNotReady is sent on status
// for commands that arrive before connect has succeeded.
func NewController(connect Connector, status chan<- state.AuthState, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		connect:   connect,
		status:    status,
		cmds:      queue.NewUnbounded[struct{}](),
		attempts:  cfg.Attempts,
		delay:     time.Duration(cfg.RetryDelayMS) * time.Millisecond,
		hold:      cfg.hold(),
		initRetry: time.Duration(cfg.InitRetrySecs) * time.Second,
	}
}

// Open queues one open command and returns immediately.
func (c *Controller) Open() {
	c.cmds.Push(struct{}{})
}

// Ready reports whether the actuator has been initialized.
func (c *Controller) Ready() bool {
	return c.ready.Load()
}

// Run processes open commands in order until ctx is done, then releases
// the actuator.
func (c *Controller) Run(ctx context.Context) {
	readyCh := make(chan DoorOpener)
	go c.initialize(ctx, readyCh)

	var door DoorOpener
	defer func() {
		if door != nil {
			if err := door.Release(); err != nil {
				log.Printf("Door release error: %v", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-readyCh:
			door = d
			readyCh = nil
			c.ready.Store(true)
			log.Printf("Door actuator ready")
		case _, ok := <-c.cmds.Out():
			if !ok {
				return
			}
			if door == nil {
				log.Printf("Door open requested before actuator ready")
				c.report(ctx, state.HardwareNotReady)
				continue
			}
			c.actuate(ctx, door)
		}
	}
}

func (c *Controller) initialize(ctx context.Context, readyCh chan<- DoorOpener) {
	for {
		d, err := c.connect()
		if err == nil {
			select {
			case readyCh <- d:
			case <-ctx.Done():
				d.Release()
			}
			return
		}

		log.Printf("Door init failed, retrying in %v: %v", c.initRetry, err)
		select {
		case <-time.After(c.initRetry):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) actuate(ctx context.Context, door DoorOpener) {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := c.cycle(ctx, door); err != nil {
			log.Printf("Door open attempt %d/%d failed: %v", attempt, c.attempts, err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.delay)),
		backoff.WithMaxTries(uint(c.attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		log.Printf("Door open abandoned after %d attempts: %v", attempt, err)
	}
}

// cycle opens, holds and closes the actuator once.
func (c *Controller) cycle(ctx context.Context, door DoorOpener) error {
	if err := door.Open(); err != nil {
		return err
	}

	if c.hold > 0 {
		select {
		case <-time.After(c.hold):
		case <-ctx.Done():
		}
	}

	return door.Close()
}

func (c *Controller) report(ctx context.Context, s state.AuthState) {
	if c.status == nil {
		return
	}
	select {
	case c.status <- s:
	case <-ctx.Done():
	}
}
