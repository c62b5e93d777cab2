// Package auth runs the passport authentication loop: poll for a tag, read
// and decode it, validate the credential, report and open the door.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"dooropener/audit"
	"dooropener/credential"
	"dooropener/ndef"
	"dooropener/reader"
	"dooropener/state"
	"dooropener/validator"
)

// Validator decides whether a credential may open the door.
type Validator interface {
	Validate(ctx context.Context, cred credential.Credential) (validator.Outcome, error)
}

// Opener accepts one open command without blocking.
type Opener interface {
	Open()
}

// Recorder stores the result of each cycle.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Config holds loop timing and the passport layout.
type Config struct {
	PollRestMS    int               `yaml:"poll_rest_ms"`    // pause between empty polls, default 300
	PendingHoldMS int               `yaml:"pending_hold_ms"` // minimum Pending display, default 2500, negative disables
	SettleMS      int               `yaml:"settle_ms"`       // terminal state display, default 5000
	Layout        credential.Layout `yaml:"-"`               // copied from the top-level credential section
}

func (c *Config) applyDefaults() {
	if c.PollRestMS <= 0 {
		c.PollRestMS = 300
	}
	if c.PendingHoldMS == 0 {
		c.PendingHoldMS = 2500
	}
	if c.SettleMS <= 0 {
		c.SettleMS = 5000
	}
	if c.Layout == (credential.Layout{}) {
		c.Layout = credential.DefaultLayout
	}
}

// Coordinator owns the tag source. Only one cycle runs at a time and no
// polling happens until the cycle has returned to Idle.
type Coordinator struct {
	src    reader.TagSource
	val    Validator
	door   Opener
	status chan<- state.AuthState

	// Recorder is optional.
	Recorder Recorder

	rest        time.Duration
	pendingHold time.Duration
	settle      time.Duration
	layout      credential.Layout
}

// New creates a Coordinator that reports on status.
func New(cfg Config, src reader.TagSource, val Validator, door Opener, status chan<- state.AuthState) *Coordinator {
	cfg.applyDefaults()
	c := &Coordinator{
		src:    src,
		val:    val,
		door:   door,
		status: status,
		rest:   time.Duration(cfg.PollRestMS) * time.Millisecond,
		settle: time.Duration(cfg.SettleMS) * time.Millisecond,
		layout: cfg.Layout,
	}
	if cfg.PendingHoldMS > 0 {
		c.pendingHold = time.Duration(cfg.PendingHoldMS) * time.Millisecond
	}
	return c
}

// Run polls until ctx is done. It always leaves the stream in Idle.
func (c *Coordinator) Run(ctx context.Context) {
	c.emit(state.Idle)

	var lastPollErr string
	for ctx.Err() == nil {
		tag, err := c.src.Poll(ctx)
		if err != nil {
			if err.Error() != lastPollErr {
				log.Printf("NFC poll error: %v", err)
				lastPollErr = err.Error()
			}
		} else {
			lastPollErr = ""
		}

		if tag != nil {
			c.cycle(ctx, tag)
			continue
		}
		sleep(ctx, c.rest)
	}
}

// cycle takes one presented tag from Pending through a terminal state back
// to Idle.
func (c *Coordinator) cycle(ctx context.Context, tag *reader.Tag) {
	entry := audit.Entry{CycleID: uuid.NewString(), TagUID: tag.UID}
	log.Printf("Tag %s presented (cycle %s)", tag.UID, entry.CycleID)

	c.emit(state.Pending)
	pendingAt := time.Now()

	result, detail := c.authenticate(ctx, tag, &entry)
	entry.Outcome = result
	entry.Detail = detail

	if c.pendingHold > 0 {
		sleep(ctx, c.pendingHold-time.Since(pendingAt))
	}

	c.emit(result)
	if result == state.Valid {
		c.door.Open()
	}
	c.record(entry)

	sleep(ctx, c.settle)
	c.emit(state.Idle)
}

func (c *Coordinator) authenticate(ctx context.Context, tag *reader.Tag, entry *audit.Entry) (state.AuthState, string) {
	block, err := c.src.ReadBlock(ctx, tag)
	if err != nil {
		log.Printf("Tag %s read failed: %v", tag.UID, err)
		return state.NFCError, err.Error()
	}

	msg, err := ndef.Decode(block)
	if err != nil {
		log.Printf("Tag %s decode failed: %v", tag.UID, err)
		return state.NFCError, err.Error()
	}

	cred, err := credential.Extract(msg, c.layout)
	if err != nil {
		log.Printf("Tag %s has no passport: %v", tag.UID, err)
		return state.NFCError, err.Error()
	}
	entry.PassportID = &cred.ID

	outcome, err := c.val.Validate(ctx, cred)
	switch outcome {
	case validator.Valid:
		log.Printf("Access granted to %s", cred)
		return state.Valid, ""
	case validator.Invalid:
		log.Printf("Access denied to %s", cred)
		return state.Invalid, "rejected"
	default:
		if err == nil {
			err = errors.New("authority unreachable")
		}
		log.Printf("Could not validate %s: %v", cred, err)
		return state.NetError, err.Error()
	}
}

func (c *Coordinator) record(e audit.Entry) {
	if c.Recorder == nil {
		return
	}
	// Recorded even during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Recorder.Record(ctx, e); err != nil {
		log.Printf("Audit record failed: %v", err)
	}
}

func (c *Coordinator) emit(s state.AuthState) {
	c.status <- s
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
