package reader

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"dooropener/queue"
)

// Pipe simulates a reader from lines written to a named pipe:
//
//	tag <uid> <hex>   - present a tag whose NDEF area holds <hex>
//	tag <uid>         - present a tag that cannot be read
//
// Lines starting with # are ignored.
type Pipe struct {
	path   string
	geo    Geometry
	tags   *queue.Unbounded[pipeTag]
	ctx    context.Context
	cancel context.CancelFunc
}

type pipeTag struct {
	uid    string
	memory []byte
}

// NewPipe creates the named pipe, replacing any existing file, and starts
// listening on it.
func NewPipe(cfg Config) (*Pipe, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pipe reader needs a path")
	}

	os.Remove(cfg.Path)
	if err := syscall.Mkfifo(cfg.Path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipe{
		path:   cfg.Path,
		geo:    cfg.geometry(),
		tags:   queue.NewUnbounded[pipeTag](),
		ctx:    ctx,
		cancel: cancel,
	}
	go p.listen()
	return p, nil
}

func (p *Pipe) listen() {
	log.Printf("Tag pipe listening on %s", p.path)

	for {
		// Blocks until a writer connects.
		file, err := os.OpenFile(p.path, os.O_RDONLY, 0)
		if p.ctx.Err() != nil {
			if err == nil {
				file.Close()
			}
			return
		}
		if err != nil {
			log.Printf("Tag pipe open error: %v", err)
			return
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			tag, err := parseLine(line)
			if err != nil {
				log.Printf("Tag pipe parse error: %v", err)
				continue
			}
			p.tags.Push(tag)
		}
		file.Close()
	}
}

func (p *Pipe) Poll(ctx context.Context) (*Tag, error) {
	select {
	case t := <-p.tags.Out():
		return &Tag{UID: t.uid, handle: t}, nil
	default:
		return nil, nil
	}
}

// ReadBlock serves page reads from the memory given on the pipe. Reads
// past the end return zeroes as a blank tag would.
func (p *Pipe) ReadBlock(ctx context.Context, tag *Tag) ([]byte, error) {
	t, ok := tag.handle.(pipeTag)
	if !ok || t.memory == nil {
		return nil, ErrUnsupportedTag
	}

	return CollectBlock(ctx, p.geo, func(page byte) ([]byte, error) {
		data := make([]byte, PageRead)
		off := (int(page) - p.geo.Start) * 4
		if off < len(t.memory) {
			copy(data, t.memory[off:])
		}
		return data, nil
	})
}

// Close stops the listener and removes the pipe.
func (p *Pipe) Close() error {
	p.cancel()
	// Wake a listener blocked in open.
	if f, err := os.OpenFile(p.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		f.Close()
	}
	return os.Remove(p.path)
}

func parseLine(line string) (pipeTag, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return pipeTag{}, fmt.Errorf("empty command")
	}

	switch strings.ToLower(parts[0]) {
	case "tag":
		if len(parts) < 2 || len(parts) > 3 {
			return pipeTag{}, fmt.Errorf("tag requires <uid> [hex]")
		}
		t := pipeTag{uid: strings.ToUpper(parts[1])}
		if len(parts) == 3 {
			mem, err := hex.DecodeString(parts[2])
			if err != nil {
				return pipeTag{}, fmt.Errorf("invalid tag memory: %w", err)
			}
			t.memory = mem
		}
		return t, nil
	default:
		return pipeTag{}, fmt.Errorf("unknown command: %s", parts[0])
	}
}
