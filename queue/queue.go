// Package queue provides an unbounded, order-preserving channel.
package queue

// Unbounded buffers values between any number of senders and a receiver
// without ever blocking a sender on a slow receiver.
type Unbounded[T any] struct {
	in  chan T
	out chan T
}

// NewUnbounded starts the buffering goroutine. It exits after Close once
// every buffered value has been received.
func NewUnbounded[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go q.run()
	return q
}

// In returns the send side of the queue.
func (q *Unbounded[T]) In() chan<- T {
	return q.in
}

// Out returns the receive side of the queue. It is closed after Close
// once the buffer is drained.
func (q *Unbounded[T]) Out() <-chan T {
	return q.out
}

// Push enqueues v. Must not be called after Close.
func (q *Unbounded[T]) Push(v T) {
	q.in <- v
}

// Close stops accepting values.
func (q *Unbounded[T]) Close() {
	close(q.in)
}

func (q *Unbounded[T]) run() {
	var buf []T
	var zero T
	in := q.in

	for in != nil || len(buf) > 0 {
		if len(buf) == 0 {
			v, ok := <-in
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, v)
			continue
		}

		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, v)
		case q.out <- buf[0]:
			buf[0] = zero
			buf = buf[1:]
		}
	}
	close(q.out)
}
