package streamio

import (
	"net"
	"sync"
	"time"

	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/pkg/bufpool"
)

// EnqueueResult is the outcome of Writer.Enqueue.
type EnqueueResult int

const (
	// EnqueueOK means the whole message was written synchronously.
	EnqueueOK EnqueueResult = iota
	// EnqueueQueued means the message was accepted into the in-flight queue.
	EnqueueQueued
	// EnqueueDropped means the queue was full and the message was rejected.
	EnqueueDropped
)

// DefaultMaxQueuedBytes bounds the sum of queued outbound bytes per
// connection, per the §4.4/§3 back-pressure invariant.
const DefaultMaxQueuedBytes = 4 * 1024 * 1024

// DefaultWriteTimeout bounds a single underlying conn.Write call so a
// wedged peer cannot pin the writer goroutine forever.
const DefaultWriteTimeout = 30 * time.Second

// Writer accepts outbound SOME/IP messages and writes them to a stream
// socket in FIFO order, with a bounded in-flight queue standing in for the
// reactor's "write-interest enabled while queue non-empty" signal: Go's
// net.Conn.Write already loops internally until a full write or a hard
// error, so the byte-cursor resumption of §4.4 is realized here as a
// dedicated writer goroutine draining a channel rather than a per-call
// EWOULDBLOCK retry.
type Writer struct {
	conn         net.Conn
	writeTimeout time.Duration
	maxQueued    int

	mu           sync.Mutex
	queuedBytes  int
	queue        chan []byte
	closed       bool
	onWriteError func(error)

	wg sync.WaitGroup
}

// NewWriter constructs a Writer over conn and starts its drain goroutine.
// onWriteError is invoked (from the drain goroutine) on the first write
// error; the connection owner is expected to disconnect in response.
func NewWriter(conn net.Conn, maxQueuedBytes int, writeTimeout time.Duration, onWriteError func(error)) *Writer {
	if maxQueuedBytes <= 0 {
		maxQueuedBytes = DefaultMaxQueuedBytes
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	w := &Writer{
		conn:         conn,
		writeTimeout: writeTimeout,
		maxQueued:    maxQueuedBytes,
		queue:        make(chan []byte, 256),
		onWriteError: onWriteError,
	}
	w.wg.Add(1)
	go w.drain()
	return w
}

// Enqueue submits a fully-serialized message (header + optional TP header +
// payload) for transmission. It never blocks: a full queue yields
// EnqueueDropped immediately.
func (w *Writer) Enqueue(message []byte) EnqueueResult {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return EnqueueDropped
	}
	if w.queuedBytes+len(message) > w.maxQueued {
		w.mu.Unlock()
		return EnqueueDropped
	}
	w.queuedBytes += len(message)
	w.mu.Unlock()

	select {
	case w.queue <- message:
		return EnqueueQueued
	default:
		w.mu.Lock()
		w.queuedBytes -= len(message)
		w.mu.Unlock()
		return EnqueueDropped
	}
}

// drain is the dedicated writer goroutine: it pulls messages off the queue
// in order and writes them to the socket, stopping permanently on the
// first error (per §4.4's error policy — the connection is responsible for
// disconnecting and dropping whatever remains queued).
func (w *Writer) drain() {
	defer w.wg.Done()
	for msg := range w.queue {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			w.mu.Lock()
			w.queuedBytes -= len(msg)
			w.mu.Unlock()
			continue
		}

		if w.writeTimeout > 0 {
			if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
				w.mu.Lock()
				w.queuedBytes -= len(msg)
				w.mu.Unlock()
				w.fail(err)
				continue
			}
		}

		_, err := w.conn.Write(msg)

		w.mu.Lock()
		w.queuedBytes -= len(msg)
		w.mu.Unlock()

		if err != nil {
			w.fail(err)
			continue
		}

		bufpool.Put(msg)
	}
}

// fail marks the writer closed and reports the error once; subsequent
// queued messages are drained and dropped silently.
func (w *Writer) fail(err error) {
	w.mu.Lock()
	already := w.closed
	w.closed = true
	w.mu.Unlock()
	if already {
		return
	}
	logger.Debug("stream writer error", logger.Err(err))
	if w.onWriteError != nil {
		w.onWriteError(err)
	}
}

// Close stops accepting new messages and waits for the drain goroutine to
// exit. Any messages still queued are dropped.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.queue)
	w.wg.Wait()
}

// QueuedBytes returns the current sum of queued-but-unwritten bytes, for
// back-pressure signalling upstream.
func (w *Writer) QueuedBytes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queuedBytes
}
