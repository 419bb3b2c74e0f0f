// Package writer implements the async writer: the single owner of the
// active log file, consuming events off a bounded queue so producers never
// block on disk I/O directly.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/schema"
	"contrail/internal/tracing"
)

// QueueCapacity is the bounded in-process queue depth decoupling producers
// from disk I/O.
const QueueCapacity = 1024

// ErrClosed is returned by Write once the writer has been stopped.
var ErrClosed = errors.New("writer: closed")

// Writer is the single owner of the active log file for the process lifetime.
type Writer struct {
	logPath   string
	maxBytes  int64
	keepFiles int
	compress  bool
	logger    *logrus.Logger

	queue  chan *schema.Event
	errCh  chan error
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	file        *os.File
	currentSize int64
}

// New constructs a Writer without opening the file yet; call Start to begin
// consuming.
func New(logPath string, maxBytes int64, keepFiles int, compress bool, logger *logrus.Logger) *Writer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Writer{
		logPath:   logPath,
		maxBytes:  maxBytes,
		keepFiles: keepFiles,
		compress:  compress,
		logger:    logger,
		queue:     make(chan *schema.Event, QueueCapacity),
		errCh:     make(chan error, 16),
		closed:    make(chan struct{}),
	}
}

// Errors exposes the consumer's error channel for the supervising task to
// observe fatal I/O failures; the process exits on an unrecoverable write
// error rather than silently dropping events.
func (w *Writer) Errors() <-chan error { return w.errCh }

// Start opens the active log (creating its directory and file as needed)
// and launches the single consumer goroutine.
func (w *Writer) Start() error {
	if err := os.MkdirAll(filepath.Dir(w.logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(w.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening active log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("statting active log: %w", err)
	}
	w.file = f
	w.currentSize = info.Size()

	w.wg.Add(1)
	go w.consume()
	return nil
}

// Write validates and enqueues an event. A full queue blocks the caller
// (backpressure, never a drop) until space frees or ctx is canceled.
func (w *Writer) Write(ctx context.Context, event *schema.Event) error {
	if err := schema.Validate(event); err != nil {
		metrics.ValidationErrorsTotal.WithLabelValues("writer").Inc()
		return fmt.Errorf("schema validation failed: %w", err)
	}
	select {
	case <-w.closed:
		return ErrClosed
	default:
	}
	select {
	case w.queue <- event:
		metrics.WriterQueueDepth.Set(float64(len(w.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.closed:
		return ErrClosed
	}
}

// Stop closes the queue and waits for the consumer to drain it, ensuring a
// clean shutdown loses no queued events.
func (w *Writer) Stop() {
	w.once.Do(func() {
		close(w.closed)
		close(w.queue)
	})
	w.wg.Wait()
	if w.file != nil {
		w.file.Close()
	}
}

func (w *Writer) consume() {
	defer w.wg.Done()
	for event := range w.queue {
		metrics.WriterQueueDepth.Set(float64(len(w.queue)))
		_, span := tracing.Start(context.Background(), "writer.append")
		if err := w.appendOne(event); err != nil {
			w.logger.WithError(err).WithField("source", event.SourceTool).Error("failed to append event")
			select {
			case w.errCh <- err:
			default:
			}
		} else {
			metrics.EventsWrittenTotal.WithLabelValues(event.SourceTool).Inc()
		}
		span.End()
	}
}

// appendOne applies the rotation policy, serializes event as one JSONL
// line, and appends it. Rotation failure is non-fatal: the writer keeps
// appending to the oversize log.
func (w *Writer) appendOne(event *schema.Event) error {
	if w.maxBytes > 0 && w.currentSize > w.maxBytes {
		if err := w.doRotate(); err != nil {
			w.logger.WithError(err).Warn("rotation failed, continuing to append to oversize log")
		}
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	line = append(line, '\n')

	n, err := w.file.Write(line)
	if err != nil {
		return fmt.Errorf("appending to active log: %w", err)
	}
	w.currentSize += int64(n)
	return nil
}

func (w *Writer) doRotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	before, _ := DiscoverArchives(w.logPath)
	newFile, err := rotate(w.logPath, w.keepFiles, w.compress)
	if err != nil {
		// Best effort: reopen the original path in append mode so the
		// writer can keep going even if rotation itself failed partway.
		f, reopenErr := os.OpenFile(w.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if reopenErr == nil {
			w.file = f
		}
		return err
	}
	w.file = newFile
	w.currentSize = 0
	metrics.RotationsTotal.Inc()
	after, _ := DiscoverArchives(w.logPath)
	if len(before)+1 > len(after) {
		metrics.ArchivesPrunedTotal.Add(float64(len(before) + 1 - len(after)))
	}
	return nil
}
