package oplog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/reshapedb/reshape/pkg/types"
)

// Log is the fire-and-forget wrapper around a Sink. Records are handed to a
// bounded queue consumed by a single writer goroutine; a full queue drops the
// record, and sink errors are logged and deliberately discarded. Nothing that
// happens here can abort, block, or roll back the operation being described.
type Log struct {
	sink   Sink
	logger *zap.Logger

	queue   chan *types.OperationRecord
	pending sync.WaitGroup
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// DefaultQueueSize bounds the record queue when the caller passes zero.
const DefaultQueueSize = 256

// NewLog starts the writer goroutine over the given sink.
func NewLog(sink Sink, logger *zap.Logger, queueSize int) *Log {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Log{
		sink:   sink,
		logger: logger,
		queue:  make(chan *types.OperationRecord, queueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Record enqueues a record. It never blocks and never returns an error: a
// full queue drops the record with a warning, which is the documented
// trade-off for keeping the main operation unaffected.
func (l *Log) Record(rec *types.OperationRecord) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending.Add(1)
	l.mu.Unlock()

	select {
	case l.queue <- rec:
	default:
		l.pending.Done()
		l.logger.Warn("operation log queue full, dropping record",
			zap.String("operation_id", rec.OperationID),
			zap.String("phase", rec.Phase))
	}
}

func (l *Log) run() {
	defer close(l.done)
	for rec := range l.queue {
		// The sink write runs outside any caller transaction. Errors are
		// discarded here by contract.
		if err := l.sink.Append(context.Background(), rec); err != nil {
			l.logger.Warn("operation log append failed",
				zap.String("operation_id", rec.OperationID),
				zap.String("phase", rec.Phase),
				zap.Error(err))
		}
		l.pending.Done()
	}
}

// Flush blocks until every record enqueued so far has been handed to the
// sink. Intended for tests and shutdown paths.
func (l *Log) Flush() {
	l.pending.Wait()
}

// Close drains the queue and stops the writer. The sink itself stays open;
// its owner closes it.
func (l *Log) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.pending.Wait()
	close(l.queue)
	<-l.done
}
