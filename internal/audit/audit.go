// Package audit records write operations against the WorkBoard API.
//
// Every successful write emits one Record. Records always go to the
// structured log; when an audit database is configured they are also
// appended to a local sqlite trail. Detected progress decreases are logged
// at elevated severity so they stand out in review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome classifies a recorded write.
type Outcome string

const (
	// OutcomeNormal is a plain create or update.
	OutcomeNormal Outcome = "normal"

	// OutcomeDecrease marks a key result update that lowered the
	// progress value below its previously read remote value.
	OutcomeDecrease Outcome = "decrease"
)

// Record describes one write operation. PreviousValue is empty when the
// best-effort pre-read did not produce a usable value.
type Record struct {
	ID            string
	Operation     string
	TargetID      int64
	PreviousValue string
	NewValue      string
	Outcome       Outcome
	At            time.Time
}

// NewRecord builds a Record with a fresh correlation ID and timestamp.
func NewRecord(operation string, targetID int64, previous, next string, outcome Outcome) Record {
	return Record{
		ID:            uuid.NewString(),
		Operation:     operation,
		TargetID:      targetID,
		PreviousValue: previous,
		NewValue:      next,
		Outcome:       outcome,
		At:            time.Now().UTC(),
	}
}

// Logger emits audit records. The sqlite store is optional; the zap sink
// always runs.
type Logger struct {
	log   *zap.Logger
	store *Store
}

// NewLogger builds an audit logger. store may be nil to disable the sqlite
// trail.
func NewLogger(log *zap.Logger, store *Store) *Logger {
	return &Logger{log: log, store: store}
}

// Emit records one write. Sink failures are logged but never propagate:
// the remote write already happened and the caller's result must not
// depend on local bookkeeping.
func (l *Logger) Emit(ctx context.Context, rec Record) {
	fields := []zap.Field{
		zap.String("audit_id", rec.ID),
		zap.String("operation", rec.Operation),
		zap.Int64("target_id", rec.TargetID),
		zap.String("previous_value", rec.PreviousValue),
		zap.String("new_value", rec.NewValue),
		zap.String("outcome", string(rec.Outcome)),
	}
	if rec.Outcome == OutcomeDecrease {
		l.log.Warn("key result value decreased", fields...)
	} else {
		l.log.Info("write recorded", fields...)
	}

	if l.store == nil {
		return
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		l.log.Error("audit trail insert failed",
			zap.String("audit_id", rec.ID), zap.Error(err))
	}
}
