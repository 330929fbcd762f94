package audit

import (
	"context"
	"sync"
	"time"

	"github.com/bplo/backend/internal/domain/audit"
	"github.com/bplo/backend/internal/domain/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultAppendTimeout = 10 * time.Second

// Writer appends immutable audit entries for every mutating action. Appends
// are asynchronous and best-effort: a persistence failure is logged to the
// operational log and swallowed, never propagated to the caller and never
// rolling back the primary mutation. Audit durability trades completeness
// for mutation availability.
type Writer struct {
	store   audit.Store
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithAppendTimeout sets the per-entry persistence timeout.
func WithAppendTimeout(timeout time.Duration) WriterOption {
	return func(w *Writer) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

// NewWriter creates an audit trail writer backed by the given store.
func NewWriter(store audit.Store, log *zap.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		store:   store,
		log:     log.Named("audit"),
		timeout: defaultAppendTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LogAction appends one audit entry for a completed mutation. accountNo may
// be empty; for creates and deletes on business partitions the writer
// attempts to recover it from the payload before giving up and logging the
// entry with a null account number.
func (w *Writer) LogAction(action audit.Action, partition, documentID, userID string, payload any, rc audit.RequestContext, accountNo string) {
	entry := &audit.Entry{
		ID:         uuid.New(),
		Action:     action,
		Partition:  partition,
		DocumentID: documentID,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
		Changes:    payload,
		IPAddress:  rc.IPAddress,
		UserAgent:  rc.UserAgent,
	}

	if accountNo == "" && (action == audit.ActionCreate || action == audit.ActionDelete) {
		accountNo = recoverAccountNo(payload)
	}
	if accountNo != "" {
		entry.AccountNo = &accountNo
	} else {
		w.log.Warn("audit entry has no account number",
			zap.String("action", string(action)),
			zap.String("partition", partition),
			zap.String("document_id", documentID),
		)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.store.Append(ctx, entry); err != nil {
			w.log.Error("failed to append audit entry",
				zap.String("action", string(action)),
				zap.String("partition", partition),
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
	}()
}

// List returns a page of audit entries matching the filter.
func (w *Writer) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	return w.store.List(ctx, filter)
}

// Wait blocks until all queued appends have completed. Used during shutdown
// so in-flight entries are not lost, and by tests.
func (w *Writer) Wait() {
	w.wg.Wait()
}

// recoverAccountNo digs an account number out of a record or diff payload.
func recoverAccountNo(payload any) string {
	switch p := payload.(type) {
	case registry.Document:
		return p.AccountNo()
	case map[string]any:
		if s, ok := p[registry.FieldAccountNo].(string); ok {
			return s
		}
	case registry.Changes:
		if change, ok := p[registry.FieldAccountNo]; ok {
			if s, ok := change.After.(string); ok && s != "" {
				return s
			}
			if s, ok := change.Before.(string); ok {
				return s
			}
		}
	}
	return ""
}
