package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "weekrent/internal/app/outbox"
	infraoutbox "weekrent/internal/infra/outbox"
)

// Outbox keeps event records until the relay publishes them. Records added inside a
// unit become visible only when the unit commits.
type Outbox struct {
	store *Store

	mu      sync.Mutex
	records []*infraoutbox.EventDocument
	wake    chan struct{}
}

func newOutbox(store *Store) *Outbox {
	return &Outbox{store: store, wake: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := ctx.Value(unitKey{}).(*Unit); ok && unit.store == o.store {
		return unit.stage(record)
	}
	o.append(record)
	return nil
}

// Flush nudges the relay; it never blocks.
func (o *Outbox) Flush(ctx context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wake fires after Flush so the relay can skip its poll interval.
func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range records {
		o.records = append(o.records, &infraoutbox.EventDocument{
			ID:          rec.ID,
			Name:        rec.Name,
			Payload:     append([]byte(nil), rec.Payload...),
			OccurredAt:  rec.OccurredAt,
			Aggregate:   rec.Aggregate,
			Headers:     copyHeaders(rec.Headers),
			State:       infraoutbox.StateNew,
			NextAttempt: now,
		})
	}
}

// Claim hands the oldest due record to workerID, or nil when nothing is due.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.State != infraoutbox.StateNew && doc.State != infraoutbox.StateFailed {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = infraoutbox.StateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		out := *doc
		out.Headers = copyHeaders(doc.Headers)
		return &out, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, doc := range o.records {
		if doc.ID == id {
			o.records = append(o.records[:i], o.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.ID == id {
			doc.State = infraoutbox.StateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

// Pending returns a snapshot of unsent records.
func (o *Outbox) Pending() []infraoutbox.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.records))
	for _, doc := range o.records {
		out = append(out, *doc)
	}
	return out
}

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
