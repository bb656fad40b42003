package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OutboxFileName is the queue of undelivered notifications inside the base
// directory.
const OutboxFileName = ".notify_outbox.json"

// MaxDeliveryAttempts is how many times a queued batch is tried before it is
// dropped.
const MaxDeliveryAttempts = 5

// QueuedNotification is a batch of alerts that could not be delivered.
type QueuedNotification struct {
	ID       string    `json:"id"`
	Alerts   []Alert   `json:"alerts"`
	QueuedAt time.Time `json:"queued_at"`
	Attempts int       `json:"attempts"`
}

// outboxNotifier wraps a Notifier so failed deliveries are persisted and
// retried, oldest first, on the next Notify call. Sites often lose
// connectivity; alerts raised offline still reach Slack once it returns.
type outboxNotifier struct {
	next Notifier
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewOutboxNotifier creates a Notifier that delivers through next and queues
// failures in basePath/.notify_outbox.json.
func NewOutboxNotifier(next Notifier, basePath string) Notifier {
	return &outboxNotifier{
		next: next,
		path: filepath.Join(basePath, OutboxFileName),
		now:  time.Now,
	}
}

// Notify first redelivers queued batches, then sends alerts. A batch that
// fails is queued and the error is returned. When a queued batch cannot be
// delivered the new alerts are queued behind it unsent, so batches always
// reach the endpoint oldest first.
func (o *outboxNotifier) Notify(ctx context.Context, alerts []Alert) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	queue, err := o.loadQueue()
	if err != nil {
		return err
	}

	var remaining []QueuedNotification
	var flushErrs []error
	var blocked error
	for i, batch := range queue {
		if err := o.next.Notify(ctx, batch.Alerts); err != nil {
			blocked = err
			batch.Attempts++
			if batch.Attempts < MaxDeliveryAttempts {
				remaining = append(remaining, batch)
			} else {
				flushErrs = append(flushErrs, fmt.Errorf("dropping notification %s after %d attempts: %w", batch.ID, batch.Attempts, err))
			}
			// The endpoint is down; keep the rest for next time in order.
			remaining = append(remaining, queue[i+1:]...)
			break
		}
	}

	var sendErr error
	switch {
	case len(alerts) == 0:
	case blocked != nil:
		remaining = append(remaining, o.enqueue(alerts, 0))
		sendErr = fmt.Errorf("notification queued behind undelivered batches: %w", blocked)
	default:
		if err := o.next.Notify(ctx, alerts); err != nil {
			remaining = append(remaining, o.enqueue(alerts, 1))
			sendErr = fmt.Errorf("notification queued for retry: %w", err)
		}
	}

	if err := o.saveQueue(remaining); err != nil {
		return errors.Join(sendErr, err)
	}
	return errors.Join(append(flushErrs, sendErr)...)
}

func (o *outboxNotifier) enqueue(alerts []Alert, attempts int) QueuedNotification {
	return QueuedNotification{
		ID:       uuid.NewString(),
		Alerts:   alerts,
		QueuedAt: o.now().UTC(),
		Attempts: attempts,
	}
}

// PendingNotifications returns the batches waiting in basePath's outbox.
func PendingNotifications(basePath string) ([]QueuedNotification, error) {
	o := &outboxNotifier{path: filepath.Join(basePath, OutboxFileName)}
	return o.loadQueue()
}

// loadQueue returns the queued batches, or nil when the file does not exist.
func (o *outboxNotifier) loadQueue() ([]QueuedNotification, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading notification outbox: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var queue []QueuedNotification
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("parsing notification outbox: %w", err)
	}
	return queue, nil
}

// saveQueue writes the queue, removing the file when it is empty.
func (o *outboxNotifier) saveQueue(queue []QueuedNotification) error {
	if len(queue) == 0 {
		if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing notification outbox: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling notification outbox: %w", err)
	}
	if err := os.WriteFile(o.path, data, 0o600); err != nil {
		return fmt.Errorf("writing notification outbox: %w", err)
	}
	return nil
}
