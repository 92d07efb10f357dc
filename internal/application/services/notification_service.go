package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// maxQueuedNotifications bounds the toasts waiting for a session.
const maxQueuedNotifications = 20

// NotificationService queues transient toasts per session. Each queued
// toast is returned by exactly one Drain.
type NotificationService struct {
	store providers.SessionStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(store providers.SessionStore) *NotificationService {
	return &NotificationService{store: store, now: time.Now}
}

// Notify queues a toast. Unknown severities are shown as info.
func (n *NotificationService) Notify(ctx context.Context, sessionID, message string, severity entities.Severity) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue, err := n.load(ctx, sessionID)
	if err != nil {
		return err
	}

	queue = append(queue, entities.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  entities.ParseSeverity(string(severity)),
		CreatedAt: n.now(),
	})
	if over := len(queue) - maxQueuedNotifications; over > 0 {
		queue = queue[over:]
	}

	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	return n.store.Set(ctx, sessionID, entities.SessionKeyNotifications, string(data))
}

// Drain returns the queued toasts and clears the queue.
func (n *NotificationService) Drain(ctx context.Context, sessionID string) ([]entities.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue, err := n.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}
	if err := n.store.Delete(ctx, sessionID, entities.SessionKeyNotifications); err != nil {
		return nil, err
	}
	return queue, nil
}

// NotifyError queues an error toast describing err.
func (n *NotificationService) NotifyError(ctx context.Context, sessionID string, err error) error {
	return n.Notify(ctx, sessionID, ErrorMessage(err), entities.SeverityError)
}

func (n *NotificationService) load(ctx context.Context, sessionID string) ([]entities.Notification, error) {
	raw, ok, err := n.store.Get(ctx, sessionID, entities.SessionKeyNotifications)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var queue []entities.Notification
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		// A corrupt queue is dropped rather than blocking every later toast.
		return nil, nil
	}
	return queue, nil
}

// ErrorMessage turns an error from the request path into user-facing text.
func ErrorMessage(err error) string {
	if rf, ok := apperrors.AsRequestFailed(err); ok {
		if msg := backendapi.ErrorMessage(rf); msg != "" {
			return fmt.Sprintf("Request failed (HTTP %d): %s", rf.Status, msg)
		}
		return fmt.Sprintf("Request failed (HTTP %d)", rf.Status)
	}
	if apperrors.IsNetworkError(err) {
		return "Network error. Please try again."
	}
	var mp *apperrors.MalformedPayload
	if errors.As(err, &mp) {
		return "Unexpected response from server. Please try again."
	}
	var ae *apperrors.AppError
	if errors.As(err, &ae) && ae.Type == apperrors.ErrorTypeValidation {
		return ae.Message
	}
	return "Something went wrong. Please try again."
}
