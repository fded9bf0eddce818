package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

// Fanout - исходящая очередь уведомлений с одним воркером.
// Enqueue никогда не блокирует вызывающего; ошибки доставки логируются
// и не поднимаются наверх. Доставка с гарантией at-least-once остаётся
// за хранилищем уведомлений и внешними каналами.
type Fanout struct {
	repo    repository.NotificationRepository
	logger  *log.Logger
	queue   chan models.Event
	timeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewFanout создаёт новый экземпляр Fanout с ограниченной очередью.
func NewFanout(repo repository.NotificationRepository, logger *log.Logger, queueSize int) *Fanout {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Fanout{
		repo:    repo,
		logger:  logger,
		queue:   make(chan models.Event, queueSize),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start запускает воркер очереди.
func (f *Fanout) Start() {
	f.startOnce.Do(func() {
		go f.run()
	})
}

// Stop останавливает воркер, дождавшись обработки уже принятых событий.
func (f *Fanout) Stop() {
	f.stopOnce.Do(func() {
		close(f.queue)
		<-f.done
	})
}

// Enqueue ставит событие в очередь. При переполненной очереди событие
// отбрасывается с записью в лог, вызывающий не блокируется.
func (f *Fanout) Enqueue(recipientID string, eventType models.EventType, payload map[string]any) {
	event := models.Event{
		RecipientID: recipientID,
		EventType:   eventType,
		Payload:     payload,
	}
	select {
	case f.queue <- event:
	default:
		f.logger.Printf("notification queue full, dropping event %s for %s", eventType, recipientID)
	}
}

func (f *Fanout) run() {
	defer close(f.done)
	for event := range f.queue {
		f.deliver(event)
	}
}

func (f *Fanout) deliver(event models.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	notification := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: event.RecipientID,
		EventType:   event.EventType,
		Payload:     event.Payload,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := f.repo.Insert(ctx, notification); err != nil {
		f.logger.Printf("failed to store notification %s for %s: %v", event.EventType, event.RecipientID, err)
	}
}
