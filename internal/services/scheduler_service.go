package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/senyabanana/procurement-service/internal/repository"
)

// Scheduler периодически закрывает открытые тендеры, у которых истёк
// дедлайн подачи предложений.
type Scheduler struct {
	tenders  repository.TenderRepository
	service  *TenderService
	logger   *log.Logger
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт новый экземпляр Scheduler.
func NewScheduler(tenders repository.TenderRepository, service *TenderService, logger *log.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		tenders:  tenders,
		service:  service,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновый цикл. Повторный вызов Stop безопасен.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop останавливает цикл и дожидается его завершения.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.CloseExpiredTenders(context.Background())
		}
	}
}

// CloseExpiredTenders закрывает все просроченные открытые тендеры.
// Ошибка по одному тендеру не прерывает обход остальных.
func (s *Scheduler) CloseExpiredTenders(ctx context.Context) int {
	expired, err := s.tenders.ListExpiredOpen(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Printf("scheduler: failed to list expired tenders: %v", err)
		return 0
	}

	closed := 0
	for _, tender := range expired {
		if _, err := s.service.CloseExpired(ctx, tender); err != nil {
			s.logger.Printf("scheduler: failed to close tender %s: %v", tender.ID, err)
			continue
		}
		closed++
	}
	if closed > 0 {
		s.logger.Printf("scheduler: closed %d expired tenders", closed)
	}
	return closed
}
