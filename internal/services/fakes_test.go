package services

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/senyabanana/procurement-service/internal/lifecycle"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"
)

// Общие фейки хранилищ для тестов сервисного слоя. Поведение повторяет
// контракт Postgres-реализаций: оптимистические проверки версий,
// ErrNotFound для отсутствующих строк.

type fakeTenderRepo struct {
	mu      sync.Mutex
	tenders map[string]*models.Tender

	insertErr error
	updateErr error
	getCalls  int
}

func newFakeTenderRepo() *fakeTenderRepo {
	return &fakeTenderRepo{tenders: make(map[string]*models.Tender)}
}

func (r *fakeTenderRepo) put(t *models.Tender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *t
	r.tenders[t.ID] = &clone
}

func (r *fakeTenderRepo) Insert(_ context.Context, tender *models.Tender) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.put(tender)
	return nil
}

func (r *fakeTenderRepo) GetByID(_ context.Context, tenderID string) (*models.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	tender, ok := r.tenders[tenderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *tender
	return &clone, nil
}

func (r *fakeTenderRepo) List(_ context.Context, limit, offset int, categories []string) ([]models.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tender
	for _, tender := range r.tenders {
		if len(categories) > 0 && !containsString(categories, string(tender.Category)) {
			continue
		}
		out = append(out, *tender)
	}
	return sliceWindow(out, limit, offset), nil
}

func (r *fakeTenderRepo) ListByAuthority(_ context.Context, authorityID string, limit, offset int) ([]models.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tender
	for _, tender := range r.tenders {
		if tender.AuthorityID == authorityID {
			out = append(out, *tender)
		}
	}
	return sliceWindow(out, limit, offset), nil
}

func (r *fakeTenderRepo) ListExpiredOpen(_ context.Context, now time.Time) ([]models.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tender
	for _, tender := range r.tenders {
		if tender.Status == models.OpenTender && !tender.SubmissionDeadline.After(now) {
			out = append(out, *tender)
		}
	}
	return out, nil
}

func (r *fakeTenderRepo) UpdateDetails(_ context.Context, tender *models.Tender, expectedVersion int) (*models.Tender, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tenders[tender.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	clone := *tender
	clone.Version = expectedVersion + 1
	clone.UpdatedAt = time.Now().UTC()
	r.tenders[tender.ID] = &clone
	result := clone
	return &result, nil
}

func (r *fakeTenderRepo) UpdateStatus(_ context.Context, tenderID string, status models.TenderStatus, reason *string, expectedVersion int) (*models.Tender, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tenders[tenderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	current.Status = status
	current.CancellationReason = reason
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	clone := *current
	return &clone, nil
}

type fakeBidRepo struct {
	mu        sync.Mutex
	bids      map[string]*models.Bid
	revisions map[string][]models.BidRevision

	// tenders включает охранное условие вставки, как в Postgres-реализации.
	tenders      *fakeTenderRepo
	beforeInsert func()
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{
		bids:      make(map[string]*models.Bid),
		revisions: make(map[string][]models.BidRevision),
	}
}

func (r *fakeBidRepo) put(b *models.Bid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bids[b.ID] = &clone
}

func (r *fakeBidRepo) Insert(_ context.Context, bid *models.Bid) error {
	if r.beforeInsert != nil {
		r.beforeInsert()
	}
	if r.tenders != nil {
		r.tenders.mu.Lock()
		tender, ok := r.tenders.tenders[bid.TenderID]
		open := ok && tender.Status == models.OpenTender
		r.tenders.mu.Unlock()
		if !open {
			return repository.ErrTenderNotOpen
		}
	}
	r.put(bid)
	return nil
}

func (r *fakeBidRepo) GetByID(_ context.Context, bidID string) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.bids[bidID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *bid
	return &clone, nil
}

func (r *fakeBidRepo) ListByTender(_ context.Context, tenderID string, includeWithdrawn bool, limit, offset int) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bid
	for _, bid := range r.bids {
		if bid.TenderID != tenderID {
			continue
		}
		if !includeWithdrawn && bid.Status == models.WithdrawnBid {
			continue
		}
		out = append(out, *bid)
	}
	return sliceWindow(out, limit, offset), nil
}

func (r *fakeBidRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bid
	for _, bid := range r.bids {
		if bid.CompanyID == companyID {
			out = append(out, *bid)
		}
	}
	return sliceWindow(out, limit, offset), nil
}

func (r *fakeBidRepo) Revise(_ context.Context, bid *models.Bid, snapshot models.BidRevision, expectedVersion int) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bids[bid.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	r.revisions[bid.ID] = append(r.revisions[bid.ID], snapshot)
	clone := *bid
	clone.Version = expectedVersion + 1
	clone.UpdatedAt = time.Now().UTC()
	r.bids[bid.ID] = &clone
	result := clone
	return &result, nil
}

func (r *fakeBidRepo) Withdraw(_ context.Context, bidID, reason string, expectedVersion int) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bids[bidID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	current.Status = models.WithdrawnBid
	current.WithdrawalReason = &reason
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	clone := *current
	return &clone, nil
}

func (r *fakeBidRepo) UpdateStatus(_ context.Context, bidID string, status models.BidStatus, expectedVersion int) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bids[bidID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	current.Status = status
	current.Version++
	clone := *current
	return &clone, nil
}

func (r *fakeBidRepo) Revisions(_ context.Context, bidID string) ([]models.BidRevision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BidRevision(nil), r.revisions[bidID]...), nil
}

// fakeAwardStore применяет присуждение поверх фейковых хранилищ,
// повторяя транзакционный контракт: либо всё, либо ничего.
type fakeAwardStore struct {
	tenders *fakeTenderRepo
	bids    *fakeBidRepo
}

func (s *fakeAwardStore) ApplyAward(_ context.Context, tenderID, winningBidID, justification, dataHash, ledgerRef string, expectedVersion int) (*models.Tender, []models.Bid, error) {
	s.tenders.mu.Lock()
	defer s.tenders.mu.Unlock()
	s.bids.mu.Lock()
	defer s.bids.mu.Unlock()

	tender, ok := s.tenders.tenders[tenderID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if tender.Version != expectedVersion {
		return nil, nil, repository.ErrVersionConflict
	}
	if !lifecycle.CanAwardTender(tender.Status) {
		return nil, nil, repository.ErrVersionConflict
	}
	winner, ok := s.bids.bids[winningBidID]
	if !ok || winner.TenderID != tenderID {
		return nil, nil, repository.ErrNotFound
	}
	if !lifecycle.EligibleForAward(winner.Status) {
		return nil, nil, repository.ErrVersionConflict
	}

	tender.Status = models.AwardedTender
	tender.WinningBidID = &winningBidID
	tender.AwardJustification = &justification
	tender.AwardDataHash = &dataHash
	tender.AwardLedgerRef = &ledgerRef
	tender.Version++
	tender.UpdatedAt = time.Now().UTC()

	winner.Status = models.AcceptedBid
	winner.Version++
	for _, bid := range s.bids.bids {
		if bid.TenderID != tenderID || bid.ID == winningBidID {
			continue
		}
		if bid.Status == models.WithdrawnBid {
			continue
		}
		bid.Status = models.RejectedBid
		bid.Version++
	}

	var all []models.Bid
	for _, bid := range s.bids.bids {
		if bid.TenderID == tenderID {
			all = append(all, *bid)
		}
	}
	clone := *tender
	return &clone, all, nil
}

type fakeQARepo struct {
	mu        sync.Mutex
	questions map[string]*models.Question
	answers   map[string][]models.Answer
}

func newFakeQARepo() *fakeQARepo {
	return &fakeQARepo{
		questions: make(map[string]*models.Question),
		answers:   make(map[string][]models.Answer),
	}
}

func (r *fakeQARepo) InsertQuestion(_ context.Context, question *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *question
	r.questions[question.ID] = &clone
	return nil
}

func (r *fakeQARepo) GetQuestion(_ context.Context, questionID string) (*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	question, ok := r.questions[questionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *question
	clone.Answers = append([]models.Answer(nil), r.answers[questionID]...)
	return &clone, nil
}

func (r *fakeQARepo) ListByTender(_ context.Context, tenderID string) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Question
	for _, question := range r.questions {
		if question.TenderID != tenderID {
			continue
		}
		clone := *question
		clone.Answers = append([]models.Answer(nil), r.answers[question.ID]...)
		out = append(out, clone)
	}
	return out, nil
}

func (r *fakeQARepo) InsertAnswer(_ context.Context, answer *models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	question, ok := r.questions[answer.QuestionID]
	if !ok {
		return repository.ErrNotFound
	}
	r.answers[answer.QuestionID] = append(r.answers[answer.QuestionID], *answer)
	question.Answered = true
	question.UpdatedAt = answer.CreatedAt
	return nil
}

func (r *fakeQARepo) UpdateAnswer(_ context.Context, answerID, questionID, text string) (*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	answers := r.answers[questionID]
	for i := range answers {
		if answers[i].ID == answerID {
			answers[i].Text = text
			clone := answers[i]
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeQARepo) DeleteQuestion(_ context.Context, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[questionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.questions, questionID)
	delete(r.answers, questionID)
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (r *fakeNotificationRepo) Insert(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return sliceWindow(out, limit, offset), nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, notificationID, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == notificationID && r.notifications[i].RecipientID == recipientID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

func (r *fakeNotificationRepo) countByType(eventType models.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notif := range r.notifications {
		if notif.EventType == eventType {
			n++
		}
	}
	return n
}

// newTestFanout возвращает запущенную очередь рассылки поверх фейкового
// хранилища. Stop вызывается тестом для дожидания доставки.
func newTestFanout() (*notification.Fanout, *fakeNotificationRepo) {
	repo := &fakeNotificationRepo{}
	fanout := notification.NewFanout(repo, log.New(io.Discard, "", 0), 64)
	fanout.Start()
	return fanout, repo
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func sliceWindow[T any](values []T, limit, offset int) []T {
	if offset >= len(values) {
		return nil
	}
	values = values[offset:]
	if limit > 0 && limit < len(values) {
		values = values[:limit]
	}
	return values
}
