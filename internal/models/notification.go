package models

import "time"

type EventType string // Тип события для уведомления

const (
	TenderPublishedEvent     EventType = "tender_published"
	TenderStatusChangedEvent EventType = "tender_status_changed"
	TenderCancelledEvent     EventType = "tender_cancelled"
	TenderAwardedEvent       EventType = "tender_awarded"
	TenderClosedEvent        EventType = "tender_closed"
	BidSubmittedEvent        EventType = "bid_submitted"
	BidRevisedEvent          EventType = "bid_revised"
	BidWithdrawnEvent        EventType = "bid_withdrawn"
	BidAcceptedEvent         EventType = "bid_accepted"
	BidRejectedEvent         EventType = "bid_rejected"
	DocumentApprovedEvent    EventType = "document_approved"
	DocumentRejectedEvent    EventType = "document_rejected"
	QuestionAskedEvent       EventType = "question_asked"
	QuestionAnsweredEvent    EventType = "question_answered"
)

// Notification представляет уведомление получателя.
// Запись неизменяема, кроме флага Read.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	EventType   EventType      `json:"eventType"`
	Payload     map[string]any `json:"payload"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Event - элемент исходящей очереди рассылки.
type Event struct {
	RecipientID string
	EventType   EventType
	Payload     map[string]any
}
