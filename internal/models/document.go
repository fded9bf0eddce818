package models

import "time"

type (
	DocumentCategory string // Категория документа
	DocumentStatus   string // Статус согласования документа
)

const (
	TechnicalDocument  DocumentCategory = "technical"
	FinancialDocument  DocumentCategory = "financial"
	ComplianceDocument DocumentCategory = "compliance"
	LegalDocument      DocumentCategory = "legal"
	GeneralDocument    DocumentCategory = "general"
	AddendumDocument   DocumentCategory = "addendum"

	DraftDocument    DocumentStatus = "draft"    // Документ загружен, согласование не начато
	PendingDocument  DocumentStatus = "pending"  // Документ отправлен на согласование
	ApprovedDocument DocumentStatus = "approved" // Документ согласован
	RejectedDocument DocumentStatus = "rejected" // Документ отклонён, требуется причина
)

// Document представляет версию документа, прикреплённого к тендеру или предложению.
// Владелец задаётся ровно одним из полей TenderID и BidID.
// Предыдущие версии никогда не перезаписываются.
type Document struct {
	ID               string           `json:"id"`
	TenderID         *string          `json:"tenderId,omitempty"`
	BidID            *string          `json:"bidId,omitempty"`
	UploadedBy       string           `json:"uploadedBy"`
	FileName         string           `json:"fileName"`
	FileSize         int64            `json:"fileSize"`
	ContentHash      string           `json:"contentHash"`
	Locator          string           `json:"-"`
	Category         DocumentCategory `json:"category"`
	Description      string           `json:"description,omitempty"`
	Status           DocumentStatus   `json:"status"`
	ApprovedBy       *string          `json:"approvedBy,omitempty"`
	ApprovalDate     *time.Time       `json:"approvalDate,omitempty"`
	RejectionReason  *string          `json:"rejectionReason,omitempty"`
	Version          int              `json:"version"`
	ParentDocumentID *string          `json:"parentDocumentId,omitempty"`
	IsCurrentVersion bool             `json:"isCurrentVersion"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// DocumentOwner указывает, кому принадлежит документ: тендеру или предложению.
type DocumentOwner struct {
	TenderID *string
	BidID    *string
}

// DocumentStats - производная статистика по документам владельца.
type DocumentStats struct {
	TotalDocuments int                      `json:"totalDocuments"`
	ByCategory     map[DocumentCategory]int `json:"documentsByCategory"`
	ByStatus       map[DocumentStatus]int   `json:"documentsByStatus"`
	TotalFileSize  int64                    `json:"totalFileSize"`
	LatestUpload   *time.Time               `json:"latestUpload,omitempty"`
}
