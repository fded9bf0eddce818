package router

import (
	"net/http"

	"github.com/senyabanana/procurement-service/internal/handlers"
)

func InitRoutes(
	tenderHandler *handlers.TenderHandler,
	bidHandler *handlers.BidHandler,
	documentHandler *handlers.DocumentHandler,
	notificationHandler *handlers.NotificationHandler,
	qaHandler *handlers.QAHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)

	mux.HandleFunc("GET /api/tenders", tenderHandler.GetTenders)
	mux.HandleFunc("/api/tenders/new", tenderHandler.CreateTender)
	mux.HandleFunc("/api/tenders/my", tenderHandler.GetMyTenders)
	mux.HandleFunc("GET /api/tenders/{tenderId}", tenderHandler.GetTender)
	mux.HandleFunc("/api/tenders/{tenderId}/edit", tenderHandler.EditTender)
	mux.HandleFunc("PUT /api/tenders/{tenderId}/status", tenderHandler.UpdateTenderStatus)
	mux.HandleFunc("/api/tenders/{tenderId}/award", tenderHandler.AwardTender)
	mux.HandleFunc("GET /api/tenders/{tenderId}/award/verify", tenderHandler.VerifyAward)
	mux.HandleFunc("GET /api/tenders/{tenderId}/bids", bidHandler.GetTenderBids)
	mux.HandleFunc("POST /api/tenders/{tenderId}/questions", qaHandler.AskQuestion)
	mux.HandleFunc("GET /api/tenders/{tenderId}/questions", qaHandler.GetTenderQuestions)

	mux.HandleFunc("GET /api/questions/{questionId}", qaHandler.GetQuestion)
	mux.HandleFunc("DELETE /api/questions/{questionId}", qaHandler.DeleteQuestion)
	mux.HandleFunc("POST /api/questions/{questionId}/answer", qaHandler.AnswerQuestion)
	mux.HandleFunc("PUT /api/questions/{questionId}/answer/{answerId}", qaHandler.UpdateAnswer)

	mux.HandleFunc("/api/bids/new", bidHandler.CreateBid)
	mux.HandleFunc("/api/bids/my", bidHandler.GetMyBids)
	mux.HandleFunc("GET /api/bids/{bidId}", bidHandler.GetBid)
	mux.HandleFunc("/api/bids/{bidId}/edit", bidHandler.ReviseBid)
	mux.HandleFunc("/api/bids/{bidId}/withdraw", bidHandler.WithdrawBid)
	mux.HandleFunc("GET /api/bids/{bidId}/revisions", bidHandler.GetBidRevisions)

	mux.HandleFunc("GET /api/documents", documentHandler.GetDocuments)
	mux.HandleFunc("POST /api/documents", documentHandler.UploadDocument)
	mux.HandleFunc("/api/documents/stats", documentHandler.GetDocumentStats)
	mux.HandleFunc("POST /api/documents/{documentId}/versions", documentHandler.UploadDocumentVersion)
	mux.HandleFunc("GET /api/documents/{documentId}/versions", documentHandler.GetDocumentVersions)
	mux.HandleFunc("/api/documents/{documentId}/submit", documentHandler.SubmitDocument)
	mux.HandleFunc("/api/documents/{documentId}/approve", documentHandler.ApproveDocument)
	mux.HandleFunc("/api/documents/{documentId}/reject", documentHandler.RejectDocument)
	mux.HandleFunc("GET /api/documents/{documentId}/download", documentHandler.DownloadDocument)

	mux.HandleFunc("GET /api/notifications", notificationHandler.GetNotifications)
	mux.HandleFunc("/api/notifications/{notificationId}/read", notificationHandler.MarkNotificationRead)

	return mux
}
