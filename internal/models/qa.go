package models

import "time"

// Question представляет вопрос поставщика по тендеру.
// Вопросы принимаются, пока тендер опубликован или открыт.
type Question struct {
	ID             string    `json:"id"`
	TenderID       string    `json:"tenderId"`
	AskedBy        string    `json:"askedBy"`
	AskedByCompany *string   `json:"askedByCompany,omitempty"`
	Text           string    `json:"text"`
	Answered       bool      `json:"answered"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Answers заполняется при чтении, в хранилище живёт отдельно.
	Answers []Answer `json:"answers,omitempty"`
}

// Answer представляет ответ заказчика на вопрос.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	AnsweredBy string    `json:"answeredBy"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// QuestionRequest представляет запрос на создание вопроса.
type QuestionRequest struct {
	Text string `json:"text"`
}

// AnswerRequest представляет запрос на создание или изменение ответа.
type AnswerRequest struct {
	Text string `json:"text"`
}
