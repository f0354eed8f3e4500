package paymentprovider

// EventPaymentSucceeded — единственный тип события, который приводит к изменению подписки.
const EventPaymentSucceeded = "payment_intent.succeeded"

// Metadata связывает платёжное намерение с пользователем и тарифом.
type Metadata struct {
	UserID   string `json:"userId"`
	PlanID   string `json:"planId"`
	PlanName string `json:"planName"`
}

// CreateIntentRequest описывает тело запроса создания платёжного намерения.
type CreateIntentRequest struct {
	Amount   int64    `json:"amount"`
	Currency string   `json:"currency"`
	Metadata Metadata `json:"metadata"`
}

// Intent — платёжное намерение на стороне провайдера. Amount в минимальных единицах валюты.
type Intent struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Amount       int64    `json:"amount"`
	Currency     string   `json:"currency,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Metadata     Metadata `json:"metadata"`
}

// Event — уведомление провайдера, доставляемое на webhook.
type Event struct {
	ID   string    `json:"id,omitempty"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData содержит объект события.
type EventData struct {
	Object Intent `json:"object"`
}
