package models

import "time"

// Статусы платёжного намерения у провайдера.
const (
	PaymentStatusRequiresPayment = "requires_payment_method"
	PaymentStatusProcessing      = "processing"
	PaymentStatusSucceeded       = "succeeded"
	PaymentStatusCanceled        = "canceled"
)

// Payment — локальная запись о платёжном намерении, созданном пользователем.
type Payment struct {
	IntentID  string    `json:"intentId"`
	UserID    string    `json:"userId"`
	PlanID    string    `json:"planId"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MajorUnits переводит сумму из минорных единиц валюты в основные.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
