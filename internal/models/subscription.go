package models

import "time"

// Subscription — запись о подписке пользователя на тариф.
// У пользователя в каждый момент не более одной подписки с Active = true.
// Отменённая подписка не реактивируется: вместо этого создаётся новая запись.
type Subscription struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Plan       string     `json:"plan"`
	Active     bool       `json:"active"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
	PaymentRef string     `json:"paymentRef,omitempty"` // ID платёжного намерения, создавшего подписку
	CreatedAt  time.Time  `json:"createdAt"`
}

// Plan — тариф из каталога цен. Price хранится в минорных единицах валюты.
type Plan struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Price    int64    `json:"price" yaml:"price"`
	Currency string   `json:"currency" yaml:"currency"`
	Interval string   `json:"interval" yaml:"interval"`
	Features []string `json:"features,omitempty" yaml:"features"`
}
