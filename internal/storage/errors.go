// Package storage объявляет ошибки уровня хранилища, общие для всех реализаций.
package storage

import "github.com/magabrotheeeer/finportal/internal/lib/apperr"

var (
	// ErrUserExists возвращается при повторной регистрации username или email.
	ErrUserExists = apperr.New(apperr.KindConflict, "user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")
	// ErrSubscriptionNotFound возвращается, если подписка не найдена или принадлежит другому пользователю.
	ErrSubscriptionNotFound = apperr.New(apperr.KindNotFound, "subscription not found")
	// ErrAlreadySubscribed возвращается при попытке создать вторую активную подписку.
	ErrAlreadySubscribed = apperr.New(apperr.KindConflict, "user already has an active subscription")
	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = apperr.New(apperr.KindNotFound, "payment not found")
)
