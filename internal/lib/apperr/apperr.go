// Package apperr описывает таксономию ошибок приложения.
//
// Каждая ошибка несёт стабильный машиночитаемый Kind и сообщение, которое
// можно показать клиенту. Исходная причина хранится в Err и наружу не отдаётся.
package apperr

import (
	"errors"
	"fmt"
)

// Kind — машиночитаемый тип ошибки.
type Kind string

const (
	KindAuthRequired         Kind = "auth_required"
	KindForbidden            Kind = "forbidden"
	KindSubscriptionRequired Kind = "subscription_required"
	KindRateLimited          Kind = "rate_limited"
	KindValidation           Kind = "validation_error"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindUpstream             Kind = "upstream_error"
	KindInternal             Kind = "internal_error"
)

// Error — ошибка приложения.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New создаёт ошибку без причины. Используется для объявления sentinel-значений.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap создаёт ошибку с причиной.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// With оборачивает причину, сохраняя Kind и сообщение sentinel-ошибки.
// errors.Is(result, e) остаётся истинным.
func (e *Error) With(err error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по Kind и сообщению.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// KindOf возвращает Kind первой ошибки приложения в цепочке, либо KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message возвращает сообщение для клиента. Для внутренних ошибок и ошибок
// провайдера текст причины не раскрывается.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindInternal:
		return "internal error"
	case KindUpstream:
		return "payment provider unavailable"
	}
	return e.Msg
}
