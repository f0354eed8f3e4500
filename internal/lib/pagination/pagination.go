// Package pagination разбирает параметры page/pageSize и формирует
// конверт ответа {data, pagination}.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidParameters возвращается для нечисловых или выходящих за границы значений.
var ErrInvalidParameters = apperr.New(apperr.KindValidation, "invalid pagination parameters: page must be >= 1, pageSize must be 1-100")

// Params — запрошенная страница.
type Params struct {
	Page     int
	PageSize int
}

// Parse читает page и pageSize из query. Отсутствующие параметры получают значения по умолчанию.
func Parse(q url.Values) (Params, error) {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return Params{}, ErrInvalidParameters
		}
		p.Page = v
	}
	if raw := q.Get("pageSize"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxPageSize {
			return Params{}, ErrInvalidParameters
		}
		p.PageSize = v
	}
	return p, nil
}

// Offset возвращает смещение первой записи страницы.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit возвращает размер страницы.
func (p Params) Limit() int {
	return p.PageSize
}

// Meta — метаданные страницы в ответе.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Envelope — конверт постраничного ответа.
type Envelope[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// NewEnvelope собирает конверт из уже выбранной страницы и общего числа записей.
func NewEnvelope[T any](items []T, p Params, total int) Envelope[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return Envelope[T]{
		Data: items,
		Pagination: Meta{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Slice вырезает страницу из полного набора записей в памяти.
func Slice[T any](items []T, p Params) Envelope[T] {
	total := len(items)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return NewEnvelope(items[start:end], p, total)
}
