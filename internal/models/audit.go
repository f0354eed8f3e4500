package models

import "time"

// AuditRecord — запись об исходе запроса, прошедшего через шлюз доступа.
// Записи только добавляются и никогда не изменяются.
type AuditRecord struct {
	UserID         string    `json:"userId"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"statusCode"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	Timestamp      time.Time `json:"timestamp"`
}
