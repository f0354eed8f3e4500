// Package sl содержит вспомогательные функции для работы с логгером slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil-ошибки возвращается пустая строка, чтобы вызов был безопасен в defer-ветках.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op возвращает атрибут с именем операции, которым помечается каждая запись лога.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// LevelFor возвращает уровень логирования для окружения: local пишет debug, остальные info.
func LevelFor(env string) slog.Level {
	switch env {
	case "local", "dev":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
