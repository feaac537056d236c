package service

import "errors"

var (
	// ErrStoreUnavailable - любая ошибка чтения/записи хранилища.
	// Вызов ingest завершается атомарно, частичное состояние не фиксируется.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRaceLost - транзакция прервана хранилищем из-за конкуренции.
	// Восстановление: повторить обработку с шага сопоставления,
	// ограниченное число раз; после исчерпания - ErrStoreUnavailable.
	ErrRaceLost = errors.New("transaction aborted due to contention")

	// ErrIncidentNotFound возвращается при запросе несуществующего инцидента
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrIncidentClosed возвращается при повторном закрытии инцидента
	ErrIncidentClosed = errors.New("incident already closed")

	// ErrNoMembers - пересчет инцидента без принятых сообщений.
	// В нормальном потоке недостижимо, сигнализирует о дефекте.
	ErrNoMembers = errors.New("recompute on incident with no accepted reports")
)
