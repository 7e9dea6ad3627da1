package domain

import "errors"

// Категории ошибок движка. Сервисы оборачивают их через fmt.Errorf("%w: ..."),
// хендлеры сопоставляют со статус-кодами через errors.Is.
var (
	// ErrNotFound возвращается и для отсутствующих, и для недоступных
	// пользователю ресурсов, чтобы не раскрывать факт их существования.
	ErrNotFound = errors.New("not found")

	// ErrForbidden возвращается, когда ресурс виден, но операция
	// превышает права доступа (например, запись при read-гранте).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream возвращается при сбоях внешних сервисов (S3, почта).
	ErrUpstream = errors.New("upstream failure")
)
