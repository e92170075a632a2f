package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда session credential отсутствует.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда session credential недействителен или истек.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (например, повторная вставка mapping для уже связанной identity).
	ErrConflict = errors.New("resource state conflict")

	// ErrInvalidCredential — провайдер отклонил предъявленный credential.
	ErrInvalidCredential = errors.New("invalid provider credential")

	// ErrExchangeFailed — обмен auth code на токен не вернул токен.
	ErrExchangeFailed = errors.New("auth code exchange failed")

	// ErrUpstreamUnavailable — сетевой сбой при обращении к провайдеру/брокеру.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
)
