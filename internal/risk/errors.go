package risk

import "errors"

// Ошибки kill switch, проверяемые ДО любых побочных эффектов
var (
	// ErrInvalidRequest - пустая причина или не подтвержденный запрос
	ErrInvalidRequest = errors.New("kill switch requires a non-empty reason")

	// ErrUnauthorized - у вызывающего нет роли ADMIN
	ErrUnauthorized = errors.New("kill switch requires ADMIN role")

	// ErrAlreadyInProgress - конкурентный вызов при state != IDLE.
	// Второй вызов падает быстро, не дожидаясь первого.
	ErrAlreadyInProgress = errors.New("kill switch invocation already in progress")
)
