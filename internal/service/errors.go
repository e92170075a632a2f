package service

import "errors"

// ErrProfileFetchFailed — best-effort запрос профиля не удался.
// Не блокирует linking: поля профиля остаются пустыми.
var ErrProfileFetchFailed = errors.New("profile_fetch_failed")
