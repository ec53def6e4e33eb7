package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — класс бизнес-ошибки. Все четыре вида возвращаются вызывающему
// синхронно и не ретраятся; Transient — отдельный класс для сбоев
// хранилища, переживших ретраи.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindConflict
	KindNotFound
	KindTransient
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// KindOf возвращает класс ошибки, 0 если ошибка не из этого пакета.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
func IsConflict(err error) bool      { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsTransient(err error) bool     { return KindOf(err) == KindTransient }

// HTTPStatus транслирует класс ошибки в код ответа.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
