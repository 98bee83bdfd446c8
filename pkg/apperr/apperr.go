package apperr

import (
	"errors"
)

// 业务错误分类
// handler 层根据分类映射HTTP状态码：
// ErrInvalid→400 ErrUnauthorized→401 ErrForbidden→403 ErrNotFound→404 ErrConflict→409
// 其余错误一律500，细节只记日志
var (
	ErrInvalid      = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Invalidf 构造带说明的输入错误
func Invalidf(msg string) error { return wrap(ErrInvalid, msg) }

// Forbiddenf 构造带说明的权限错误
func Forbiddenf(msg string) error { return wrap(ErrForbidden, msg) }

// NotFoundf 构造带说明的不存在错误
func NotFoundf(msg string) error { return wrap(ErrNotFound, msg) }

// Conflictf 构造带说明的冲突错误
func Conflictf(msg string) error { return wrap(ErrConflict, msg) }

type wrapped struct {
	sentinel error
	msg      string
}

func wrap(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

func (w *wrapped) Error() string { return w.msg }

func (w *wrapped) Unwrap() error { return w.sentinel }
