package service

import (
	"strings"

	"nexchat/pkg/apperr"
)

// handle长度限制
const (
	handleMinLen = 5
	handleMaxLen = 30
)

// NormalizeHandle 校验并规范化频道handle
// 规则：5-30个字符，至少一个ASCII字母，其余字符限字母/数字/下划线/连字符
// 通过校验后统一转为小写
func NormalizeHandle(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if len(handle) < handleMinLen || len(handle) > handleMaxLen {
		return "", apperr.Invalidf("handle长度须在5-30之间")
	}

	hasLetter := false
	for _, ch := range handle {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
			hasLetter = true
		case ch >= '0' && ch <= '9', ch == '_', ch == '-':
		default:
			return "", apperr.Invalidf("handle仅允许字母、数字、下划线和连字符")
		}
	}
	if !hasLetter {
		return "", apperr.Invalidf("handle至少需要一个字母")
	}

	return strings.ToLower(handle), nil
}
