package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateErr 判断是否为唯一索引冲突
// 兼容MySQL(1062 Duplicate entry)与测试用的sqlite(UNIQUE constraint failed)
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint")
}
