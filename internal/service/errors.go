package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidActivity 调用方输入不合法（缺少用户或活动类型）
	ErrInvalidActivity = errors.New("无效的学习活动")
	// ErrTransient 存储暂时不可用，调用方可重试
	ErrTransient = errors.New("存储暂时不可用")
	ErrNotFound  = errors.New("记录不存在")
)

// transient 将仓储错误标记为可重试
func transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
