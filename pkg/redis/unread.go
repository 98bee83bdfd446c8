package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 未读消息计数相关常量
const (
	UnreadCountKeyPrefix = "nexchat:unread:" // 未读消息计数key前缀：nexchat:unread:<userID>:<convID>
	UnreadCountTTL       = 7 * 24 * time.Hour
)

func unreadKey(userID, conversationID uint) string {
	return fmt.Sprintf("%s%d:%d", UnreadCountKeyPrefix, userID, conversationID)
}

// IncrementUnreadCount 增加用户在某会话的未读消息计数
func IncrementUnreadCount(userID, conversationID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID, conversationID)

	// 使用Redis INCR命令原子性增加计数
	err := client.Incr(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("增加未读消息计数失败: %w", err)
	}

	// 设置TTL，避免计数无限增长
	err = client.Expire(ctx, key, UnreadCountTTL).Err()
	if err != nil {
		return fmt.Errorf("设置未读消息计数TTL失败: %w", err)
	}

	return nil
}

// GetUnreadCount 获取用户在某会话的未读消息计数
func GetUnreadCount(userID, conversationID uint) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID, conversationID)

	result, err := client.Get(ctx, key).Result()
	if err != nil {
		// key不存在视为0
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("获取未读消息计数失败: %w", err)
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("解析未读消息计数失败: %w", err)
	}

	return count, nil
}

// ResetUnreadCount 清零用户在某会话的未读消息计数（读取消息历史后调用）
func ResetUnreadCount(userID, conversationID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	return client.Del(ctx, unreadKey(userID, conversationID)).Err()
}
