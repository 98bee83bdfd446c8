package redis

import (
	"fmt"
)

// 管理后台统计计数器
// 消息/会话总量随写入递增，作为仪表盘的近似值
// 精确值来自数据库count，计数器避免仪表盘刷新压垮存储
const (
	StatsMessagesKey      = "nexchat:stats:messages"      // 累计消息数
	StatsConversationsKey = "nexchat:stats:conversations" // 累计会话数
)

// IncrMessageCount 累计消息计数加一
func IncrMessageCount() error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return client.Incr(ctx, StatsMessagesKey).Err()
}

// IncrConversationCount 累计会话计数加一
func IncrConversationCount() error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return client.Incr(ctx, StatsConversationsKey).Err()
}

// GetStatsCounters 读取统计计数器
func GetStatsCounters() (messages, conversations int64, err error) {
	if client == nil {
		return 0, 0, fmt.Errorf("redis客户端未初始化")
	}
	messages, _ = client.Get(ctx, StatsMessagesKey).Int64()
	conversations, _ = client.Get(ctx, StatsConversationsKey).Int64()
	return messages, conversations, nil
}
