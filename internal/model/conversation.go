package model

import (
	"time"

	"gorm.io/gorm"
)

// 会话类型
// direct: 两人私聊，无标题无handle
// nexus: 广播频道，成员角色为 subscriber
// nexphere: 群组频道，成员角色为 member
const (
	KindDirect   = "direct"
	KindNexus    = "nexus"
	KindNexphere = "nexphere"
)

// Conversation 会话模型
// 私聊：PairKey 为 "小ID:大ID"，唯一索引保证同一对用户至多一个私聊
// 频道：Handle 在同类型内唯一（存储时已转小写）
// Handle/PairKey 用指针以便在不适用的类型上保持 NULL（唯一索引允许多个 NULL）

type Conversation struct {
	ID          uint           `gorm:"primaryKey"`
	Kind        string         `gorm:"type:varchar(16);not null;index:idx_kind_handle,unique;comment:会话类型"`
	Title       string         `gorm:"type:varchar(128);comment:频道标题"`
	Handle      *string        `gorm:"type:varchar(32);index:idx_kind_handle,unique;comment:频道handle(小写)"`
	Description string         `gorm:"type:varchar(255);comment:频道简介"`
	PairKey     *string        `gorm:"type:varchar(64);uniqueIndex;comment:私聊用户对键"`
	OwnerID     uint           `gorm:"index;comment:频道拥有者ID"`
	CreatedAt   time.Time      `gorm:"comment:创建时间"`
	UpdatedAt   time.Time      `gorm:"comment:更新时间"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Conversation) TableName() string { return "conversation" }

// IsChannel 是否为频道类会话（nexus/nexphere）
func (c *Conversation) IsChannel() bool {
	return c.Kind == KindNexus || c.Kind == KindNexphere
}
