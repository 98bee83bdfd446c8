package model

import (
	"time"
)

// 消息类型
const (
	MsgTypeText    = "text"
	MsgTypeSticker = "sticker"
	MsgTypeFile    = "file"
	MsgTypeSystem  = "system" // 拉黑/解除拉黑的系统提示消息
)

// Message 消息模型
// 归属唯一会话，作者可因账号注销置空（AuthorID 为指针）
// 文本/附件/贴纸至少其一非空，ReplyToID 须指向同一会话内的消息
// 不带 DeletedAt：删除即物理删除，不保留墓碑

type Message struct {
	ID             uint       `gorm:"primaryKey"`
	ConversationID uint       `gorm:"not null;index;comment:会话ID"`
	AuthorID       *uint      `gorm:"index;comment:作者ID(注销后置空)"`
	Text           string     `gorm:"type:text;comment:文本内容"`
	MsgType        string     `gorm:"type:varchar(32);default:'text';comment:消息类型"`
	Sticker        string     `gorm:"type:varchar(128);comment:贴纸标识"`
	AttachmentPath string     `gorm:"type:varchar(255);comment:附件存储路径"`
	AttachmentName string     `gorm:"type:varchar(255);comment:附件原始文件名"`
	ReplyToID      *uint      `gorm:"index;comment:被回复消息ID"`
	EditedAt       *time.Time `gorm:"comment:编辑时间"`
	CreatedAt      time.Time  `gorm:"index;comment:创建时间"`
	UpdatedAt      time.Time  `gorm:"comment:更新时间"`
}

func (Message) TableName() string { return "message" }
