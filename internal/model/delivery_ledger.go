package model

import "time"

// DeliveryLedgerEntry 已派发通知的台账，只追加。
// (message_id, participant_id) 唯一约束是幂等性的第二道防线：
// 竞争导致的重复插入必须报错，绝不能静默产生第二封邮件
type DeliveryLedgerEntry struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	MessageID     string `gorm:"type:varchar(36);index:idx_ledger_message;uniqueIndex:ux_ledger_message_participant;not null"`
	ParticipantID string `gorm:"type:varchar(36);uniqueIndex:ux_ledger_message_participant;not null"`
	// ux_ledger_message_participant = (message_id, participant_id)
	CreatedAt time.Time
}

func (DeliveryLedgerEntry) TableName() string { return "delivery_ledger" }
