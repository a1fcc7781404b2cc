package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID                 int             `gorm:"column:customer_id;primaryKey" json:"customer_id"`
	CustomerCode       string          `gorm:"size:32;uniqueIndex;not null" json:"customer_code"`
	SequenceNo         int64           `gorm:"index;not null;default:0" json:"sequence_no"`
	FullName           string          `gorm:"size:200;not null" json:"full_name"`
	Phone              string          `gorm:"size:20" json:"phone"`
	MemberWalletRemain decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"member_wallet_remain"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string { return "customer" }

// MemberWalletTransaction is owned by the wallet ledger; bookings only read it.
type MemberWalletTransaction struct {
	ID         int             `gorm:"column:wallet_txn_id;primaryKey" json:"wallet_txn_id"`
	CustomerId int             `gorm:"index;not null" json:"customer_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	TxnType    string          `gorm:"size:32" json:"txn_type"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (MemberWalletTransaction) TableName() string { return "member_wallet_transaction" }
