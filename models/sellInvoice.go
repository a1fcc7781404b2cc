package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SellInvoice struct {
	ID                   int             `gorm:"column:sell_invoice_id;primaryKey" json:"sell_invoice_id"`
	InvoiceNo            string          `gorm:"size:32;uniqueIndex;not null" json:"invoice_no"`
	SequenceNo           int64           `gorm:"index;not null;default:0" json:"sequence_no"`
	CustomerId           int             `gorm:"index;not null" json:"customer_id"`
	IssueAt              time.Time       `gorm:"index;not null" json:"issue_at"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	DiscountAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	FinalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"final_amount"`
	RequestedTotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"requested_total_amount"`
	Status               InvoiceStatus   `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	IssuedBy             *int            `json:"issued_by"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SellInvoice) TableName() string { return "sell_invoice" }

// SellInvoiceItem is written once per requested treatment and never updated.
type SellInvoiceItem struct {
	ID            int             `gorm:"column:sell_invoice_item_id;primaryKey" json:"sell_invoice_item_id"`
	SellInvoiceId int             `gorm:"index;not null" json:"sell_invoice_id"`
	ItemId        int             `gorm:"index;not null" json:"item_id"`
	Description   *string         `gorm:"size:255" json:"description"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	SoldQty       int             `gorm:"not null" json:"sold_qty"`
	Qty           int             `gorm:"not null" json:"qty"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_price"`
}

func (SellInvoiceItem) TableName() string { return "sell_invoice_item" }

type TreatmentSession struct {
	ID                int       `gorm:"column:treatment_session_id;primaryKey" json:"treatment_session_id"`
	TreatmentId       int       `gorm:"index;not null" json:"treatment_id"`
	SellInvoiceId     int       `gorm:"index;not null" json:"sell_invoice_id"`
	SellInvoiceItemId int       `gorm:"index" json:"sell_invoice_item_id"`
	CustomerId        int       `gorm:"index;not null" json:"customer_id"`
	SessionDate       time.Time `gorm:"type:date;not null" json:"session_date"`
	SessionTime       string    `gorm:"size:5;not null" json:"session_time"`
	Note              *string   `gorm:"type:text" json:"note"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TreatmentSession) TableName() string { return "treatment_session" }

// InvoiceTotals is the reconciled header triple. FinalAmount == TotalAmount - DiscountAmount.
type InvoiceTotals struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

func (i SellInvoice) Totals() InvoiceTotals {
	return InvoiceTotals{
		TotalAmount:    i.TotalAmount,
		DiscountAmount: i.DiscountAmount,
		FinalAmount:    i.FinalAmount,
	}
}
