package models

import (
	"log"

	"github.com/refinehaus/clinic_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{}, &MemberWalletTransaction{},
		&Treatment{},
		&SellInvoice{}, &SellInvoiceItem{}, &TreatmentSession{},
		&Promotion{}, &PromotionConditionGroup{}, &PromotionConditionRule{}, &PromotionBenefit{},
		&PromotionRedemption{}, &PromotionLine{},
		&StockMovement{},
		&OutboxRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
