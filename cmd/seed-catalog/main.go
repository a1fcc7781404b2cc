// seed-catalog creates demo treatments and one promotion per rule and benefit type for local runs.
// Rows are matched by name (treatments) or code (promotions), so reruns are no-ops.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-catalog
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var demoTreatments = []models.Treatment{
	{Name: "Facial Basic", Category: "Facial", Price: decimal.NewFromInt(1500)},
	{Name: "Laser Session", Category: "Laser", Price: decimal.NewFromInt(3000), QtyMultiplier: decimal.NewNullDecimal(decimal.NewFromInt(2))},
	{Name: "Sheet Mask", Category: "Retail", Price: decimal.NewFromInt(200)},
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	if err := config.ConnectDatabaseWithRetry(ctx, 5); err != nil {
		fmt.Fprintf(os.Stderr, "database not available: %v. Set DB_* env vars.\n", err)
		return 1
	}
	defer config.CloseDatabase()
	db := config.GetDB()
	models.MigrateTable()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]int, len(demoTreatments))
		for _, t := range demoTreatments {
			t.IsActive = boolPtr(true)
			if err := tx.Where("name = ?", t.Name).FirstOrCreate(&t).Error; err != nil {
				return fmt.Errorf("treatment %q: %w", t.Name, err)
			}
			ids[t.Name] = t.ID
			fmt.Printf("treatment %-14s id=%d\n", t.Name, t.ID)
		}

		for _, p := range demoPromotions(ids) {
			var existing models.Promotion
			err := tx.Where("code = ?", p.Code).First(&existing).Error
			if err == nil {
				fmt.Printf("promotion %-14s exists id=%d\n", p.Code, existing.ID)
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("promotion %q: %w", p.Code, err)
			}
			// Create with associations: groups, rules and benefits are inserted in one go.
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("promotion %q: %w", p.Code, err)
			}
			fmt.Printf("promotion %-14s created id=%d\n", p.Code, p.ID)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		return 1
	}
	return 0
}

func demoPromotions(ids map[string]int) []models.Promotion {
	facial := ids["Facial Basic"]
	laser := ids["Laser Session"]
	mask := ids["Sheet Mask"]
	gte := models.OperatorGTE

	return []models.Promotion{
		{
			Code: "SPEND5K10", Name: "10% off over 5,000", IsStackable: true, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
				{RuleType: models.RuleTypeMinSpend, Op: &gte, Amount: decimal.NewNullDecimal(decimal.NewFromInt(5000))},
			}}},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypePercentDiscount, TargetScope: models.TargetScopeInvoice, ValuePercent: decimal.NewNullDecimal(decimal.NewFromInt(10))},
			},
		},
		{
			Code: "FACIAL300", Name: "300 off Facial", IsStackable: true, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
				{RuleType: models.RuleTypeHasItem, ItemId: &facial},
			}}},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypeAmountDiscount, TargetScope: models.TargetScopeItem, TargetItemId: &facial, ValueAmount: decimal.NewNullDecimal(decimal.NewFromInt(300))},
			},
		},
		{
			Code: "LASER4MASK", Name: "Free mask with 4 laser units", IsStackable: false, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
				{RuleType: models.RuleTypeMinQtyItem, Op: &gte, ItemId: &laser, QtyBaseUnit: decimal.NewNullDecimal(decimal.NewFromInt(4))},
			}}},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypeFreeItem, FreeItemId: &mask, FreeQty: intPtr(1)},
			},
		},
		{
			Code: "WELCOME", Name: "Welcome credit", IsStackable: true, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
				{RuleType: models.RuleTypeNewCustomerOnly},
			}}},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypeWalletCredit, ValueAmount: decimal.NewNullDecimal(decimal.NewFromInt(500))},
			},
		},
		{
			Code: "LOYAL5", Name: "5% back for wallet members", IsStackable: true, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{
				{SortOrder: 1, Rules: []models.PromotionConditionRule{
					{RuleType: models.RuleTypeMinWalletTopup, Op: &gte, Amount: decimal.NewNullDecimal(decimal.NewFromInt(10000))},
				}},
				{SortOrder: 2, Rules: []models.PromotionConditionRule{
					{RuleType: models.RuleTypeMinSpend, Op: &gte, Amount: decimal.NewNullDecimal(decimal.NewFromInt(20000))},
				}},
			},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypeWalletCredit, TargetScope: models.TargetScopeInvoice, ValuePercent: decimal.NewNullDecimal(decimal.NewFromInt(5))},
			},
		},
		// Same shape the bundle-discovery job writes.
		{
			Code: "BUNDLE-FACIAL-LASER", Name: "Facial + Laser bundle", IsStackable: false, IsActive: boolPtr(true),
			ConditionGroups: []models.PromotionConditionGroup{{SortOrder: 1, Rules: []models.PromotionConditionRule{
				{RuleType: models.RuleTypeHasItem, Op: &gte, ItemId: &facial, QtyBaseUnit: decimal.NewNullDecimal(decimal.NewFromInt(1))},
				{RuleType: models.RuleTypeHasItem, Op: &gte, ItemId: &laser, QtyBaseUnit: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			}}},
			Benefits: []models.PromotionBenefit{
				{BenefitType: models.BenefitTypePercentDiscount, TargetScope: models.TargetScopeInvoice, ValuePercent: decimal.NewNullDecimal(decimal.NewFromInt(15))},
			},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
