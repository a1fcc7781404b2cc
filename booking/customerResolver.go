package booking

import (
	"context"
	"strings"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
)

type CustomerStore interface {
	// FindCustomerByCode returns nil, nil when no customer has code.
	FindCustomerByCode(ctx context.Context, code string) (*models.Customer, error)
	NextCustomerSequence(ctx context.Context) (int64, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
}

type CustomerResolver struct {
	Store       CustomerStore
	CodePrefix  string
	PhoneRegion string
}

// Resolve reuses the customer with code when one exists, otherwise inserts a new customer with a
// zero wallet balance and a generated code.
func (r *CustomerResolver) Resolve(ctx context.Context, code string, name string, phone string) (*models.Customer, error) {
	code = strings.TrimSpace(code)
	if code != "" {
		existing, err := r.Store.FindCustomerByCode(ctx, code)
		if err != nil {
			return nil, utils.NewResolutionError("CustomerResolver.FindCustomerByCode", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	var normalizedPhone string
	if strings.TrimSpace(phone) != "" {
		p, err := utils.NormalizePhoneNumber(phone, r.PhoneRegion)
		if err != nil {
			return nil, utils.NewValidationError("CustomerResolver.Resolve", "customer_phone: %v", err)
		}
		normalizedPhone = p
	}

	seqNo, err := r.Store.NextCustomerSequence(ctx)
	if err != nil {
		return nil, utils.NewResolutionError("CustomerResolver.NextCustomerSequence", err)
	}
	customer := &models.Customer{
		CustomerCode:       utils.FormatSequence(r.CodePrefix, seqNo),
		SequenceNo:         seqNo,
		FullName:           strings.TrimSpace(name),
		Phone:              normalizedPhone,
		MemberWalletRemain: decimal.Zero,
	}
	if err := r.Store.CreateCustomer(ctx, customer); err != nil {
		return nil, utils.NewResolutionError("CustomerResolver.CreateCustomer", err)
	}
	return customer, nil
}
