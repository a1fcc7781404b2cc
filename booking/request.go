package booking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
)

type TreatmentRequest struct {
	TreatmentId int             `json:"treatment_id" validate:"required,gt=0"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
}

// Request is the POST /booking body.
type Request struct {
	CustomerCode  string             `json:"customer_id" validate:"omitempty,max=32"`
	CustomerName  string             `json:"customer_name" validate:"max=200"`
	CustomerPhone string             `json:"customer_phone" validate:"omitempty,max=32"`
	Treatments    []TreatmentRequest `json:"treatments" validate:"required,min=1,dive"`
	Promotions    []int              `json:"promotions" validate:"dive,gt=0"`
	SessionDate   string             `json:"session_date"`
	SessionTime   string             `json:"session_time"`
	Note          *string            `json:"note"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
}

type Response struct {
	Success       bool   `json:"success"`
	InvoiceNo     string `json:"invoice_no,omitempty"`
	SellInvoiceId int    `json:"sell_invoice_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

var validate = validator.New()

// Validate checks the request shape. Session date/time are not checked here; malformed values
// fall back to the processing time.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		fields := utils.ProcessValidationErrors(err)
		if len(fields) == 0 {
			return &utils.ValidationError{Op: "Request.Validate", Err: err}
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s failed on %s", k, fields[k]))
		}
		return utils.NewValidationError("Request.Validate", "%s", strings.Join(parts, "; "))
	}
	for i, t := range r.Treatments {
		if t.Price.IsNegative() {
			return utils.NewValidationError("Request.Validate", "treatments[%d].price must not be negative", i)
		}
	}
	return nil
}
