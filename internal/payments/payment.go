// Package payments is the ledger of consultation payments.
package payments

import "strings"

// Method is how a patient pays.
type Method string

const (
	MethodCredit Method = "credit"
	MethodDebit  Method = "debit"
	MethodPix    Method = "pix"
	MethodCash   Method = "cash"
)

var methodAliases = map[string]Method{
	"credit":   MethodCredit,
	"credito":  MethodCredit,
	"crédito":  MethodCredit,
	"debit":    MethodDebit,
	"debito":   MethodDebit,
	"débito":   MethodDebit,
	"pix":      MethodPix,
	"cash":     MethodCash,
	"dinheiro": MethodCash,
}

// ParseMethod normalizes a payment method name.
func ParseMethod(raw string) (Method, bool) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(raw))]
	return m, ok
}

// Valid reports whether m is one of the canonical methods.
func (m Method) Valid() bool {
	switch m {
	case MethodCredit, MethodDebit, MethodPix, MethodCash:
		return true
	}
	return false
}

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Payment is the financial record attached to one consultation.
// Date is "YYYY-MM-DD" and Time is "HH:MM".
type Payment struct {
	ID             string `json:"id"`
	AmountCents    int64  `json:"amount_cents"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Method         Method `json:"method"`
	Status         Status `json:"status"`
	ConsultationID string `json:"consultation_id"`
}

// Paid reports whether the payment has been settled.
func (p Payment) Paid() bool {
	return p.Status == StatusPaid
}
