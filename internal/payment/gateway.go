package payment

import (
	"context"
	"strings"
)

// Method identifies how the customer wants to pay
type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
	MethodPayPal     Method = "paypal"
	MethodApplePay   Method = "apple_pay"
	MethodGooglePay  Method = "google_pay"
)

// Request describes a capture to run against a backend
type Request struct {
	BookingID   string  `json:"booking_id"`
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Method      Method  `json:"method"`
}

// RefundRequest describes a refund against a previously captured payment
type RefundRequest struct {
	OriginalReference string  `json:"original_reference"`
	Amount            float64 `json:"amount"`
	Reason            string  `json:"reason"`
}

// Outcome is the immutable result of a capture or refund attempt. A
// successful outcome always carries a reference id; a failed one never does.
type Outcome struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id,omitempty"`
	Message     string `json:"message"`
}

// Succeeded builds a success outcome
func Succeeded(referenceID, message string) *Outcome {
	return &Outcome{Success: true, ReferenceID: referenceID, Message: message}
}

// Declined builds a failure outcome
func Declined(message string) *Outcome {
	return &Outcome{Success: false, Message: message}
}

// Backend is one interchangeable payment gateway. Implementations must keep
// call latency bounded by honoring the context deadline; the router contains
// any error or panic escaping a call and counts it against the backend's
// health.
type Backend interface {
	Capture(ctx context.Context, req *Request) (*Outcome, error)
	Refund(ctx context.Context, req *RefundRequest) (*Outcome, error)
	ProbeHealth(ctx context.Context) bool
	Name() string
}

// Capabilities is routing metadata declared at registration time
type Capabilities struct {
	// Methods this backend can capture directly
	Methods []Method
	// HighValue marks the backend preferred for large transactions
	HighValue bool
}

// SupportsMethod reports whether the capability set covers a payment method
func (c Capabilities) SupportsMethod(m Method) bool {
	for _, method := range c.Methods {
		if method == m {
			return true
		}
	}
	return false
}

// RefInferenceFunc maps a payment reference back to the backend name that
// issued it, or "" when the naming convention is unrecognized. The default
// rule understands the Stripe and PayPal reference prefixes.
type RefInferenceFunc func(reference string) string

// DefaultRefInference infers the issuing backend from well-known reference
// prefixes ("pi_" for Stripe, "PAYID"/"PAY-" for PayPal)
func DefaultRefInference(reference string) string {
	switch {
	case strings.HasPrefix(reference, "pi_"):
		return "stripe"
	case strings.HasPrefix(reference, "PAYID"), strings.HasPrefix(reference, "PAY-"):
		return "paypal"
	default:
		return ""
	}
}
