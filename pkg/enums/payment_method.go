package enums

// PaymentMethod tags the provider that settles an order. Stripe is the only one.
type PaymentMethod string

const PaymentMethodStripe PaymentMethod = "stripe"

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentMethodStripe
}
