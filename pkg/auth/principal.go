package auth

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
)

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// NewPrincipal validates the identity pair.
func NewPrincipal(userID uuid.UUID, role enums.Role) (Principal, error) {
	if userID == uuid.Nil {
		return Principal{}, fmt.Errorf("user id is required")
	}
	if !role.IsValid() {
		return Principal{}, fmt.Errorf("invalid role %q", role)
	}
	return Principal{UserID: userID, Role: role}, nil
}

// IsZero reports whether no caller was resolved.
func (p Principal) IsZero() bool {
	return p.UserID == uuid.Nil
}

// Capability names one guarded action of the checkout pipeline.
type Capability string

const (
	CapCheckout        Capability = "checkout"
	CapManageCart      Capability = "manage_cart"
	CapManageOwnOrders Capability = "manage_own_orders"
	CapDownload        Capability = "download"
	CapViewPayouts     Capability = "view_payouts"
	CapViewSales       Capability = "view_sales"
	CapManageCoupons   Capability = "manage_coupons"
)

var capabilitiesByRole = map[enums.Role]map[Capability]struct{}{
	enums.RoleBuyer: {
		CapCheckout:        {},
		CapManageCart:      {},
		CapManageOwnOrders: {},
		CapDownload:        {},
	},
	enums.RoleSeller: {
		CapViewPayouts:   {},
		CapViewSales:     {},
		CapManageCoupons: {},
	},
}

// Can reports whether the principal holds capability. Admins hold every capability.
func (p Principal) Can(capability Capability) bool {
	if p.IsZero() {
		return false
	}
	if p.Role == enums.RoleAdmin {
		return true
	}
	_, ok := capabilitiesByRole[p.Role][capability]
	return ok
}

// Require is the shared capability check for every core operation.
func Require(p Principal, capability Capability) error {
	if p.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !p.Can(capability) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot %s", p.Role, capability)
	}
	return nil
}
