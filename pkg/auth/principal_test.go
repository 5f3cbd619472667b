package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
)

func TestRequireByRole(t *testing.T) {
	buyer := Principal{UserID: uuid.New(), Role: enums.RoleBuyer}
	seller := Principal{UserID: uuid.New(), Role: enums.RoleSeller}
	admin := Principal{UserID: uuid.New(), Role: enums.RoleAdmin}

	cases := []struct {
		name       string
		principal  Principal
		capability Capability
		allowed    bool
	}{
		{"buyer checkout", buyer, CapCheckout, true},
		{"buyer download", buyer, CapDownload, true},
		{"buyer payouts", buyer, CapViewPayouts, false},
		{"seller payouts", seller, CapViewPayouts, true},
		{"seller coupons", seller, CapManageCoupons, true},
		{"seller checkout", seller, CapCheckout, false},
		{"admin checkout", admin, CapCheckout, true},
		{"admin payouts", admin, CapViewPayouts, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Require(tc.principal, tc.capability)
			if tc.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tc.allowed && !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
		})
	}
}

func TestRequireWithoutPrincipal(t *testing.T) {
	if err := Require(Principal{}, CapCheckout); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNewPrincipalValidates(t *testing.T) {
	if _, err := NewPrincipal(uuid.Nil, enums.RoleBuyer); err == nil {
		t.Fatal("expected nil user id to fail")
	}
	if _, err := NewPrincipal(uuid.New(), enums.Role("guest")); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
