package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
)

type couponBody struct {
	Code    string  `json:"code" validate:"required,max=64,coupon_code"`
	Rename  *string `json:"rename" validate:"omitempty,coupon_code"`
	Comment string  `json:"-"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/cart/coupons", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsPaddedCouponCode(t *testing.T) {
	var dest couponBody
	if err := DecodeJSONBody(postJSON(`{"code":"  SPRING10 "}`), &dest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.Code != "  SPRING10 " {
		t.Fatalf("decode should not rewrite the value, got %q", dest.Code)
	}
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
		field   string
	}{
		"empty body":     {body: "", message: "request body is required"},
		"unknown field":  {body: `{"code":"A","seller":"x"}`, message: "invalid request body"},
		"two objects":    {body: `{"code":"A"}{"code":"B"}`, message: "single json object"},
		"inner space":    {body: `{"code":"SPRING 10"}`, message: "validation failed", field: "code"},
		"blank code":     {body: `{"code":"   "}`, message: "validation failed", field: "code"},
		"bad rename":     {body: `{"code":"A","rename":"a\tb"}`, message: "validation failed", field: "rename"},
		"too large body": {body: `{"code":"` + strings.Repeat("A", MaxBodyBytes) + `"}`, message: "request body too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var dest couponBody
			err := DecodeJSONBody(postJSON(tc.body), &dest)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("expected %q in %q", tc.message, err.Error())
			}
			if tc.field == "" {
				return
			}
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			if !ok || details[tc.field] == "" {
				t.Fatalf("expected detail for %s, got %#v", tc.field, pkgerrors.As(err).Details())
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  SAVE10  ", 64, "SAVE10"},
		{"SA\x00VE\x1b10", 64, "SAVE10"},
		{"ÉTÉ2026", 3, "ÉTÉ"},
		{"AB CD", 3, "AB"},
		{" keep ", 0, "keep"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	got, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), "limit", 20, 1, 100)
	if err != nil || got != 20 {
		t.Fatalf("expected default 20, got %d err=%v", got, err)
	}
}

func TestParseOptionalQueryUUID(t *testing.T) {
	id := uuid.New()
	got, err := ParseOptionalQueryUUID(httptest.NewRequest(http.MethodGet, "/api/v1/seller/coupons?product_id="+id.String(), nil), "product_id")
	if err != nil || got == nil || *got != id {
		t.Fatalf("unexpected result %v err=%v", got, err)
	}
	got, err = ParseOptionalQueryUUID(httptest.NewRequest(http.MethodGet, "/api/v1/seller/coupons", nil), "product_id")
	if err != nil || got != nil {
		t.Fatalf("absent filter should be nil, got %v err=%v", got, err)
	}
	if _, err := ParseOptionalQueryUUID(httptest.NewRequest(http.MethodGet, "/api/v1/seller/coupons?product_id=nope", nil), "product_id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id.String(), nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("unexpected result %s err=%v", got, err)
	}
	if _, err := ParseUUIDParam(req, "couponId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected missing param error, got %v", err)
	}
}
