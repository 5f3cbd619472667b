package seller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	internalorders "github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/internal/payouts"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
)

type stubPayouts struct {
	views  []payouts.View
	err    error
	status string
}

func (s *stubPayouts) List(ctx context.Context, principal auth.Principal, status string) ([]payouts.View, error) {
	s.status = status
	return s.views, s.err
}

type stubCoupons struct {
	coupons.Service

	created   coupons.CreateInput
	updated   coupons.UpdateInput
	deleted   uuid.UUID
	coupon    *models.Coupon
	err       error
	listedFor *uuid.UUID
}

func (s *stubCoupons) Create(ctx context.Context, principal auth.Principal, input coupons.CreateInput) (*models.Coupon, error) {
	s.created = input
	return s.coupon, s.err
}

func (s *stubCoupons) List(ctx context.Context, principal auth.Principal, productID *uuid.UUID) ([]models.Coupon, error) {
	s.listedFor = productID
	if s.coupon == nil {
		return nil, s.err
	}
	return []models.Coupon{*s.coupon}, s.err
}

func (s *stubCoupons) Update(ctx context.Context, principal auth.Principal, couponID uuid.UUID, input coupons.UpdateInput) (*models.Coupon, error) {
	s.updated = input
	return s.coupon, s.err
}

func (s *stubCoupons) Delete(ctx context.Context, principal auth.Principal, couponID uuid.UUID) error {
	s.deleted = couponID
	return s.err
}

type stubOrders struct {
	internalorders.Service

	report []internalorders.ProductSales
	err    error
}

func (s *stubOrders) SalesReport(ctx context.Context, principal auth.Principal) ([]internalorders.ProductSales, error) {
	return s.report, s.err
}

func sellerRequest(method, target, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithPrincipal(ctx, auth.Principal{UserID: uuid.New(), Role: enums.RoleSeller})
	return req.WithContext(ctx)
}

func TestPayoutsForwardsStatusFilter(t *testing.T) {
	svc := &stubPayouts{views: []payouts.View{{ID: uuid.New(), Amount: decimal.RequireFromString("16.20"), Status: enums.PayoutStatusPaid}}}
	resp := httptest.NewRecorder()

	Payouts(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodGet, "/api/v1/seller/payouts?status=paid", "", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.status != "paid" {
		t.Fatalf("status filter not forwarded: %q", svc.status)
	}
}

func TestPayoutsInvalidStatus(t *testing.T) {
	svc := &stubPayouts{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status")}
	resp := httptest.NewRecorder()

	Payouts(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodGet, "/api/v1/seller/payouts?status=bogus", "", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSalesEmptyReportIsArray(t *testing.T) {
	resp := httptest.NewRecorder()

	Sales(&stubOrders{}, nil).ServeHTTP(resp, sellerRequest(http.MethodGet, "/api/v1/seller/sales", "", nil))

	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"data":[]`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestCreateCoupon(t *testing.T) {
	productID := uuid.New()
	svc := &stubCoupons{coupon: &models.Coupon{
		ID:              uuid.New(),
		Code:            "SPRING10",
		DiscountPercent: decimal.NewFromInt(10),
		ProductID:       productID,
		ValidUntil:      time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	}}
	body := `{"code":"  SPRING10 ","discount_percent":10,"product_id":"` + productID.String() + `","valid_until":"2026-12-31"}`
	resp := httptest.NewRecorder()

	CreateCoupon(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodPost, "/api/v1/seller/coupons", body, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.created.Code != "SPRING10" || !svc.created.DiscountPercent.Equal(decimal.NewFromInt(10)) || svc.created.ValidUntil != "2026-12-31" {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	var envelope struct {
		Data coupons.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ProductID != productID {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
}

func TestCreateCouponRequiresProduct(t *testing.T) {
	resp := httptest.NewRecorder()

	CreateCoupon(&stubCoupons{}, nil).ServeHTTP(resp, sellerRequest(http.MethodPost, "/api/v1/seller/coupons", `{"code":"X","discount_percent":5,"valid_until":"2026-12-31"}`, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListCouponsByProduct(t *testing.T) {
	productID := uuid.New()
	svc := &stubCoupons{}
	resp := httptest.NewRecorder()

	ListCoupons(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodGet, "/api/v1/seller/coupons?product_id="+productID.String(), "", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listedFor == nil || *svc.listedFor != productID {
		t.Fatalf("product filter not forwarded")
	}
}

func TestUpdateCouponPartial(t *testing.T) {
	couponID := uuid.New()
	svc := &stubCoupons{coupon: &models.Coupon{ID: couponID, Code: "SPRING10"}}
	resp := httptest.NewRecorder()

	UpdateCoupon(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodPut, "/", `{"discount_percent":"25"}`, map[string]string{"couponId": couponID.String()}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.updated.Code != nil || svc.updated.ValidUntil != nil || svc.updated.DiscountPercent == nil {
		t.Fatalf("unexpected update input %+v", svc.updated)
	}
	if !svc.updated.DiscountPercent.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected percent %s", svc.updated.DiscountPercent)
	}
}

func TestDeleteCouponForeignIsForbidden(t *testing.T) {
	couponID := uuid.New()
	svc := &stubCoupons{err: pkgerrors.New(pkgerrors.CodeForbidden, "coupon belongs to another seller")}
	resp := httptest.NewRecorder()

	DeleteCoupon(svc, nil).ServeHTTP(resp, sellerRequest(http.MethodDelete, "/", "", map[string]string{"couponId": couponID.String()}))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.deleted != couponID {
		t.Fatalf("coupon id not forwarded")
	}
}

func TestDeleteCouponNoContent(t *testing.T) {
	resp := httptest.NewRecorder()

	DeleteCoupon(&stubCoupons{}, nil).ServeHTTP(resp, sellerRequest(http.MethodDelete, "/", "", map[string]string{"couponId": uuid.NewString()}))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}
