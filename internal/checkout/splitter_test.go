package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubValidator struct {
	percents map[string]decimal.Decimal
}

func (s stubValidator) Validate(_ context.Context, _ uuid.UUID, code string, _ time.Time) (decimal.Decimal, error) {
	if pct, ok := s.percents[code]; ok {
		return pct, nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
}

func product(seller uuid.UUID, price string) models.Product {
	return models.Product{ID: uuid.New(), SellerID: seller, Title: "p-" + price, Price: decimal.RequireFromString(price)}
}

func seller(account string) models.User {
	user := models.User{ID: uuid.New()}
	if account != "" {
		user.StripeAccountID = &account
	}
	return user
}

func TestSplitGroupsBySellerInFirstAppearanceOrder(t *testing.T) {
	s1, s2 := seller("acct_1"), seller("acct_2")
	a := product(s2.ID, "15.00")
	b := product(s1.ID, "20.00")
	c := product(s2.ID, "5.50")

	in := SplitInput{
		Entries:  []models.CartEntry{{ProductID: a.ID}, {ProductID: b.ID}, {ProductID: c.ID}},
		Products: map[uuid.UUID]models.Product{a.ID: a, b.ID: b, c.ID: c},
		Sellers:  map[uuid.UUID]models.User{s1.ID: s1, s2.ID: s2},
	}
	result, err := NewSplitter(stubValidator{}).Split(context.Background(), in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(result.Partitions) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(result.Partitions))
	}
	first := result.Partitions[0]
	if first.SellerID != s2.ID || len(first.Items) != 2 || first.Items[0].Product.ID != a.ID {
		t.Fatalf("unexpected first partition %+v", first)
	}
	if !first.Total.Equal(decimal.RequireFromString("20.50")) {
		t.Fatalf("expected total 20.50, got %s", first.Total)
	}
	if first.Destination != "acct_2" {
		t.Fatalf("unexpected destination %s", first.Destination)
	}
}

func TestSplitAppliesCouponsAndRecordsRejections(t *testing.T) {
	s1 := seller("acct_1")
	a := product(s1.ID, "20.00")
	b := product(s1.ID, "15.00")

	in := SplitInput{
		Entries:  []models.CartEntry{{ProductID: a.ID}, {ProductID: b.ID}},
		Products: map[uuid.UUID]models.Product{a.ID: a, b.ID: b},
		Sellers:  map[uuid.UUID]models.User{s1.ID: s1},
		Coupons:  map[uuid.UUID]string{a.ID: "SAVE10", b.ID: "BOGUS"},
	}
	validator := stubValidator{percents: map[string]decimal.Decimal{"SAVE10": decimal.NewFromInt(10)}}
	result, err := NewSplitter(validator).Split(context.Background(), in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	items := result.Partitions[0].Items
	if !items[0].Price.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("expected discounted 18.00, got %s", items[0].Price)
	}
	if !items[1].Price.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected catalog 15.00, got %s", items[1].Price)
	}
	if _, ok := result.RejectedCoupons[b.ID]; !ok {
		t.Fatalf("expected rejected coupon for %s", b.ID)
	}
	if !result.Partitions[0].Total.Equal(decimal.RequireFromString("33.00")) {
		t.Fatalf("unexpected total %s", result.Partitions[0].Total)
	}
}

func TestSplitRoundsDiscountHalfAwayFromZero(t *testing.T) {
	s1 := seller("acct_1")
	a := product(s1.ID, "9.99")
	in := SplitInput{
		Entries:  []models.CartEntry{{ProductID: a.ID}},
		Products: map[uuid.UUID]models.Product{a.ID: a},
		Sellers:  map[uuid.UUID]models.User{s1.ID: s1},
		Coupons:  map[uuid.UUID]string{a.ID: "HALF"},
	}
	validator := stubValidator{percents: map[string]decimal.Decimal{"HALF": decimal.NewFromInt(50)}}
	result, err := NewSplitter(validator).Split(context.Background(), in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := result.Partitions[0].Items[0].Price; !got.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected 5.00, got %s", got)
	}
}

func TestSplitSkipsSellersWithoutDestination(t *testing.T) {
	payable, unpayable := seller("acct_1"), seller("")
	a := product(unpayable.ID, "10.00")
	b := product(payable.ID, "12.00")
	in := SplitInput{
		Entries:  []models.CartEntry{{ProductID: a.ID}, {ProductID: b.ID}},
		Products: map[uuid.UUID]models.Product{a.ID: a, b.ID: b},
		Sellers:  map[uuid.UUID]models.User{payable.ID: payable, unpayable.ID: unpayable},
	}
	result, err := NewSplitter(nil).Split(context.Background(), in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(result.Partitions) != 1 || result.Partitions[0].SellerID != payable.ID {
		t.Fatalf("unexpected partitions %+v", result.Partitions)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipNoPayoutDestination {
		t.Fatalf("unexpected skipped %+v", result.Skipped)
	}
}

func TestSplitEmptyAfterFilteringIsValidationError(t *testing.T) {
	s1 := seller("acct_1")
	deleted := product(s1.ID, "10.00")
	deleted.IsDeleted = true
	in := SplitInput{
		Entries:  []models.CartEntry{{ProductID: deleted.ID}, {ProductID: uuid.New()}},
		Products: map[uuid.UUID]models.Product{deleted.ID: deleted},
		Sellers:  map[uuid.UUID]models.User{s1.ID: s1},
	}
	_, err := NewSplitter(nil).Split(context.Background(), in)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
