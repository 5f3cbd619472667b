package payouts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		gross string
		fee   string
		net   string
	}{
		{gross: "18.00", fee: "1.80", net: "16.20"},
		{gross: "10.00", fee: "1.00", net: "9.00"},
		{gross: "9.99", fee: "1.00", net: "8.99"},
		{gross: "0.04", fee: "0.00", net: "0.04"},
		{gross: "0.05", fee: "0.01", net: "0.04"},
	}
	for _, tc := range cases {
		seller := uuid.New()
		splits := Calculate(map[uuid.UUID]decimal.Decimal{seller: decimal.RequireFromString(tc.gross)})
		got := splits[seller]
		if !got.Fee.Equal(decimal.RequireFromString(tc.fee)) || !got.Net.Equal(decimal.RequireFromString(tc.net)) {
			t.Fatalf("gross %s: expected fee %s net %s, got fee %s net %s", tc.gross, tc.fee, tc.net, got.Fee, got.Net)
		}
		if !got.Fee.Add(got.Net).Equal(got.Gross) {
			t.Fatalf("gross %s: fee + net != gross", tc.gross)
		}
	}
}

func TestCalculateKeepsSellersSeparate(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	splits := Calculate(map[uuid.UUID]decimal.Decimal{
		a: decimal.RequireFromString("20.00"),
		b: decimal.RequireFromString("15.00"),
	})
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}
	if !splits[b].Net.Equal(decimal.RequireFromString("13.50")) {
		t.Fatalf("unexpected net for b: %s", splits[b].Net)
	}
}

func TestCalculateEmpty(t *testing.T) {
	if got := Calculate(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
