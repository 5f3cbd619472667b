package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitKeepsFeePlusNetEqualToGross(t *testing.T) {
	cases := []struct {
		gross string
		fee   string
		net   string
	}{
		{gross: "10.00", fee: "1.00", net: "9.00"},
		{gross: "9.99", fee: "1.00", net: "8.99"},
		{gross: "18.00", fee: "1.80", net: "16.20"},
		{gross: "0.05", fee: "0.01", net: "0.04"},
		{gross: "33.33", fee: "3.33", net: "30.00"},
		{gross: "0.00", fee: "0.00", net: "0.00"},
	}

	for _, tc := range cases {
		gross := decimal.RequireFromString(tc.gross)
		fee, net := Split(gross)
		if !fee.Equal(decimal.RequireFromString(tc.fee)) {
			t.Fatalf("gross %s: expected fee %s, got %s", tc.gross, tc.fee, fee)
		}
		if !net.Equal(decimal.RequireFromString(tc.net)) {
			t.Fatalf("gross %s: expected net %s, got %s", tc.gross, tc.net, net)
		}
		if !fee.Add(net).Equal(gross) {
			t.Fatalf("gross %s: fee+net=%s", tc.gross, fee.Add(net))
		}
	}
}

func TestApplyDiscount(t *testing.T) {
	got := ApplyDiscount(decimal.RequireFromString("20.00"), decimal.NewFromInt(10))
	if !got.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("expected 18.00, got %s", got)
	}

	got = ApplyDiscount(decimal.RequireFromString("9.99"), decimal.NewFromInt(15))
	if !got.Equal(decimal.RequireFromString("8.49")) {
		t.Fatalf("expected 8.49, got %s", got)
	}

	got = ApplyDiscount(decimal.RequireFromString("12.50"), decimal.NewFromInt(100))
	if !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	if got := Round2(decimal.RequireFromString("1.005")); !got.Equal(decimal.RequireFromString("1.01")) {
		t.Fatalf("expected 1.01, got %s", got)
	}
	if got := Round2(decimal.RequireFromString("-1.005")); !got.Equal(decimal.RequireFromString("-1.01")) {
		t.Fatalf("expected -1.01, got %s", got)
	}
}

func TestMinorUnits(t *testing.T) {
	cents, err := ToMinorUnits(decimal.RequireFromString("18.00"))
	if err != nil || cents != 1800 {
		t.Fatalf("expected 1800, got %d (%v)", cents, err)
	}
	cents, err = ToMinorUnits(PlatformFee(decimal.RequireFromString("9.99")))
	if err != nil || cents != 100 {
		t.Fatalf("expected 100, got %d (%v)", cents, err)
	}
	if got := FromMinorUnits(1620); !got.Equal(decimal.RequireFromString("16.20")) {
		t.Fatalf("expected 16.20, got %s", got)
	}
}

func TestSum(t *testing.T) {
	got := Sum(decimal.RequireFromString("1.10"), decimal.RequireFromString("2.20"))
	if !got.Equal(decimal.RequireFromString("3.30")) {
		t.Fatalf("expected 3.30, got %s", got)
	}
	if !Sum().IsZero() {
		t.Fatal("empty sum should be zero")
	}
}
