package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/soundmarket-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestCartEntriesMigrationEnforcesOneEntryPerProduct(t *testing.T) {
	assertContains(t, readMigration(t, "create_cart_entries"), []string{
		"CREATE TABLE IF NOT EXISTS cart_entries",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_entries_buyer_product ON cart_entries (buyer_id, product_id)",
		"DROP TABLE IF EXISTS cart_entries",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"status order_status NOT NULL DEFAULT 'pending'",
		"ux_orders_external_payment_reference",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity = 1)",
		"DROP TABLE IF EXISTS order_items",
	})
}

func TestPayoutsMigrationKeysOnOrderAndSeller(t *testing.T) {
	assertContains(t, readMigration(t, "create_payouts"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payouts_order_seller ON payouts (order_id, seller_id)",
		"CHECK (amount + platform_fee = gross_amount)",
		"stripe_event_id text NULL",
		"DROP TABLE IF EXISTS payouts",
	})
}

func TestCouponsMigrationBoundsDiscount(t *testing.T) {
	assertContains(t, readMigration(t, "create_coupons"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_coupons_code ON coupons (code)",
		"CHECK (discount_percent > 0 AND discount_percent <= 100)",
	})
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Index!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payout_index.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
