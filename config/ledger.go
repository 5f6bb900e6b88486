package config

import "os"

// LedgerSettings is process-wide ledger configuration. It is loaded once at
// startup from the environment and passed around by value, not stored as a
// settings table row, so there is exactly one source of truth and no
// read-modify-write races on a "current settings" record.
type LedgerSettings struct {
	// RetainedEarningsCode is the account code the period/year close rolls
	// net income into.
	RetainedEarningsCode string
	// APControlCode / ARControlCode are the control accounts the subledgers
	// post against.
	APControlCode string
	ARControlCode string
	// BankMatchWindowDays is the +/- date window for statement auto-matching.
	BankMatchWindowDays int
	// BaseCurrencyCode is display-only; the ledger itself is single-currency.
	BaseCurrencyCode string
}

var ledgerSettings LedgerSettings

func GetLedgerSettings() LedgerSettings {
	return ledgerSettings
}

// LoadLedgerSettings reads settings from env with production defaults.
// Call once from main() before any posting.
func LoadLedgerSettings() LedgerSettings {
	ledgerSettings = LedgerSettings{
		RetainedEarningsCode: envOr("LEDGER_RETAINED_EARNINGS_CODE", "3200"),
		APControlCode:        envOr("LEDGER_AP_CONTROL_CODE", "2000"),
		ARControlCode:        envOr("LEDGER_AR_CONTROL_CODE", "1200"),
		BankMatchWindowDays:  intFromEnv("LEDGER_BANK_MATCH_WINDOW_DAYS", 5),
		BaseCurrencyCode:     envOr("LEDGER_BASE_CURRENCY", "MXN"),
	}
	return ledgerSettings
}

// SetLedgerSettingsForTest overrides settings in-process. Test helper only.
func SetLedgerSettingsForTest(s LedgerSettings) {
	ledgerSettings = s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	// Defaults so DB-free unit tests and tools see sane settings without
	// calling LoadLedgerSettings.
	ledgerSettings = LedgerSettings{
		RetainedEarningsCode: "3200",
		APControlCode:        "2000",
		ARControlCode:        "1200",
		BankMatchWindowDays:  5,
		BaseCurrencyCode:     "MXN",
	}
}
