package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/petfriendlyvet/ledger_backend/workflow"
	"github.com/shopspring/decimal"
)

// Posting lifecycle regression harness.
//
// Covers the properties only a real database can witness:
// - draft -> posted via the column-map update path through the entry hooks
// - idempotent posting (re-posting a posted entry changes nothing)
// - void symmetry (balances after void equal balances before posting)
// - posted-entry immutability outside the void linkage
// - the period closure gate, with an adjacent open period still accepting
// - cached balance == recomputed balance after every posting
//
// Usage (requires Docker):
//
//	INTEGRATION_TESTS=1 go test ./workflow -run PostingLifecycle -v

func TestPostingLifecycle_PostVoidClose(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "ledger_test")

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		t.Fatal("database not connected")
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx = utils.SetUserNameInContext(ctx, "lifecycle-test")

	bank := mustCreateAccount(t, ctx, "1010", "Operating Account", models.AccountTypeAsset, true)
	revenue := mustCreateAccount(t, ctx, "4000", "Service Revenue", models.AccountTypeRevenue, false)
	mustCreateAccount(t, ctx, config.GetLedgerSettings().RetainedEarningsCode, "Retained Earnings", models.AccountTypeEquity, false)

	now := time.Now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	year, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      fmt.Sprintf("FY%d", now.Year()),
		StartDate: yearStart,
	})
	if err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}

	// Draft -> posted. The post goes through the hook as a column-map update
	// on an empty receiver; the hook must resolve the row from the statement.
	draft, err := models.CreateDraftEntry(ctx, &models.NewJournalEntry{
		EntryDate:   now,
		Description: "consultation fee",
		Lines: []models.NewJournalLine{
			{AccountId: bank.ID, Debit: amtT(t, "500.00")},
			{AccountId: revenue.ID, Credit: amtT(t, "500.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraftEntry: %v", err)
	}
	posted, err := workflow.PostDraftEntry(ctx, draft.ID)
	if err != nil {
		t.Fatalf("PostDraftEntry: %v", err)
	}
	if posted.Status != models.EntryStatusPosted || posted.EntryNumber == "" {
		t.Fatalf("posted entry in wrong state: status=%s number=%q", posted.Status, posted.EntryNumber)
	}

	// Idempotent posting: the second call is a no-op returning the entry.
	again, err := workflow.PostDraftEntry(ctx, draft.ID)
	if err != nil {
		t.Fatalf("re-posting errored: %v", err)
	}
	if again.EntryNumber != posted.EntryNumber {
		t.Fatalf("re-posting changed the number: %q vs %q", again.EntryNumber, posted.EntryNumber)
	}
	assertCacheMatchesRecompute(t, ctx, bank.ID, "500.00")
	assertCacheMatchesRecompute(t, ctx, revenue.ID, "500.00")

	// Posted entries accept nothing but the void linkage.
	err = db.Model(&models.JournalEntry{}).Where("id = ?", posted.ID).
		Update("description", "tampered").Error
	var integrity *models.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("description update on posted entry: got %v, want IntegrityError", err)
	}

	// Void: the reversal nets every account back to its pre-posting balance,
	// and the original's linkage update also runs through the hook.
	reversal, err := workflow.VoidEntry(ctx, posted.ID, "billed in error")
	if err != nil {
		t.Fatalf("VoidEntry: %v", err)
	}
	if reversal.IsReversal == nil || !*reversal.IsReversal {
		t.Fatal("reversal not flagged as reversal")
	}
	voided, err := models.GetEntry(ctx, posted.ID)
	if err != nil {
		t.Fatalf("reload voided: %v", err)
	}
	if voided.Status != models.EntryStatusVoided {
		t.Fatalf("original status %s, want voided", voided.Status)
	}
	if voided.ReversedByEntryId == nil || *voided.ReversedByEntryId != reversal.ID {
		t.Fatal("void linkage not written")
	}
	assertCacheMatchesRecompute(t, ctx, bank.ID, "0.00")
	assertCacheMatchesRecompute(t, ctx, revenue.ID, "0.00")

	// Voiding twice returns the existing reversal.
	reversalAgain, err := workflow.VoidEntry(ctx, posted.ID, "billed in error")
	if err != nil {
		t.Fatalf("second void errored: %v", err)
	}
	if reversalAgain.ID != reversal.ID {
		t.Fatalf("second void minted a new reversal: %d vs %d", reversalAgain.ID, reversal.ID)
	}

	// Period closure gate. Close a month other than the current one, then
	// confirm a posting dated inside it is rejected while today's open
	// period still accepts.
	gate := gatePeriod(t, year, now)
	if _, err := workflow.ClosePeriod(ctx, gate.ID); err != nil {
		t.Fatalf("ClosePeriod: %v", err)
	}

	_, err = workflow.PostNewEntry(ctx, &models.NewJournalEntry{
		EntryDate:   gate.StartDate.AddDate(0, 0, 10),
		Description: "backdated into closed period",
		Lines: []models.NewJournalLine{
			{AccountId: bank.ID, Debit: amtT(t, "10.00")},
			{AccountId: revenue.ID, Credit: amtT(t, "10.00")},
		},
	})
	var closed *models.PeriodClosedError
	if !errors.As(err, &closed) {
		t.Fatalf("posting into closed period: got %v, want PeriodClosedError", err)
	}

	if _, err := workflow.PostNewEntry(ctx, &models.NewJournalEntry{
		EntryDate:   now,
		Description: "open period still accepts",
		Lines: []models.NewJournalLine{
			{AccountId: bank.ID, Debit: amtT(t, "25.00")},
			{AccountId: revenue.ID, Credit: amtT(t, "25.00")},
		},
	}); err != nil {
		t.Fatalf("posting into open period: %v", err)
	}
	assertCacheMatchesRecompute(t, ctx, bank.ID, "25.00")
}

func mustCreateAccount(t *testing.T, ctx context.Context, code, name string, accType models.AccountType, isBank bool) *models.Account {
	t.Helper()
	account, err := models.CreateAccount(ctx, &models.NewAccount{
		Code:        code,
		Name:        name,
		AccountType: accType,
		IsBank:      isBank,
	})
	if err != nil {
		t.Fatalf("CreateAccount %s: %v", code, err)
	}
	return account
}

// assertCacheMatchesRecompute checks the cached column against the recomputed
// sum, and both against the expected figure.
func assertCacheMatchesRecompute(t *testing.T, ctx context.Context, accountId int, want string) {
	t.Helper()
	account, err := models.GetAccount(ctx, accountId)
	if err != nil {
		t.Fatalf("GetAccount %d: %v", accountId, err)
	}
	asOf := time.Now().UTC().AddDate(0, 0, 1)
	recomputed, err := models.GetAccountBalance(ctx, accountId, asOf)
	if err != nil {
		t.Fatalf("GetAccountBalance %d: %v", accountId, err)
	}
	if !account.Balance.Equal(recomputed) {
		t.Fatalf("account %d cache %s != recomputed %s", accountId, account.Balance, recomputed)
	}
	if !recomputed.Equal(amtT(t, want)) {
		t.Fatalf("account %d balance %s, want %s", accountId, recomputed, want)
	}
}

// gatePeriod picks a period of the year that does not contain now, so closing
// it cannot interfere with postings dated today.
func gatePeriod(t *testing.T, year *models.FiscalYear, now time.Time) *models.AccountingPeriod {
	t.Helper()
	for i := range year.Periods {
		p := &year.Periods[i]
		if now.Month() != p.StartDate.Month() {
			return p
		}
	}
	t.Fatal("no period outside the current month")
	return nil
}

func amtT(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
