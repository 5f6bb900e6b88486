package workflow

import (
	"strings"
	"testing"
	"time"
)

func TestParseStatementCSV(t *testing.T) {
	csv := strings.Join([]string{
		"date,description,reference,amount",
		"2026-01-05,DEPOSITO CLIENTES,D-1001,12830.00",
		"2026-01-12,COMISION MENSUAL,F-2291,-500.00",
		"2026-01-20,AJUSTE,A-1,0.00",
	}, "\n")

	rows, err := parseStatementCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !rows[0].Amount.Equal(amt("12830.00")) || rows[0].Description != "DEPOSITO CLIENTES" {
		t.Fatalf("row 0 parsed wrong: %+v", rows[0])
	}
	if !rows[1].Amount.Equal(amt("-500.00")) {
		t.Fatalf("withdrawal sign lost: %s", rows[1].Amount)
	}
	wantDate := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if !rows[0].TxnDate.Equal(wantDate) {
		t.Fatalf("row 0 date %s, want %s", rows[0].TxnDate, wantDate)
	}
}

func TestParseStatementCSV_NoHeader(t *testing.T) {
	rows, err := parseStatementCSV(strings.NewReader("2026-01-05,PAGO,R-1,100.00\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestParseStatementCSV_RejectsShortRow(t *testing.T) {
	_, err := parseStatementCSV(strings.NewReader("2026-01-05,PAGO,100.00\n"))
	if err == nil {
		t.Fatal("three-column row accepted")
	}
}

func TestParseStatementCSV_RejectsBadAmount(t *testing.T) {
	_, err := parseStatementCSV(strings.NewReader("2026-01-05,PAGO,R-1,abc\n"))
	if err == nil {
		t.Fatal("non-numeric amount accepted")
	}
}

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML

<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260105120000
<TRNAMT>12830.00
<FITID>D-1001
<NAME>DEPOSITO CLIENTES
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260112
<TRNAMT>-500.00
<FITID>F-2291
<MEMO>COMISION MENSUAL
</STMTTRN>
</BANKTRANLIST>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestParseStatementOFX(t *testing.T) {
	rows, err := parseStatementOFX(strings.NewReader(sampleOFX))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	deposit := rows[0]
	if !deposit.Amount.Equal(amt("12830.00")) || deposit.Reference != "D-1001" || deposit.Description != "DEPOSITO CLIENTES" {
		t.Fatalf("deposit parsed wrong: %+v", deposit)
	}
	if !deposit.TxnDate.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DTPOSTED with time suffix parsed wrong: %s", deposit.TxnDate)
	}

	fee := rows[1]
	if !fee.Amount.Equal(amt("-500.00")) {
		t.Fatalf("fee amount %s, want -500.00", fee.Amount)
	}
	if fee.Description != "COMISION MENSUAL" {
		t.Fatalf("MEMO fallback not applied: %q", fee.Description)
	}
}

func TestOFXValue_StripsOptionalCloseTag(t *testing.T) {
	if got := ofxValue("<TRNAMT>-500.00</TRNAMT>", "<TRNAMT>"); got != "-500.00" {
		t.Fatalf("got %q", got)
	}
	if got := ofxValue("<NAME>DEPOSITO  ", "<NAME>"); got != "DEPOSITO" {
		t.Fatalf("got %q", got)
	}
}
