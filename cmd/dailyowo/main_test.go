package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"dailyowo/internal/core"
	applog "dailyowo/internal/log"
	"dailyowo/internal/taxonomy"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	got, err := parseTime("", now)
	if err != nil || !got.Equal(now) {
		t.Fatalf("empty input: expected now, got %v (err=%v)", got, err)
	}

	got, err = parseTime("2025-04-01", now)
	if err != nil || !got.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date only: got %v (err=%v)", got, err)
	}

	got, err = parseTime("2025-04-01T10:30:00Z", now)
	if err != nil || !got.Equal(time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: got %v (err=%v)", got, err)
	}

	if _, err := parseTime("01/04/2025", now); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestParseAllocations(t *testing.T) {
	got, err := parseAllocations([]string{"housing=1500", " food = 400.555 ", "savings=0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]float64{"housing": 1500, "food": 400.56, "savings": 0}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: expected %v, got %v", k, v, got[k])
		}
	}

	bad := [][]string{{"housing"}, {"=100"}, {"food=abc"}, {"food=-5"}}
	for _, in := range bad {
		if _, err := parseAllocations(in); err == nil {
			t.Fatalf("expected error for %v", in)
		}
	}
}

func TestVersionSkipsInitialisation(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionFlagsRequireUserAndAmount(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	f := txFlags{amount: "10", kind: "expense", currency: "usd"}
	if _, err := f.transaction(now); err == nil {
		t.Fatalf("expected error without user")
	}

	f.userID = "u1"
	f.amount = "-1"
	if _, err := f.transaction(now); err == nil {
		t.Fatalf("expected error for negative amount")
	}

	f.amount = "12,50"
	f.place = "Corner Shop"
	tx, err := f.transaction(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 12.5 || tx.Currency != "USD" || !tx.Date.Equal(now) {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Location == nil || tx.Location.Name != "Corner Shop" {
		t.Fatalf("expected location to be set, got %+v", tx.Location)
	}
}

func TestAnnotateUnmapped(t *testing.T) {
	tax, err := taxonomy.Parse([]byte("categories:\n  - id: gym\n    name: Gym membership\n    budget_hint: fitness\n"))
	if err != nil {
		t.Fatalf("parse taxonomy: %v", err)
	}
	txs := []core.Transaction{
		{ID: "t1", CategoryID: "gym"},
		{ID: "t2", CategoryID: "mystery"},
	}

	got := annotateUnmapped(tax, txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if !got[0].KnownCategory || got[0].CategoryName != "Gym membership" || got[0].BudgetHint != core.CategoryFitness {
		t.Fatalf("unexpected annotation for gym: %+v", got[0])
	}
	if got[1].KnownCategory || got[1].CategoryName != "" {
		t.Fatalf("unknown category must not be annotated: %+v", got[1])
	}

	if empty := annotateUnmapped(tax, nil); empty == nil || len(empty) != 0 {
		t.Fatalf("expected an empty, non-nil list, got %#v", empty)
	}
}

func TestTaxonomyEntriesSorted(t *testing.T) {
	tax, err := taxonomy.Parse([]byte("categories:\n  - id: zoo\n  - id: apples\n    budget_hint: food\n"))
	if err != nil {
		t.Fatalf("parse taxonomy: %v", err)
	}
	entries := taxonomyEntries(tax)
	if len(entries) != len(tax.IDs()) {
		t.Fatalf("expected one entry per id, got %d", len(entries))
	}
	if entries[0].ID != "apples" || entries[0].BudgetHint != core.CategoryFood {
		t.Fatalf("expected apples first, got %+v", entries[0])
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			t.Fatalf("entries not sorted at %d: %s >= %s", i, entries[i-1].ID, entries[i].ID)
		}
	}
}

func TestCommandContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json"})

	ctx := commandContext(context.Background(), logger, "dailyowo worker")
	applog.FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"command":"dailyowo worker"`) {
		t.Fatalf("expected command attribute, got %s", buf.String())
	}
}
