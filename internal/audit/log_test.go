package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenfield/growcore/internal/rules"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleRecord(id, ruleID, status string, ts time.Time) rules.ExecutionRecord {
	return rules.ExecutionRecord{
		ID:       id,
		RuleID:   ruleID,
		RuleName: "Rule " + ruleID,
		Status:   status,
		Trigger: rules.SensorReading{
			Source: "switchbot", DeviceID: "s1", Type: "temperature", Value: 29,
		},
		Results: []rules.ActionResult{
			{Action: "kasa_control", Status: rules.StatusExecuted},
		},
		Timestamp: ts,
	}
}

func TestLogRecordAndRecent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	for i, rec := range []rules.ExecutionRecord{
		sampleRecord("r1", "hot", rules.StatusExecuted, base),
		sampleRecord("r2", "hot", rules.StatusError, base.Add(time.Minute)),
		sampleRecord("r3", "humid", rules.StatusExecuted, base.Add(2*time.Minute)),
	} {
		if err := l.RecordExecution(ctx, rec); err != nil {
			t.Fatalf("RecordExecution %d: %v", i, err)
		}
	}

	all, err := l.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("record count = %d, want 3", len(all))
	}
	if all[0].ID != "r3" {
		t.Errorf("newest record = %s, want r3", all[0].ID)
	}
	if all[0].Trigger.Value != 29 || all[0].Trigger.DeviceID != "s1" {
		t.Errorf("trigger round trip = %+v", all[0].Trigger)
	}
	if len(all[0].Results) != 1 || all[0].Results[0].Action != "kasa_control" {
		t.Errorf("results round trip = %+v", all[0].Results)
	}
	if !all[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("timestamp round trip = %v", all[0].Timestamp)
	}

	hot, err := l.Recent(ctx, "hot", 0)
	if err != nil {
		t.Fatalf("Recent(hot): %v", err)
	}
	if len(hot) != 2 || hot[0].ID != "r2" {
		t.Errorf("filtered records = %+v", hot)
	}

	limited, err := l.Recent(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited count = %d, want 1", len(limited))
	}
}

func TestLogRejectsEmptyID(t *testing.T) {
	l := newTestLog(t)
	rec := sampleRecord("", "hot", rules.StatusExecuted, time.Now())
	if err := l.RecordExecution(context.Background(), rec); err == nil {
		t.Fatal("expected error for empty record id")
	}
}

func TestLogErrorColumnRoundTrip(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	rec := sampleRecord("r1", "hot", rules.StatusError, time.Now())
	rec.Results = nil
	rec.Error = "all actions failed"
	if err := l.RecordExecution(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := l.Recent(ctx, "hot", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Error != "all actions failed" {
		t.Errorf("error column = %q", got[0].Error)
	}
	if got[0].Results != nil {
		t.Errorf("results = %+v, want nil", got[0].Results)
	}
}

func TestLogPrune(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	old := sampleRecord("old", "hot", rules.StatusExecuted, time.Now().Add(-48*time.Hour))
	fresh := sampleRecord("fresh", "hot", rules.StatusExecuted, time.Now())
	if err := l.RecordExecution(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordExecution(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	deleted, err := l.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	remaining, err := l.Recent(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].ID != "fresh" {
		t.Errorf("remaining = %+v", remaining)
	}

	if _, err := l.Prune(ctx, 0); err == nil {
		t.Error("expected error for non-positive retention")
	}
}
