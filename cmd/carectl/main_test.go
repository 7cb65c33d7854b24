package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/intake/sqlitestore"
	"github.com/linnemanlabs/carepath/internal/labs"
	"github.com/linnemanlabs/carepath/internal/rx"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRx(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "rx", "Coumadin 5mg", "metformin", "--new", "aspirin")
	if err != nil {
		t.Fatalf("rx: %v", err)
	}
	var rep rx.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.OverallRisk != rx.SeverityMajor {
		t.Errorf("OverallRisk = %v, want major", rep.OverallRisk)
	}

	if _, err := run(t, "", "rx"); err == nil {
		t.Error("rx without medications should fail")
	}
}

func TestLabs_Stdin(t *testing.T) {
	t.Parallel()

	out, err := run(t, "Potassium 5.8 mmol/L\nGlucose 1O5 mg/dL\n", "labs")
	if err != nil {
		t.Fatalf("labs: %v", err)
	}
	var res labs.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(res.Values) != 2 || res.Values[1].Value != 105 {
		t.Errorf("values = %+v", res.Values)
	}
}

func TestLabs_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("Hemoglobin: 10,5 g/dL (12.0-16.0)\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "", "labs", path)
	if err != nil {
		t.Fatalf("labs: %v", err)
	}
	if !strings.Contains(out, `"flag": "low"`) {
		t.Errorf("output = %s", out)
	}

	if _, err := run(t, "", "labs", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("labs with missing file should fail")
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantAction decision.SystemAction
		wantErr    bool
	}{
		{"routine", []string{"decide", "runny", "nose", "--severity", "2", "--duration-hours", "24", "--age", "30"}, decision.ActionNormal, false},
		{"breaker", []string{"decide", "crushing chest pain and shortness of breath"}, decision.ActionEmergencyBreaker, false},
		{"bad severity", []string{"decide", "cough", "--severity", "12"}, "", true},
		{"bad sex", []string{"decide", "cough", "--sex", "x"}, "", true},
		{"no text", []string{"decide"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := run(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var v decision.Verdict
			if err := json.Unmarshal([]byte(out), &v); err != nil {
				t.Fatalf("decode: %v\n%s", err, out)
			}
			if v.SystemAction != tt.wantAction {
				t.Errorf("SystemAction = %q, want %q", v.SystemAction, tt.wantAction)
			}
		})
	}
}

func TestSweep_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	// write with a zero-length TTL so the record is already expired
	s, err := sqlitestore.New(ctx, path, sqlitestore.WithTTL(0))
	if err != nil {
		t.Fatalf("sqlitestore.New: %v", err)
	}
	if err := s.Set(ctx, "old", &intake.Record{FreeText: "cough"}, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	out, err := run(t, "", "sweep", "--sqlite-path", path)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	var got struct {
		DeletedCount int `json:"deletedCount"`
		Stats        struct {
			ActiveSessions int `json:"activeSessions"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.DeletedCount != 1 || got.Stats.ActiveSessions != 0 {
		t.Errorf("sweep output = %+v", got)
	}
}

func TestSweep_RequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := run(t, "", "sweep", "--database-url", "", "--sqlite-path", ""); err == nil {
		t.Error("sweep without a store should fail")
	}
}
