// Package main provides tests for the fafquery CLI.
package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/fafquery/internal/cli"
	"github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := cli.NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "fafquery v") {
		t.Errorf("version output should contain 'fafquery v', got: %s", out)
	}
}

func TestHelpCommand(t *testing.T) {
	out, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}
	for _, expected := range []string{"flows", "states", "forecast", "county", "network", "discover", "setup", "status", "config"} {
		if !strings.Contains(out, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, out)
		}
	}
}

func TestFlowsCommandJSON(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	out, _, err := run(t, "flows", "--data-dir", dir, "-o", "json",
		"--origin-states", "California", "--commodities", "Electronics", "--years", "2020")
	if err != nil {
		t.Fatalf("flows command error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("flows output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 California electronics flows, got %d", len(rows))
	}
	for _, row := range rows {
		if row["sctg2"] != float64(35) {
			t.Errorf("unexpected commodity in row %v", row)
		}
		if _, ok := row["tons_2021"]; ok {
			t.Errorf("year filter should drop 2021 columns, got %v", row)
		}
	}
}

func TestFlowsCommandTop(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	out, _, err := run(t, "flows", "--data-dir", dir, "-o", "json", "--top", "2", "--by", "tons", "--year", "2020")
	if err != nil {
		t.Fatalf("flows --top error = %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("top output is not JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["tons_2020"] != float64(500) || rows[1]["tons_2020"] != float64(300) {
		t.Errorf("top rows not sorted by tons_2020: %v", rows)
	}
}

func TestFlowsCommandMarkdown(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	out, stderr, err := run(t, "flows", "--data-dir", dir)
	if err != nil {
		t.Fatalf("flows command error = %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "dms_orig") {
		t.Errorf("markdown output should contain the dms_orig column, got: %s", out)
	}
	if !strings.Contains(out, "(10 rows)") {
		t.Errorf("markdown output should report 10 rows, got: %s", out)
	}
	if !strings.Contains(stderr, "no filters applied") {
		t.Errorf("unfiltered query should warn on stderr, got: %s", stderr)
	}
}

func TestStatesCommandRejectsZones(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	_, _, err := run(t, "states", "--data-dir", dir, "--origin-zones", "61")
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("states should not accept --origin-zones, got %v", err)
	}
}

func TestFlowsCommandMissingData(t *testing.T) {
	_, _, err := run(t, "flows", "--data-dir", t.TempDir())
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "fafquery setup") {
		t.Errorf("error should point at fafquery setup, got %v", err)
	}
}

func TestNetworkCommandByState(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	out, _, err := run(t, "network", "--data-dir", dir, "-o", "json", "--by", "state")
	if err != nil {
		t.Fatalf("network command error = %v", err)
	}
	var rows []struct {
		State  string  `json:"state"`
		Length float64 `json:"length"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("network output is not JSON: %v", err)
	}
	want := map[string]float64{"CA": 22, "TX": 15, "WA": 8}
	if len(rows) != len(want) {
		t.Fatalf("expected %d states, got %v", len(want), rows)
	}
	for _, r := range rows {
		if want[r.State] != r.Length {
			t.Errorf("state %s: expected %v miles, got %v", r.State, want[r.State], r.Length)
		}
	}
}

func TestDiscoverModesCSV(t *testing.T) {
	dir := testutil.WriteFixtureData(t)

	out, _, err := run(t, "discover", "modes", "--data-dir", dir, "-o", "csv")
	if err != nil {
		t.Fatalf("discover modes error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected header and 7 modes, got %d lines: %s", len(lines), out)
	}
	if !strings.HasPrefix(strings.ToLower(lines[0]), "code,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(out, "Truck") {
		t.Errorf("modes should list Truck, got: %s", out)
	}
}

func TestConfigCommand(t *testing.T) {
	out, _, err := run(t, "config", "--data-dir", "/srv/faf", "--auto-setup")
	if err != nil {
		t.Fatalf("config command error = %v", err)
	}
	for _, expected := range []string{"data_dir: /srv/faf", "auto_setup: true", "timeout: 30m0s"} {
		if !strings.Contains(out, expected) {
			t.Errorf("config output should contain %q, got: %s", expected, out)
		}
	}
}

func TestInvalidOutputFlag(t *testing.T) {
	_, _, err := run(t, "status", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "Output must be one of") {
		t.Errorf("expected output validation error, got %v", err)
	}
}
