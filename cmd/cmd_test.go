// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/buildingid/spatial"
)

// run executes the root command in a scratch directory holding the result
// store.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()

	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })

	t.Setenv("BUILDINGID_STORE_PATH", filepath.Join(dir, "results.duckdb"))
	t.Setenv("BUILDINGID_LOG_LEVEL", "error")

	var out bytes.Buffer

	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)

	err = rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "Stunning 2BR apartment located at Five Palm Jumeirah", "extract")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "FIVE PALM JUMEIRAH, Palm Jumeirah", got["building"])
	assert.Equal(t, "high", got["confidence"])
	assert.Equal(t, "PALM_JUMEIRAH", got["area"])
}

func TestGazetteerCheckCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "gazetteer", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "areas")

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("areas:\n  - id: A\n    bounds: {lat: {min: 2, max: 1}, lng: {min: 0, max: 1}}\n"), 0o600))
	t.Setenv("BUILDINGID_GAZETTEER_PATH", bad)

	_, err = run(t, dir, "", "gazetteer", "check")
	require.Error(t, err)
}

func TestBatchAndResultsCommands(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"AirBnB ID,Bedrooms,Lat,Lng,Title\n"+
			"1,2,25.1045,55.1487,Stunning 2BR apartment located at Five Palm Jumeirah\n"+
			"2,5,25.1045,55.1487,Beachfront Villa with private pool\n"), 0o600))

	output := filepath.Join(dir, "out.csv")

	out, err := run(t, dir, "", "batch", "--input", input, "--workers", "2", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "2 listings identified")

	exported, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(exported), `1,2,,,,,,25.1045,55.1487,"FIVE PALM JUMEIRAH, Palm Jumeirah",Apartment,18,high,validated`)
	assert.Contains(t, string(exported), "2,5,,,,,,25.1045,55.1487,,Villa,,,villa")

	out, err = run(t, dir, "", "results", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "validated")
	assert.Contains(t, out, "villa")
	assert.Contains(t, out, "total")

	named := filepath.Join(dir, "named.csv")

	_, err = run(t, dir, "", "results", "export", "--named", "-o", named)
	require.NoError(t, err)

	exported, err = os.ReadFile(named)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(exported)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ",Airbnb Link"))
	assert.True(t, strings.HasSuffix(lines[1], ",validated,https://www.airbnb.co.uk/rooms/1"))

	cell, err := spatial.Point{Lat: 25.1045, Lng: 55.1487}.Cell(9)
	require.NoError(t, err)

	out, err = run(t, dir, "", "results", "stats", "--by-cell", "--res", "9")
	require.NoError(t, err)
	assert.Regexp(t, cell.String()+`\s+2\s+1\s+0`, out)

	out, err = run(t, dir, "", "batch", "--input", input, "--resume")
	require.NoError(t, err)
	assert.Contains(t, out, "2 listings identified")
	assert.Regexp(t, `villa\s+1`, out)
}
