package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskcalc/platform/internal/qdiabetes"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var referenceArgs = []string{
	"--age", "40", "--sex", "male", "--smoking", "2",
	"--height", "182", "--weight", "90", "--treated-hypertension",
}

func TestScore_Text(t *testing.T) {
	out, err := run(t, append([]string{"score"}, referenceArgs...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Model:   A")
	assert.Contains(t, out, "Risk:    3.37%")
	assert.Contains(t, out, "Level:   low")
	assert.Contains(t, out, "BMI:     27.2")
}

func TestScore_JSON(t *testing.T) {
	out, err := run(t, append([]string{"score", "--json"}, referenceArgs...)...)
	require.NoError(t, err)

	var result qdiabetes.RiskResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, qdiabetes.ModelA, result.Model)
	assert.InEpsilon(t, 3.367959893889072, result.RiskPercentage, 1e-6)
}

func TestScore_SelectsLabModel(t *testing.T) {
	out, err := run(t, "score", "--age", "60", "--sex", "Female", "--hba1c", "44", "--json")
	require.NoError(t, err)

	var result qdiabetes.RiskResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, qdiabetes.ModelC, result.Model)
}

func TestScore_ForcedModel(t *testing.T) {
	out, err := run(t, "score", "--age", "60", "--sex", "female", "--hba1c", "44", "--model", "a", "--json")
	require.NoError(t, err)

	var result qdiabetes.RiskResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, qdiabetes.ModelA, result.Model)

	_, err = run(t, "score", "--age", "60", "--sex", "female", "--model", "B")
	assert.ErrorIs(t, err, qdiabetes.ErrInvalidInput)

	_, err = run(t, "score", "--age", "60", "--sex", "female", "--model", "Z")
	assert.ErrorIs(t, err, qdiabetes.ErrInvalidInput)
}

func TestScore_MissingSex(t *testing.T) {
	_, err := run(t, "score", "--age", "60")
	assert.ErrorIs(t, err, qdiabetes.ErrInvalidInput)
}

func TestProject(t *testing.T) {
	out, err := run(t, append([]string{"project"}, referenceArgs...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Current:    3.37% (low)")
	assert.Contains(t, out, "  - Quit smoking")
	assert.Contains(t, out, "  - Reduce BMI to 25 (from 27.2)")
}

func TestOptions(t *testing.T) {
	out, err := run(t, "options")
	require.NoError(t, err)
	assert.Contains(t, out, "Ethnicity (--ethnicity):")
	assert.Contains(t, out, "Smoking (--smoking):")

	out, err = run(t, "options", "--json")
	require.NoError(t, err)
	var opts map[string][]qdiabetes.Option
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	assert.Len(t, opts["smoking"], len(qdiabetes.SmokingOptions))
}
