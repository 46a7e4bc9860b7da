package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestARF(t *testing.T) string {
	t.Helper()

	g := arf.Group{Number: 1, ID: "ear-1", Memo: "left"}
	for _, level := range []float32{30, 50, 70} {
		g.Records = append(g.Records, arf.Record{
			Type: "A",
			Vars: [10]float32{8000, level},
			Data: []float32{0, 1e-6, 0, 2e-6, 0},
		})
	}

	var buf bytes.Buffer
	require.NoError(t, arf.Write(&buf, &arf.File{Groups: []arf.Group{g}}, arf.VariantRP))

	path := filepath.Join(t.TempDir(), "mouse12.arf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestReadARF(t *testing.T) {
	path := writeTestARF(t)

	set, file, err := readARF(path, "rp", "level")
	require.NoError(t, err)
	require.Len(t, file.Groups, 1)
	assert.Equal(t, "ear-1", file.Groups[0].ID)
	assert.Equal(t, "mouse12.arf", set.Source)
	assert.Len(t, set.Records, 3)
	assert.Equal(t, []float64{30, 50, 70}, set.Intensities())
}

func TestReadARFRejectsBadOptions(t *testing.T) {
	path := writeTestARF(t)

	_, _, err := readARF(path, "zz", "level")
	assert.Error(t, err)

	_, _, err = readARF(path, "rp", "volume")
	assert.Error(t, err)

	_, _, err = readARF(filepath.Join(t.TempDir(), "missing.arf"), "rp", "level")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	in := filepath.Join("data", "in", "mouse12.arf")

	assert.Equal(t, filepath.Join("data", "in", "mouse12_8000Hz_70dB.wav"), outputName(in, 8000, "70", "wav"))
	assert.Equal(t, filepath.Join("data", "in", "mouse12_8000Hz.png"), outputName(in, 8000, "", "png"))
	assert.Equal(t, "export_4000Hz_25.5dB.png", outputName("export.csv", 4000, "25.5", "png"))
}

func TestCreateOutputMakesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "2026", "metrics.csv")

	f := createOutput(nil, path)
	require.NoError(t, f.Close())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
