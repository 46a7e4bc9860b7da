package arf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweep(n int, scale float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = scale * float32(i%7-3)
	}
	return out
}

func testFile() *File {
	begin := time.Date(2023, 5, 17, 9, 30, 0, 0, time.UTC).Unix()
	return &File{
		Header: Header{FileType: 3, FilePtr: 42},
		Groups: []Group{
			{
				Number:        1,
				ID:            "mouse-12",
				Ref1:          "left",
				Ref2:          "ear",
				Memo:          "baseline session",
				BeginTime:     begin,
				EndTime:       begin + 300,
				ScenarioFile1: "abr_tone.sgf",
				VarNames:      [10]string{"Freq", "Level"},
				VarUnits:      [10]string{"Hz", "dB"},
				SamplePeriod:  40.96,
				Version:       2,
				Records: []Record{
					{Number: 0, GroupID: 1, Channel: 1, Type: "A", Duration: 10, SamplePeriod: 40.96, Vars: [10]float32{8000, 90}, Data: sweep(244, 1e-6)},
					{Number: 1, GroupID: 1, Channel: 1, Type: "A", Duration: 10, SamplePeriod: 40.96, Vars: [10]float32{8000, 85}, Data: sweep(244, 2e-6)},
				},
			},
			{
				Number:    2,
				ID:        "mouse-12",
				BeginTime: begin + 600,
				EndTime:   begin + 900,
				Records: []Record{
					{Number: 2, GroupID: 2, Channel: 1, Type: "A", Vars: [10]float32{16000, 70}, Data: sweep(17, 3e-6)},
				},
			},
		},
	}
}

func encode(t *testing.T, f *File, v Variant) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f, v))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []Variant{VariantRZ, VariantRP} {
		t.Run(v.String(), func(t *testing.T) {
			want := testFile()
			got, err := Read(bytes.NewReader(encode(t, want, v)), v)
			require.NoError(t, err)

			assert.Equal(t, "BioSig"+v.String(), got.Type)
			assert.Equal(t, int16(3), got.Header.FileType)
			assert.Equal(t, int32(42), got.Header.FilePtr)
			assert.Equal(t, 2, got.Header.GroupCount)
			assert.Equal(t, 3, got.Header.RecordCount)
			assert.Equal(t, time.Unix(want.Groups[0].BeginTime, 0).UTC(), got.FileTime)

			require.Len(t, got.Groups, 2)
			for gi, g := range got.Groups {
				wg := want.Groups[gi]
				assert.Equal(t, wg.Number, g.Number)
				assert.Equal(t, wg.ID, g.ID)
				assert.Equal(t, wg.Memo, g.Memo)
				assert.Equal(t, wg.BeginTime, g.BeginTime)
				assert.Equal(t, wg.EndTime, g.EndTime)
				assert.Equal(t, wg.VarNames, g.VarNames)
				assert.Equal(t, wg.VarUnits, g.VarUnits)
				assert.Equal(t, len(wg.Records), g.RecordCount)

				require.Len(t, g.Records, len(wg.Records))
				for ri, rec := range g.Records {
					wr := wg.Records[ri]
					assert.Equal(t, len(wr.Data), rec.Points)
					assert.Equal(t, wr.Data, rec.Data)
					assert.Equal(t, wr.Vars, rec.Vars)
					assert.Equal(t, wr.Type, rec.Type)
					assert.InDelta(t, wr.SamplePeriod, rec.SamplePeriod, 1e-6)
				}
			}

			recs := got.Records()
			require.Len(t, recs, 3)
			assert.Equal(t, 16000.0, recs[2].Frequency())
			assert.Equal(t, 70.0, recs[2].Intensity())
		})
	}
}

func TestGroupsFollowSeekTable(t *testing.T) {
	lay, err := layoutFor(VariantRZ)
	require.NoError(t, err)

	f := testFile()
	first, err := encodeGroup(lay, f.Groups[0])
	require.NoError(t, err)
	second, err := encodeGroup(lay, f.Groups[1])
	require.NoError(t, err)

	// store the second group before the first one
	hdr := Header{GroupCount: 2, RecordCount: 3}
	hdr.GroupSeek[1] = int32(headerBytes)
	hdr.GroupSeek[0] = int32(headerBytes + len(second))

	blob := append(encodeHeader(hdr), second...)
	blob = append(blob, first...)

	got, err := Read(bytes.NewReader(blob), VariantRZ)
	require.NoError(t, err)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, int16(1), got.Groups[0].Number)
	assert.Equal(t, int16(2), got.Groups[1].Number)
	assert.Equal(t, f.Groups[0].Records[1].Data, got.Groups[0].Records[1].Data)
	assert.Equal(t, time.Unix(f.Groups[0].BeginTime, 0).UTC(), got.FileTime)
}

func TestCursorBlockIsSkipped(t *testing.T) {
	for _, v := range []Variant{VariantRZ, VariantRP} {
		t.Run(v.String(), func(t *testing.T) {
			want := testFile()
			blob := encode(t, want, v)

			parsed, err := Read(bytes.NewReader(blob), v)
			require.NoError(t, err)

			lay, err := layoutFor(v)
			require.NoError(t, err)
			for i := 0; i < parsed.Header.RecordCount; i++ {
				start := int(parsed.Header.RecordSeek[i]) + lay.recordBytes()
				for j := start; j < start+CursorBytes; j++ {
					blob[j] = 0xA5
				}
			}

			got, err := Read(bytes.NewReader(blob), v)
			require.NoError(t, err)
			for gi := range want.Groups {
				for ri := range want.Groups[gi].Records {
					assert.Equal(t, want.Groups[gi].Records[ri].Data, got.Groups[gi].Records[ri].Data)
				}
			}
		})
	}
}

func TestSamplesStartAfterCursorBlock(t *testing.T) {
	for _, v := range []Variant{VariantRZ, VariantRP} {
		t.Run(v.String(), func(t *testing.T) {
			blob := encode(t, testFile(), v)
			parsed, err := Read(bytes.NewReader(blob), v)
			require.NoError(t, err)

			lay, err := layoutFor(v)
			require.NoError(t, err)

			// overwrite the first sample in the file image and look for it
			at := int(parsed.Header.RecordSeek[0]) + lay.recordBytes() + CursorBytes
			order.PutUint32(blob[at:], 0x3F800000) // 1.0

			got, err := Read(bytes.NewReader(blob), v)
			require.NoError(t, err)
			assert.Equal(t, float32(1), got.Groups[0].Records[0].Data[0])
		})
	}
}

func TestTruncatedInput(t *testing.T) {
	blob := encode(t, testFile(), VariantRZ)

	tests := []struct {
		name   string
		cut    int
		target error
	}{
		{"empty", 0, io.ErrUnexpectedEOF},
		{"inside header", 100, io.ErrUnexpectedEOF},
		{"inside group descriptor", headerBytes + 50, io.ErrUnexpectedEOF},
		{"inside samples", len(blob) - 10, ErrBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(bytes.NewReader(blob[:tt.cut]), VariantRZ)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.target)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			if tt.target == io.ErrUnexpectedEOF {
				assert.Equal(t, int64(tt.cut), fe.Offset)
			}
		})
	}
}

func TestNegativePointCount(t *testing.T) {
	blob := encode(t, testFile(), VariantRP)
	parsed, err := Read(bytes.NewReader(blob), VariantRP)
	require.NoError(t, err)

	// recn, grpid, 4-byte grp_t, newgrp, sgi, chan, rtype
	at := int(parsed.Header.RecordSeek[0]) + 2 + 2 + 4 + 2 + 2 + 1 + 1
	order.PutUint16(blob[at:], 0xFFFF)

	_, err = Read(bytes.NewReader(blob), VariantRP)
	require.ErrorIs(t, err, ErrBounds)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(at), fe.Offset)
}

func TestGroupCountOutOfRange(t *testing.T) {
	blob := encode(t, testFile(), VariantRZ)
	order.PutUint16(blob[2:], MaxGroups+1)

	_, err := Read(bytes.NewReader(blob), VariantRZ)
	require.ErrorIs(t, err, ErrBounds)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(2), fe.Offset)
}

func TestGroupSeekOutsideStream(t *testing.T) {
	blob := encode(t, testFile(), VariantRZ)
	order.PutUint32(blob[6+4:], uint32(len(blob)+100))

	_, err := Read(bytes.NewReader(blob), VariantRZ)
	require.ErrorIs(t, err, ErrBounds)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.arf")
	require.NoError(t, os.WriteFile(path, encode(t, testFile(), VariantRP), 0o644))

	got, err := ReadFile(path, VariantRP)
	require.NoError(t, err)
	assert.Len(t, got.Records(), 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.arf"), VariantRP)
	require.Error(t, err)
}

func TestWriteRejectsOversizedRecord(t *testing.T) {
	f := &File{Groups: []Group{{Records: []Record{{Data: make([]float32, 40000)}}}}}

	require.Error(t, Write(io.Discard, f, VariantRP))
	require.NoError(t, Write(io.Discard, f, VariantRZ))
}

func TestCString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("abc\x00def"), "abc"},
		{[]byte("\x00abc"), ""},
		{[]byte("full"), "full"},
		{[]byte{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cString(tt.in))
	}
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"RZ": VariantRZ, "a": VariantRZ, "rp": VariantRP, " B ": VariantRP} {
		got, err := ParseVariant(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseVariant("rx")
	require.Error(t, err)
}
