package arf

import (
	"fmt"
	"io"
)

// Write encodes f in the given variant. Groups are laid out back to back
// after the header and the seek tables, counts and Points fields are
// derived from the data, so callers only fill in content.
func Write(w io.Writer, f *File, v Variant) error {
	lay, err := layoutFor(v)
	if err != nil {
		return err
	}

	if len(f.Groups) > MaxGroups {
		return fmt.Errorf("arf: %d groups exceed the %d-entry seek table", len(f.Groups), MaxGroups)
	}

	hdr := f.Header
	hdr.GroupCount = len(f.Groups)
	hdr.RecordCount = 0
	hdr.GroupSeek = [MaxGroups]int32{}
	hdr.RecordSeek = [MaxRecords]int32{}

	var body sink
	off := int64(headerBytes)
	for gi, g := range f.Groups {
		hdr.GroupSeek[gi] = int32(off)

		part, err := encodeGroup(lay, g)
		if err != nil {
			return fmt.Errorf("group %d: %w", gi, err)
		}

		recOff := off + int64(lay.groupBytes())
		for _, rec := range g.Records {
			if hdr.RecordCount >= MaxRecords {
				return fmt.Errorf("arf: more than %d records", MaxRecords)
			}
			hdr.RecordSeek[hdr.RecordCount] = int32(recOff)
			hdr.RecordCount++
			recOff += int64(lay.recordBytes() + CursorBytes + 4*len(rec.Data))
		}

		body.buf = append(body.buf, part...)
		off += int64(len(part))
	}

	out := append(encodeHeader(hdr), body.buf...)
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

func encodeHeader(hdr Header) []byte {
	s := sink{buf: make([]byte, 0, headerBytes)}
	s.i16(hdr.FileType)
	s.i16(int16(hdr.GroupCount))
	s.i16(int16(hdr.RecordCount))
	for _, v := range hdr.GroupSeek {
		s.i32(v)
	}
	for _, v := range hdr.RecordSeek {
		s.i32(v)
	}
	s.i32(hdr.FilePtr)
	return s.buf
}

// encodeGroup returns the group descriptor followed by all of its records.
func encodeGroup(lay layout, g Group) ([]byte, error) {
	var s sink
	s.i16(g.Number)
	s.i16(g.FirstRecord)
	s.i16(int16(len(g.Records)))
	s.str(g.ID, idBytes)
	s.str(g.Ref1, idBytes)
	s.str(g.Ref2, idBytes)
	s.str(g.Memo, memoBytes)
	s.stamp(lay, g.BeginTime)
	s.stamp(lay, g.EndTime)
	s.str(g.ScenarioFile1, scenarioBytes)
	s.str(g.ScenarioFile2, scenarioBytes)
	for _, name := range g.VarNames {
		s.str(name, varNameBytes)
	}
	for _, unit := range g.VarUnits {
		s.str(unit, varUnitBytes)
	}
	s.f32(g.SamplePeriod)
	s.i32(g.CCTime)
	s.i16(g.Version)
	s.i32(g.PostProc)
	s.str(g.Dump, dumpBytes)

	for ri, rec := range g.Records {
		if len(rec.Data) > lay.maxPoints() {
			return nil, fmt.Errorf("record %d: %d samples exceed %s limit %d", ri, len(rec.Data), lay.name, lay.maxPoints())
		}
		s.buf = append(s.buf, encodeRecord(lay, rec)...)
	}
	return s.buf, nil
}

func encodeRecord(lay layout, rec Record) []byte {
	var s sink
	s.i16(rec.Number)
	s.i16(rec.GroupID)
	s.stamp(lay, rec.GroupTime)
	s.i16(rec.NewGroup)
	s.i16(rec.SGI)
	s.u8(rec.Channel)
	s.str(rec.Type, 1)
	s.points(lay, len(rec.Data))
	s.f32(rec.OnsetDelay)
	s.f32(rec.Duration)
	s.f32(rec.SamplePeriod)
	s.f32(rec.ArtifactThreshold)
	s.f32(rec.Gain)
	s.i16(rec.ACCouple)
	s.i16(rec.Averages)
	s.i16(rec.Artifacts)
	s.stamp(lay, rec.BeginTime)
	s.stamp(lay, rec.EndTime)
	for _, v := range rec.Vars {
		s.f32(v)
	}
	s.pad(CursorBytes)
	for _, v := range rec.Data {
		s.f32(v)
	}
	return s.buf
}
