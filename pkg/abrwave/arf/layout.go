package arf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed field widths shared by both variants.
const (
	idBytes       = 16
	memoBytes     = 50
	scenarioBytes = 100
	varNameBytes  = 15
	varUnitBytes  = 5
	dumpBytes     = 92

	headerBytes = 3*2 + 4*MaxGroups + 4*MaxRecords + 4

	// group descriptor without its two timestamps
	groupFixedBytes = 3*2 + 3*idBytes + memoBytes + 2*scenarioBytes +
		10*varNameBytes + 10*varUnitBytes + 4 + 4 + 2 + 4 + dumpBytes

	// record descriptor without its three timestamps
	recordFixedBytes = 2 + 2 + 2 + 2 + 1 + 1 + 2 + 5*4 + 3*2 + 10*4

	// offset of the begin timestamp inside a group descriptor
	groupStampOffset = 3*2 + 3*idBytes + memoBytes
)

var order = binary.LittleEndian

// layout carries everything that differs between the two variants. It is
// chosen once per file.
type layout struct {
	variant      Variant
	name         string
	stampWidth   int
	signedPoints bool
}

func layoutFor(v Variant) (layout, error) {
	switch v {
	case VariantRZ:
		return layout{variant: v, name: "BioSigRZ", stampWidth: 8}, nil
	case VariantRP:
		return layout{variant: v, name: "BioSigRP", stampWidth: 4, signedPoints: true}, nil
	}
	return layout{}, fmt.Errorf("arf: unsupported variant %v", v)
}

func (l layout) groupBytes() int  { return groupFixedBytes + 2*l.stampWidth }
func (l layout) recordBytes() int { return recordFixedBytes + 3*l.stampWidth }

func (l layout) maxPoints() int {
	if l.signedPoints {
		return math.MaxInt16
	}
	return math.MaxUint16
}

// block walks little-endian fields of an already-read byte region. base is
// the file offset of buf[0] so failures can be reported in file terms.
type block struct {
	buf  []byte
	pos  int
	base int64
}

func (b *block) offset() int64 { return b.base + int64(b.pos) }

func (b *block) next(n int) []byte {
	p := b.buf[b.pos : b.pos+n]
	b.pos += n
	return p
}

func (b *block) u8() uint8    { return b.next(1)[0] }
func (b *block) i16() int16   { return int16(order.Uint16(b.next(2))) }
func (b *block) u16() uint16  { return order.Uint16(b.next(2)) }
func (b *block) i32() int32   { return int32(order.Uint32(b.next(4))) }
func (b *block) f32() float32 { return math.Float32frombits(order.Uint32(b.next(4))) }

func (b *block) stamp(l layout) int64 {
	if l.stampWidth == 8 {
		return int64(order.Uint64(b.next(8)))
	}
	return int64(order.Uint32(b.next(4)))
}

// peekStamp reads a timestamp and rewinds over it.
func (b *block) peekStamp(l layout) int64 {
	v := b.stamp(l)
	b.pos -= l.stampWidth
	return v
}

func (b *block) points(l layout) int {
	if l.signedPoints {
		return int(b.i16())
	}
	return int(b.u16())
}

func (b *block) str(n int) string { return cString(b.next(n)) }

// cString decodes a fixed-width field up to its first NUL. A field without
// a NUL is taken whole.
func cString(p []byte) string {
	for i, c := range p {
		if c == 0 {
			return string(p[:i])
		}
	}
	return string(p)
}

// sink is the write-side mirror of block.
type sink struct {
	buf []byte
}

func (s *sink) u8(v uint8)    { s.buf = append(s.buf, v) }
func (s *sink) i16(v int16)   { s.buf = order.AppendUint16(s.buf, uint16(v)) }
func (s *sink) u16(v uint16)  { s.buf = order.AppendUint16(s.buf, v) }
func (s *sink) i32(v int32)   { s.buf = order.AppendUint32(s.buf, uint32(v)) }
func (s *sink) f32(v float32) { s.buf = order.AppendUint32(s.buf, math.Float32bits(v)) }
func (s *sink) pad(n int)     { s.buf = append(s.buf, make([]byte, n)...) }

func (s *sink) stamp(l layout, v int64) {
	if l.stampWidth == 8 {
		s.buf = order.AppendUint64(s.buf, uint64(v))
		return
	}
	s.buf = order.AppendUint32(s.buf, uint32(v))
}

func (s *sink) points(l layout, n int) {
	if l.signedPoints {
		s.i16(int16(n))
		return
	}
	s.u16(uint16(n))
}

// str writes v into an n-byte field, truncating and NUL padding.
func (s *sink) str(v string, n int) {
	field := make([]byte, n)
	copy(field, v)
	s.buf = append(s.buf, field...)
}
