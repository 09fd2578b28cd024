package data

import (
	"errors"
	"math"
	"testing"
)

// ====================================================================
// Тесты кодека примитивов
// ====================================================================

func TestPrimitiveRoundTrip(t *testing.T) {
	buf := NewByteBuffer()
	buf.WriteU8(0xab)
	buf.WriteI8(-5)
	buf.WriteU16(0xbeef)
	buf.WriteI16(-12345)
	buf.WriteU32(0xdeadbeef)
	buf.WriteI32(-1)
	buf.WriteU64(0x0123456789abcdef)
	buf.WriteI64(math.MinInt64)
	buf.WriteF32(3.5)
	buf.WriteF64(-0.125)
	buf.WriteBool(true)
	buf.WriteBool(false)
	buf.WriteString("привет")

	r := NewByteReader(buf.Bytes())

	if v, _ := r.ReadU8(); v != 0xab {
		t.Errorf("u8: got %#x", v)
	}
	if v, _ := r.ReadI8(); v != -5 {
		t.Errorf("i8: got %d", v)
	}
	if v, _ := r.ReadU16(); v != 0xbeef {
		t.Errorf("u16: got %#x", v)
	}
	if v, _ := r.ReadI16(); v != -12345 {
		t.Errorf("i16: got %d", v)
	}
	if v, _ := r.ReadU32(); v != 0xdeadbeef {
		t.Errorf("u32: got %#x", v)
	}
	if v, _ := r.ReadI32(); v != -1 {
		t.Errorf("i32: got %d", v)
	}
	if v, _ := r.ReadU64(); v != 0x0123456789abcdef {
		t.Errorf("u64: got %#x", v)
	}
	if v, _ := r.ReadI64(); v != math.MinInt64 {
		t.Errorf("i64: got %d", v)
	}
	if v, _ := r.ReadF32(); v != 3.5 {
		t.Errorf("f32: got %v", v)
	}
	if v, _ := r.ReadF64(); v != -0.125 {
		t.Errorf("f64: got %v", v)
	}
	if v, _ := r.ReadBool(); !v {
		t.Error("bool: want true")
	}
	if v, _ := r.ReadBool(); v {
		t.Error("bool: want false")
	}
	if v, _ := r.ReadString(); v != "привет" {
		t.Errorf("string: got %q", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining: %d", r.Remaining())
	}
}

func TestBigEndianLayout(t *testing.T) {
	buf := NewByteBuffer()
	buf.WriteU32(0x01020304)

	want := []byte{0x01, 0x02, 0x03, 0x04}
	got := buf.Bytes()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestShortBuffer(t *testing.T) {
	r := NewByteReader([]byte{0x01, 0x02})

	if _, err := r.ReadU32(); !errors.Is(err, ErrDecodeShort) {
		t.Errorf("want ErrDecodeShort, got %v", err)
	}
}

func TestBadBoolTag(t *testing.T) {
	r := NewByteReader([]byte{0x07})

	if _, err := r.ReadBool(); !errors.Is(err, ErrDecodeBadTag) {
		t.Errorf("want ErrDecodeBadTag, got %v", err)
	}
}

func TestLengthOverflow(t *testing.T) {
	// Строка, объявляющая длину 0xffffffff
	r := NewByteReader([]byte{0xff, 0xff, 0xff, 0xff, 'a'})

	if _, err := r.ReadString(); !errors.Is(err, ErrDecodeOverflow) {
		t.Errorf("want ErrDecodeOverflow, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	buf := NewByteBuffer()
	val := int32(42)
	WriteOptional(buf, &val, func(b *ByteBuffer, v int32) { b.WriteI32(v) })
	WriteOptional[int32](buf, nil, func(b *ByteBuffer, v int32) { b.WriteI32(v) })

	r := NewByteReader(buf.Bytes())

	got, err := ReadOptional(r, func(b *ByteBuffer) (int32, error) { return b.ReadI32() })
	if err != nil || got == nil || *got != 42 {
		t.Fatalf("present optional: got %v, err %v", got, err)
	}

	got, err = ReadOptional(r, func(b *ByteBuffer) (int32, error) { return b.ReadI32() })
	if err != nil || got != nil {
		t.Fatalf("absent optional: got %v, err %v", got, err)
	}
}

func TestVec(t *testing.T) {
	buf := NewByteBuffer()
	WriteVec(buf, []uint16{1, 2, 3}, func(b *ByteBuffer, v uint16) { b.WriteU16(v) })

	r := NewByteReader(buf.Bytes())
	out, err := ReadVec(r, func(b *ByteBuffer) (uint16, error) { return b.ReadU16() })
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Errorf("vec: got %v", out)
	}
}

func TestVarUint(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, math.MaxUint64}

	for _, v := range cases {
		buf := NewByteBuffer()
		buf.WriteVarUint(v)

		got, err := NewByteReader(buf.Bytes()).ReadVarUint()
		if err != nil {
			t.Fatalf("varint %d: %v", v, err)
		}
		if got != v {
			t.Errorf("varint: got %d, want %d", got, v)
		}
	}

	// Переполненный varint (11 continuation-байт)
	long := make([]byte, 11)
	for i := range long {
		long[i] = 0xff
	}
	if _, err := NewByteReader(long).ReadVarUint(); !errors.Is(err, ErrDecodeOverflow) {
		t.Errorf("want ErrDecodeOverflow, got %v", err)
	}
}
