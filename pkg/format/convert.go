package format

import (
	"encoding/binary"
	"math"
)

// ToAccum decodes a single sample in format sf from src into the
// mixer's signed 32-bit accumulator domain. The accumulator keeps
// samples at s16 scale (±32768) with the full int32 range as
// summation headroom for many concurrent voices; it is narrowed back
// with clamping only once, in FromAccum, after every voice has been
// summed in.
func ToAccum(sf SampleFormat, src []byte) int32 {
	switch sf {
	case U8:
		return (int32(src[0]) - 128) << 8
	case S16:
		v := int16(binary.LittleEndian.Uint16(src))
		return int32(v)
	case S32:
		return int32(binary.LittleEndian.Uint32(src)) >> 16
	case F32:
		bits := binary.LittleEndian.Uint32(src)
		f := math.Float32frombits(bits)
		return clampToInt32(int64(f * 32768.0))
	default:
		return 0
	}
}

// FromAccum encodes a signed 32-bit accumulator sample back into
// format sf, writing it to dst which must be at least
// sf.BytesPerSample() bytes long. v is clamped to the s16 range the
// accumulator is scaled to before being re-widened or re-narrowed for
// the target format.
func FromAccum(sf SampleFormat, v int32, dst []byte) {
	s16 := clampS16(v)
	switch sf {
	case U8:
		dst[0] = byte((s16 >> 8) + 128)
	case S16:
		binary.LittleEndian.PutUint16(dst, uint16(s16))
	case S32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(s16)<<16))
	case F32:
		f := float32(s16) / 32768.0
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
	}
}

func clampS16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func clampToInt32(v int64) int32 {
	if v > 2147483647 {
		return 2147483647
	}
	if v < -2147483648 {
		return -2147483648
	}
	return int32(v)
}

