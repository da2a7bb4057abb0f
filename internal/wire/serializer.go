package wire

import (
	"encoding/binary"
	"math"

	"github.com/roach88/qir/internal/ir"
)

// WrSerializer appends typed primitives to a growing buffer.
//
// Integers are zig-zag varints, strings are uvarint length-prefixed and
// values carry a ValueKind byte before their payload.
type WrSerializer struct {
	buf []byte
}

// NewWrSerializer creates a writer with the given initial capacity.
func NewWrSerializer(capacity int) *WrSerializer {
	return &WrSerializer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded buffer. The slice aliases internal storage.
func (w *WrSerializer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *WrSerializer) Len() int { return len(w.buf) }

// PutInt writes a signed integer as a zig-zag varint.
func (w *WrSerializer) PutInt(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

// PutTag writes a field tag.
func (w *WrSerializer) PutTag(t Tag) {
	w.PutInt(int64(t))
}

// PutBool writes a boolean as one byte.
func (w *WrSerializer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// PutString writes a uvarint length followed by the raw bytes.
func (w *WrSerializer) PutString(s string) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// PutValue writes a kind byte and the value payload. Tuples may hold only
// scalars; callers validate values before encoding.
func (w *WrSerializer) PutValue(v ir.IRValue) {
	switch val := v.(type) {
	case ir.IRInt:
		w.buf = append(w.buf, byte(KindInt))
		w.PutInt(int64(val))
	case ir.IRFloat:
		w.buf = append(w.buf, byte(KindFloat))
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(float64(val)))
	case ir.IRString:
		w.buf = append(w.buf, byte(KindString))
		w.PutString(string(val))
	case ir.IRBool:
		w.buf = append(w.buf, byte(KindBool))
		w.PutBool(bool(val))
	case ir.IRArray:
		w.buf = append(w.buf, byte(KindTuple))
		w.buf = binary.AppendUvarint(w.buf, uint64(len(val)))
		for _, elem := range val {
			w.PutValue(elem)
		}
	}
}

// PutValues writes a count followed by each value.
func (w *WrSerializer) PutValues(vals []ir.IRValue) {
	w.PutInt(int64(len(vals)))
	for _, v := range vals {
		w.PutValue(v)
	}
}

// Serializer reads typed primitives from a buffer.
//
// Every read checks bounds; a short buffer yields a TRUNCATED
// ProtocolError carrying the offset where the read started.
type Serializer struct {
	buf []byte
	pos int
}

// NewSerializer creates a reader over buf.
func NewSerializer(buf []byte) *Serializer {
	return &Serializer{buf: buf}
}

// Eof reports whether all input has been consumed.
func (s *Serializer) Eof() bool { return s.pos >= len(s.buf) }

// Pos returns the current read offset.
func (s *Serializer) Pos() int { return s.pos }

// Remaining returns the number of unread bytes.
func (s *Serializer) Remaining() int { return len(s.buf) - s.pos }

// GetInt reads a zig-zag varint.
func (s *Serializer) GetInt() (int64, error) {
	v, n := binary.Varint(s.buf[s.pos:])
	switch {
	case n == 0:
		return 0, protocolErrorf(ErrCodeTruncated, TagNone, s.pos, "varint runs past end of input")
	case n < 0:
		return 0, protocolErrorf(ErrCodeInvalidValue, TagNone, s.pos, "varint overflows 64 bits")
	}
	s.pos += n
	return v, nil
}

// GetInt32 reads a varint that must fit in an int32.
func (s *Serializer) GetInt32() (int, error) {
	start := s.pos
	v, err := s.GetInt()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, protocolErrorf(ErrCodeInvalidValue, TagNone, start, "integer %d out of int32 range", v)
	}
	return int(v), nil
}

// GetTag reads a field tag.
func (s *Serializer) GetTag() (Tag, error) {
	v, err := s.GetInt32()
	return Tag(v), err
}

// GetBool reads a one-byte boolean; only 0 and 1 are accepted.
func (s *Serializer) GetBool() (bool, error) {
	if s.Eof() {
		return false, protocolErrorf(ErrCodeTruncated, TagNone, s.pos, "bool runs past end of input")
	}
	b := s.buf[s.pos]
	if b > 1 {
		return false, protocolErrorf(ErrCodeInvalidValue, TagNone, s.pos, "bool byte %d", b)
	}
	s.pos++
	return b == 1, nil
}

// GetString reads a length-prefixed string.
func (s *Serializer) GetString() (string, error) {
	start := s.pos
	n, err := s.getUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(s.Remaining()) {
		s.pos = start
		return "", protocolErrorf(ErrCodeTruncated, TagNone, start, "string of %d bytes runs past end of input", n)
	}
	str := string(s.buf[s.pos : s.pos+int(n)])
	s.pos += int(n)
	return str, nil
}

// GetValue reads a kind byte and its payload.
func (s *Serializer) GetValue() (ir.IRValue, error) {
	return s.getValue(true)
}

// GetValues reads a count followed by that many values. The count is
// bounded by the remaining input so a corrupt count cannot force a large
// allocation.
func (s *Serializer) GetValues() ([]ir.IRValue, error) {
	start := s.pos
	count, err := s.GetInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, protocolErrorf(ErrCodeValueCount, TagNone, start, "negative value count %d", count)
	}
	// Every value is at least two bytes.
	if count > int64(s.Remaining()/2) {
		return nil, protocolErrorf(ErrCodeTruncated, TagNone, start, "%d values run past end of input", count)
	}
	if count == 0 {
		return nil, nil
	}
	vals := make([]ir.IRValue, count)
	for i := range vals {
		if vals[i], err = s.GetValue(); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (s *Serializer) getValue(allowTuple bool) (ir.IRValue, error) {
	if s.Eof() {
		return nil, protocolErrorf(ErrCodeTruncated, TagNone, s.pos, "value runs past end of input")
	}
	start := s.pos
	kind := ValueKind(s.buf[s.pos])
	s.pos++

	switch kind {
	case KindInt:
		v, err := s.GetInt()
		return ir.IRInt(v), err
	case KindFloat:
		if s.Remaining() < 8 {
			return nil, protocolErrorf(ErrCodeTruncated, TagNone, start, "float runs past end of input")
		}
		bits := binary.LittleEndian.Uint64(s.buf[s.pos:])
		s.pos += 8
		return ir.IRFloat(math.Float64frombits(bits)), nil
	case KindString:
		v, err := s.GetString()
		return ir.IRString(v), err
	case KindBool:
		v, err := s.GetBool()
		return ir.IRBool(v), err
	case KindTuple:
		if !allowTuple {
			return nil, protocolErrorf(ErrCodeInvalidValue, TagNone, start, "tuple nested in tuple")
		}
		n, err := s.getUvarint()
		if err != nil {
			return nil, err
		}
		if n > uint64(s.Remaining()/2) {
			return nil, protocolErrorf(ErrCodeTruncated, TagNone, start, "tuple of %d values runs past end of input", n)
		}
		tuple := make(ir.IRArray, n)
		for i := range tuple {
			if tuple[i], err = s.getValue(false); err != nil {
				return nil, err
			}
		}
		return tuple, nil
	default:
		return nil, protocolErrorf(ErrCodeInvalidValue, TagNone, start, "unknown value kind %d", kind)
	}
}

func (s *Serializer) getUvarint() (uint64, error) {
	v, n := binary.Uvarint(s.buf[s.pos:])
	switch {
	case n == 0:
		return 0, protocolErrorf(ErrCodeTruncated, TagNone, s.pos, "uvarint runs past end of input")
	case n < 0:
		return 0, protocolErrorf(ErrCodeInvalidValue, TagNone, s.pos, "uvarint overflows 64 bits")
	}
	s.pos += n
	return v, nil
}
