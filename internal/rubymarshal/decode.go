package rubymarshal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	majorVersion = 4
	minorVersion = 8
)

// ErrFormat reports input that is not a supported Marshal stream.
var ErrFormat = errors.New("rubymarshal: unsupported or malformed data")

// Symbol is a decoded Ruby symbol, kept distinct from String values.
type Symbol string

// IsMarshal reports whether data starts with a Marshal 4.8 header.
func IsMarshal(data []byte) bool {
	return len(data) >= 2 && data[0] == majorVersion && data[1] == minorVersion
}

// Decode parses one Marshal value. Arrays decode to []any, hashes to
// map[string]any (symbol and string keys are used as-is, fixnum keys are
// formatted in base 10), strings to string and symbols to Symbol.
func Decode(data []byte) (any, error) {
	if !IsMarshal(data) {
		return nil, fmt.Errorf("%w: missing 4.8 header", ErrFormat)
	}
	d := &decoder{buf: data, pos: 2}
	value, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(d.buf)-d.pos)
	}
	return value, nil
}

type decoder struct {
	buf     []byte
	pos     int
	symbols []Symbol
	objects []any
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrFormat)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: length %d out of range", ErrFormat, n)
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// fixnum reads Marshal's variable-length integer encoding.
func (d *decoder) fixnum() (int64, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	c := int8(b)
	switch {
	case c == 0:
		return 0, nil
	case c > 4:
		return int64(c) - 5, nil
	case c < -4:
		return int64(c) + 5, nil
	case c > 0:
		raw, err := d.bytes(int(c))
		if err != nil {
			return 0, err
		}
		var v int64
		for i := len(raw) - 1; i >= 0; i-- {
			v = v<<8 | int64(raw[i])
		}
		return v, nil
	default:
		n := int(-c)
		raw, err := d.bytes(n)
		if err != nil {
			return 0, err
		}
		var v int64 = -1
		for i := len(raw) - 1; i >= 0; i-- {
			v = v<<8 | int64(raw[i])
		}
		return v, nil
	}
}

func (d *decoder) length() (int, error) {
	n, err := d.fixnum()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(d.buf)) {
		return 0, fmt.Errorf("%w: bad length %d", ErrFormat, n)
	}
	return int(n), nil
}

func (d *decoder) rawString() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}
	raw, err := d.bytes(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (d *decoder) symbol() (Symbol, error) {
	tag, err := d.byte()
	if err != nil {
		return "", err
	}
	switch tag {
	case ':':
		name, err := d.rawString()
		if err != nil {
			return "", err
		}
		sym := Symbol(name)
		d.symbols = append(d.symbols, sym)
		return sym, nil
	case ';':
		idx, err := d.fixnum()
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= int64(len(d.symbols)) {
			return "", fmt.Errorf("%w: symbol link %d out of range", ErrFormat, idx)
		}
		return d.symbols[idx], nil
	default:
		return "", fmt.Errorf("%w: expected symbol, found tag %q", ErrFormat, tag)
	}
}

// register reserves an object-table slot; Marshal numbers objects in the
// order they start, before their children are read.
func (d *decoder) register() int {
	d.objects = append(d.objects, nil)
	return len(d.objects) - 1
}

func (d *decoder) value() (any, error) {
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case '0':
		return nil, nil
	case 'T':
		return true, nil
	case 'F':
		return false, nil
	case 'i':
		return d.fixnum()
	case ':', ';':
		d.pos--
		return d.symbol()
	case '"':
		slot := d.register()
		s, err := d.rawString()
		if err != nil {
			return nil, err
		}
		d.objects[slot] = s
		return s, nil
	case 'f':
		slot := d.register()
		s, err := d.rawString()
		if err != nil {
			return nil, err
		}
		f, err := parseFloat(s)
		if err != nil {
			return nil, err
		}
		d.objects[slot] = f
		return f, nil
	case 'I':
		inner, err := d.value()
		if err != nil {
			return nil, err
		}
		// Instance variables (the string encoding flag, usually :E) carry
		// nothing a job token needs.
		count, err := d.length()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			if _, err := d.symbol(); err != nil {
				return nil, err
			}
			if _, err := d.value(); err != nil {
				return nil, err
			}
		}
		return inner, nil
	case '[':
		slot := d.register()
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, n)
		d.objects[slot] = items
		for i := 0; i < n; i++ {
			item, err := d.value()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		d.objects[slot] = items
		return items, nil
	case '{':
		slot := d.register()
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		hash := make(map[string]any, n)
		d.objects[slot] = hash
		for i := 0; i < n; i++ {
			key, err := d.value()
			if err != nil {
				return nil, err
			}
			k, err := hashKey(key)
			if err != nil {
				return nil, err
			}
			val, err := d.value()
			if err != nil {
				return nil, err
			}
			hash[k] = val
		}
		return hash, nil
	case '@':
		idx, err := d.fixnum()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(d.objects)) {
			return nil, fmt.Errorf("%w: object link %d out of range", ErrFormat, idx)
		}
		return d.objects[idx], nil
	default:
		return nil, fmt.Errorf("%w: unsupported type tag %q at offset %d", ErrFormat, tag, d.pos-1)
	}
}

func hashKey(key any) (string, error) {
	switch k := key.(type) {
	case Symbol:
		return string(k), nil
	case string:
		return k, nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	default:
		return "", fmt.Errorf("%w: unsupported hash key %T", ErrFormat, key)
	}
}

func parseFloat(s string) (float64, error) {
	switch s {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	// Ruby 1.8 appended mantissa bytes after a NUL; only the text part matters.
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			s = s[:i]
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad float %q", ErrFormat, s)
	}
	return f, nil
}
