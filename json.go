package glean

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// JSONDumps returns json.dumps(v) with default settings. Symbolic values are
// realized first.
func (c *Ctx) JSONDumps(v Value) (Value, error) {
	vals, err := c.realizeMaybe("json.dumps", v)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := encodeJSON(&sb, vals[0]); err != nil {
		return nil, err
	}
	return Str(sb.String()), nil
}

func encodeJSON(sb *strings.Builder, v Value) error {
	switch v := v.(type) {
	case NoneType:
		sb.WriteString("null")
	case Bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Int:
		sb.WriteString(v.String())
	case Float:
		sb.WriteString(jsonFloat(float64(v)))
	case Str:
		writeJSONString(sb, string(v))

	case *List:
		sb.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := encodeJSON(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')

	case *Dict:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			key, err := jsonKey(k)
			if err != nil {
				return err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			writeJSONString(sb, key)
			sb.WriteString(": ")
			if err := encodeJSON(sb, v.Values()[i]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')

	default:
		return NewException(TypeError, "Object of type %s is not JSON serializable", v.Type())
	}
	return nil
}

// jsonKey returns the string form of a dict key.
func jsonKey(k Value) (string, error) {
	switch k := k.(type) {
	case Str:
		return string(k), nil
	case NoneType:
		return "null", nil
	case Bool:
		if k {
			return "true", nil
		}
		return "false", nil
	case Int:
		return k.String(), nil
	case Float:
		return jsonFloat(float64(k)), nil
	default:
		return "", NewException(TypeError, "keys must be str, int, float, bool or None, not %s", k.Type())
	}
}

func jsonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return formatPyFloat(f)
}

// writeJSONString writes s quoted with every non-ASCII code point escaped.
func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\b':
			sb.WriteString(`\b`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r >= 0x20 && r < 0x7f:
			sb.WriteRune(r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(sb, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(sb, `\u%04x`, r)
		}
	}
	sb.WriteByte('"')
}

// JSONLoads returns json.loads(s). Objects decode to dicts preserving key
// order. NaN & Infinity are accepted.
func (c *Ctx) JSONLoads(s Value) (Value, error) {
	vals, err := c.realizeMaybe("json.loads", s)
	if err != nil {
		return nil, err
	}

	var src string
	switch s := vals[0].(type) {
	case Str:
		src = string(s)
	case Bytes:
		if !utf8.ValidString(string(s)) {
			return nil, NewException(ValueError, "invalid utf-8 in JSON document")
		}
		src = string(s)
	default:
		return nil, NewException(TypeError, "the JSON object must be str, bytes or bytearray, not %s", s.Type())
	}

	d := &jsonDecoder{src: []rune(src)}
	d.skipSpace()
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.pos != len(d.src) {
		return nil, d.errorf(d.pos, "Extra data")
	}
	return v, nil
}

// jsonDecoder is a recursive descent decoder. Positions are in code points.
type jsonDecoder struct {
	src []rune
	pos int
}

// errorf returns a JSONDecodeError located at pos.
func (d *jsonDecoder) errorf(pos int, msg string) error {
	line, col := 1, pos+1
	for i := 0; i < pos && i < len(d.src); i++ {
		if d.src[i] == '\n' {
			line, col = line+1, pos-i
		}
	}
	return NewException(JSONDecodeError, "%s: line %d column %d (char %d)", msg, line, col, pos)
}

func (d *jsonDecoder) skipSpace() {
	for d.pos < len(d.src) {
		switch d.src[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *jsonDecoder) peek() rune {
	if d.pos < len(d.src) {
		return d.src[d.pos]
	}
	return -1
}

func (d *jsonDecoder) hasPrefix(lit string) bool {
	r := []rune(lit)
	if d.pos+len(r) > len(d.src) {
		return false
	}
	return string(d.src[d.pos:d.pos+len(r)]) == lit
}

func (d *jsonDecoder) value() (Value, error) {
	switch ch := d.peek(); {
	case ch == '"':
		s, err := d.string()
		if err != nil {
			return nil, err
		}
		return Str(s), nil
	case ch == '{':
		return d.object()
	case ch == '[':
		return d.array()
	case ch == 'n' && d.hasPrefix("null"):
		d.pos += 4
		return None, nil
	case ch == 't' && d.hasPrefix("true"):
		d.pos += 4
		return Bool(true), nil
	case ch == 'f' && d.hasPrefix("false"):
		d.pos += 5
		return Bool(false), nil
	case ch == 'N' && d.hasPrefix("NaN"):
		d.pos += 3
		return Float(math.NaN()), nil
	case ch == 'I' && d.hasPrefix("Infinity"):
		d.pos += 8
		return Float(math.Inf(1)), nil
	case ch == '-' && d.hasPrefix("-Infinity"):
		d.pos += 9
		return Float(math.Inf(-1)), nil
	case ch == '-' || (ch >= '0' && ch <= '9'):
		if v, ok := d.number(); ok {
			return v, nil
		}
	}
	return nil, d.errorf(d.pos, "Expecting value")
}

func (d *jsonDecoder) digits() int {
	start := d.pos
	for d.pos < len(d.src) && d.src[d.pos] >= '0' && d.src[d.pos] <= '9' {
		d.pos++
	}
	return d.pos - start
}

// number scans -?(0|[1-9]\d*)(\.\d+)?([eE][-+]?\d+)? at the current position.
func (d *jsonDecoder) number() (Value, bool) {
	start := d.pos
	if d.peek() == '-' {
		d.pos++
	}
	if d.peek() == '0' {
		d.pos++
	} else if d.digits() == 0 {
		d.pos = start
		return nil, false
	}
	intEnd := d.pos

	isFloat := false
	if d.peek() == '.' {
		mark := d.pos
		d.pos++
		if d.digits() == 0 {
			d.pos = mark
		} else {
			isFloat = true
		}
	}
	if ch := d.peek(); ch == 'e' || ch == 'E' {
		mark := d.pos
		d.pos++
		if ch := d.peek(); ch == '+' || ch == '-' {
			d.pos++
		}
		if d.digits() == 0 {
			d.pos = mark
		} else {
			isFloat = true
		}
	}

	text := string(d.src[start:d.pos])
	if !isFloat {
		x, _ := new(big.Int).SetString(string(d.src[start:intEnd]), 10)
		return Int{x: x}, true
	}
	f, _, err := big.ParseFloat(text, 10, 53, big.ToNearestEven)
	if err != nil {
		// Out of range exponents overflow to infinity.
		if strings.HasPrefix(text, "-") {
			return Float(math.Inf(-1)), true
		}
		return Float(math.Inf(1)), true
	}
	v, _ := f.Float64()
	return Float(v), true
}

// string scans a quoted string & decodes it.
func (d *jsonDecoder) string() (string, error) {
	start := d.pos
	d.pos++
	for {
		if d.pos >= len(d.src) {
			return "", d.errorf(start, "Unterminated string starting at")
		}
		switch ch := d.src[d.pos]; {
		case ch == '"':
			d.pos++
			var s string
			if err := json.Unmarshal([]byte(string(d.src[start:d.pos])), &s); err != nil {
				return "", d.errorf(start, "Invalid string")
			}
			return s, nil
		case ch == '\\':
			if d.pos+1 >= len(d.src) {
				return "", d.errorf(start, "Unterminated string starting at")
			}
			switch esc := d.src[d.pos+1]; esc {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				d.pos += 2
			case 'u':
				if d.pos+6 > len(d.src) || !isHex(d.src[d.pos+2:d.pos+6]) {
					return "", d.errorf(d.pos, "Invalid \\uXXXX escape")
				}
				d.pos += 6
			default:
				return "", d.errorf(d.pos, fmt.Sprintf("Invalid \\escape: %s", quoteStr(string(esc))))
			}
		case ch < 0x20:
			return "", d.errorf(d.pos, "Invalid control character at")
		default:
			d.pos++
		}
	}
}

func isHex(rs []rune) bool {
	for _, r := range rs {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}

func (d *jsonDecoder) object() (Value, error) {
	obj := NewDict()
	d.pos++
	d.skipSpace()
	if d.peek() == '}' {
		d.pos++
		return obj, nil
	}

	for {
		if d.peek() != '"' {
			return nil, d.errorf(d.pos, "Expecting property name enclosed in double quotes")
		}
		key, err := d.string()
		if err != nil {
			return nil, err
		}
		d.skipSpace()
		if d.peek() != ':' {
			return nil, d.errorf(d.pos, "Expecting ':' delimiter")
		}
		d.pos++
		d.skipSpace()

		v, err := d.value()
		if err != nil {
			return nil, err
		} else if err := obj.Set(Str(key), v); err != nil {
			return nil, err
		}

		d.skipSpace()
		switch d.peek() {
		case '}':
			d.pos++
			return obj, nil
		case ',':
			d.pos++
			d.skipSpace()
		default:
			return nil, d.errorf(d.pos, "Expecting ',' delimiter")
		}
	}
}

func (d *jsonDecoder) array() (Value, error) {
	arr := NewList()
	d.pos++
	d.skipSpace()
	if d.peek() == ']' {
		d.pos++
		return arr, nil
	}

	for {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, v)

		d.skipSpace()
		switch d.peek() {
		case ']':
			d.pos++
			return arr, nil
		case ',':
			d.pos++
			d.skipSpace()
		default:
			return nil, d.errorf(d.pos, "Expecting ',' delimiter")
		}
	}
}
