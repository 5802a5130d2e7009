package pdf

import (
	"fmt"
	"strconv"
)

// Lexer reads PDF syntax from a byte slice. Positions are explicit so the
// caller can save and rewind, which keeps "N G R" reference detection
// simple.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer over raw PDF bytes.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current read position.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves the read position.
func (l *Lexer) Seek(pos int) { l.pos = pos }

// EOF reports whether the lexer is exhausted.
func (l *Lexer) EOF() bool {
	l.SkipWhitespace()
	return l.pos >= len(l.data)
}

func isWhitespace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// SkipWhitespace advances past whitespace and comments.
func (l *Lexer) SkipWhitespace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		break
	}
}

// ReadObject reads the next object, combining "N G R" token runs into an
// IndirectObject.
func (l *Lexer) ReadObject() (Object, error) {
	obj, err := l.readValue()
	if err != nil {
		return nil, err
	}

	// A number may start an indirect reference. Look ahead for "G R" and
	// rewind when the pattern does not hold.
	if num, ok := obj.(NumberObject); ok && num == NumberObject(int(num)) && num >= 0 {
		save := l.pos
		gen, err := l.readValue()
		if err == nil {
			if g, ok := gen.(NumberObject); ok && g == NumberObject(int(g)) && g >= 0 {
				after := l.pos
				kw, err := l.readValue()
				if err == nil {
					if k, ok := kw.(KeywordObject); ok && k == "R" {
						return IndirectObject{ObjectNumber: int(num), Generation: int(g)}, nil
					}
				}
				_ = after
			}
		}
		l.pos = save
	}
	return obj, nil
}

func (l *Lexer) readValue() (Object, error) {
	l.SkipWhitespace()
	if l.pos >= len(l.data) {
		return nil, fmt.Errorf("unexpected end of input at offset %d", l.pos)
	}

	c := l.data[l.pos]
	switch {
	case c == '/':
		return l.readName()
	case c == '(':
		return l.readLiteralString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDictionary()
		}
		return l.readHexString()
	case c == '[':
		return l.readArray()
	case c == ']', c == '>', c == ')', c == '}':
		return nil, fmt.Errorf("unexpected delimiter %q at offset %d", c, l.pos)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumber()
	default:
		return l.readKeyword()
	}
}

func (l *Lexer) readName() (Object, error) {
	start := l.pos
	l.pos++ // slash
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	name := string(l.data[start:l.pos])
	// #xx escapes inside names
	if idx := indexByte(name, '#'); idx >= 0 {
		decoded := make([]byte, 0, len(name))
		for i := 0; i < len(name); i++ {
			if name[i] == '#' && i+2 < len(name) {
				if v, err := strconv.ParseUint(name[i+1:i+3], 16, 8); err == nil {
					decoded = append(decoded, byte(v))
					i += 2
					continue
				}
			}
			decoded = append(decoded, name[i])
		}
		name = string(decoded)
	}
	return NameObject(name), nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func (l *Lexer) readLiteralString() (Object, error) {
	l.pos++ // opening paren
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch c {
		case '\\':
			l.pos++
			if l.pos >= len(l.data) {
				return nil, fmt.Errorf("unterminated string escape")
			}
			e := l.data[l.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// line continuation; swallow optional \n
				if l.pos+1 < len(l.data) && l.data[l.pos+1] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos+1 < len(l.data); k++ {
						n := l.data[l.pos+1]
						if n < '0' || n > '7' {
							break
						}
						v = v*8 + int(n-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			l.pos++
		case '(':
			depth++
			out = append(out, c)
			l.pos++
		case ')':
			depth--
			if depth == 0 {
				l.pos++
				return StringObject(out), nil
			}
			out = append(out, c)
			l.pos++
		default:
			out = append(out, c)
			l.pos++
		}
	}
	return nil, fmt.Errorf("unterminated literal string")
}

func (l *Lexer) readHexString() (Object, error) {
	l.pos++ // '<'
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '>' {
			l.pos++
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := 0; i < len(out); i++ {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string digit: %w", err)
				}
				out[i] = byte(v)
			}
			return HexStringObject(out), nil
		}
		if !isWhitespace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func (l *Lexer) readArray() (Object, error) {
	l.pos++ // '['
	arr := ArrayObject{}
	for {
		l.SkipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *Lexer) readDictionary() (Object, error) {
	l.pos += 2 // '<<'
	dict := DictionaryObject{}
	for {
		l.SkipWhitespace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return dict, nil
		}
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		keyObj, err := l.readValue()
		if err != nil {
			return nil, err
		}
		key, ok := keyObj.(NameObject)
		if !ok {
			return nil, fmt.Errorf("dictionary key is not a name: %v", keyObj)
		}
		val, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[string(key)] = val
	}
}

func (l *Lexer) readNumber() (Object, error) {
	start := l.pos
	if l.data[l.pos] == '+' || l.data[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			l.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad number at offset %d: %w", start, err)
	}
	return NumberObject(v), nil
}

func (l *Lexer) readKeyword() (Object, error) {
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return nil, fmt.Errorf("empty token at offset %d", start)
	}
	kw := string(l.data[start:l.pos])
	switch kw {
	case "true":
		return BooleanObject(true), nil
	case "false":
		return BooleanObject(false), nil
	case "null":
		return NullObject{}, nil
	}
	return KeywordObject(kw), nil
}
