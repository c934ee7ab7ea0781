// Package resp implements the value model and wire codec for the RESP
// protocol (both RESP2 and RESP3 framings), as spoken by redis-compatible
// key/value servers.
package resp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Type identifies the kind of a decoded protocol value.
type Type byte

const (
	SimpleString Type = '+'
	Error        Type = '-'
	Integer      Type = ':'
	BulkString   Type = '$'
	Array        Type = '*'
	Null         Type = '_'
	Boolean      Type = '#'
	Double       Type = ','
	BigNumber    Type = '('
	BulkError    Type = '!'
	Verbatim     Type = '='
	Map          Type = '%'
	Set          Type = '~'
	Push         Type = '>'
)

// Value is a single decoded protocol value. Aggregate types (Array, Map,
// Set, Push) carry their children in Elems; a Map's entries appear as
// alternating field/value elements, in wire order.
type Value struct {
	Type  Type
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Elems []Value
}

// IsError reports whether the value is an error reply.
func (v Value) IsError() bool {
	return v.Type == Error || v.Type == BulkError
}

// IsNull reports whether the value is a null reply, in either the RESP3
// form or the RESP2 nil-bulk/nil-array form.
func (v Value) IsNull() bool {
	return v.Type == Null
}

// Text returns the string payload of any string-like value, and an empty
// string for everything else.
func (v Value) Text() string {
	switch v.Type {
	case SimpleString, Error, BulkString, BulkError, Verbatim, BigNumber:
		return v.Str
	}
	return ""
}

// String renders the value in a compact single-line form, for logging and
// for the clipboard builtin. Display formatting lives in the printer
// package instead.
func (v Value) String() string {
	switch v.Type {
	case SimpleString, BigNumber:
		return v.Str
	case Error, BulkError:
		return "(error) " + v.Str
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case BulkString, Verbatim:
		return v.Str
	case Null:
		return "(nil)"
	case Boolean:
		if v.Bool {
			return "(true)"
		}
		return "(false)"
	case Double:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case Array, Set, Push, Map:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return ""
}

// EncodeCommand writes a client command as an array of bulk strings, the
// only framing servers accept for requests.
func EncodeCommand(w io.Writer, args ...string) error {
	var b strings.Builder
	b.WriteByte('*')
	b.WriteString(strconv.Itoa(len(args)))
	b.WriteString("\r\n")
	for _, arg := range args {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(len(arg)))
		b.WriteString("\r\n")
		b.WriteString(arg)
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Wire-declared sizes are untrusted. Anything beyond these limits is
// treated as a malformed stream rather than allocated; the bulk limit
// matches the server's own proto-max-bulk-len default.
const (
	maxBulkLen = 512 << 20
	maxElems   = 16 << 20
)

// Decoder reads protocol values from a stream.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r *bufio.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadValue decodes the next complete value from the stream. It blocks
// until one is available or the stream fails.
func (d *Decoder) ReadValue() (Value, error) {
	t, err := d.r.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch Type(t) {
	case SimpleString, Error, BigNumber:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Type(t), Str: line}, nil

	case Integer:
		n, err := d.readInt()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Integer, Int: n}, nil

	case BulkString, BulkError, Verbatim:
		s, null, err := d.readBulk()
		if err != nil {
			return Value{}, err
		}
		if null {
			return Value{Type: Null}, nil
		}
		if Type(t) == Verbatim && len(s) >= 4 {
			// Strip the "txt:"/"mkd:" prefix.
			s = s[4:]
		}
		return Value{Type: Type(t), Str: s}, nil

	case Null:
		if _, err := d.readLine(); err != nil {
			return Value{}, err
		}
		return Value{Type: Null}, nil

	case Boolean:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Boolean, Bool: line == "t"}, nil

	case Double:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Value{}, fmt.Errorf("resp: bad double %q: %w", line, err)
		}
		return Value{Type: Double, Float: f}, nil

	case Array, Set, Push:
		n, err := d.readInt()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{Type: Null}, nil
		}
		if n > maxElems {
			return Value{}, fmt.Errorf("resp: aggregate of %d elements exceeds limit", n)
		}
		return d.readElems(Type(t), int(n))

	case Map:
		n, err := d.readInt()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{Type: Null}, nil
		}
		if n > maxElems/2 {
			return Value{}, fmt.Errorf("resp: map of %d entries exceeds limit", n)
		}
		// A map of n entries carries 2n child values.
		return d.readElems(Map, int(n)*2)

	default:
		return Value{}, fmt.Errorf("resp: unknown type byte %q", t)
	}
}

func (d *Decoder) readElems(t Type, n int) (Value, error) {
	// The count is still only a claim from the wire; grow instead of
	// trusting it with one huge allocation.
	hint := n
	if hint > 1024 {
		hint = 1024
	}
	elems := make([]Value, 0, hint)
	for i := 0; i < n; i++ {
		e, err := d.ReadValue()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, e)
	}
	return Value{Type: t, Elems: elems}, nil
}

func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", fmt.Errorf("resp: malformed line terminator")
	}
	return line[:len(line)-2], nil
}

func (d *Decoder) readInt() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("resp: bad integer %q: %w", line, err)
	}
	return n, nil
}

func (d *Decoder) readBulk() (string, bool, error) {
	n, err := d.readInt()
	if err != nil {
		return "", false, err
	}
	if n < 0 {
		return "", true, nil
	}
	if n > maxBulkLen {
		return "", false, fmt.Errorf("resp: bulk length %d exceeds limit", n)
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", false, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return "", false, fmt.Errorf("resp: malformed bulk terminator")
	}
	return string(buf[:n]), false, nil
}
