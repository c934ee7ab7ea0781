// Package printer renders decoded protocol values for the terminal, in
// the numbered multi-line style redis-cli made familiar.
package printer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robottwo/redline/internal/resp"
	"github.com/robottwo/redline/internal/styles"
)

// Printer writes rendered replies to an output stream. With color
// disabled it emits plain text, for piped output.
type Printer struct {
	out   io.Writer
	color bool
}

func New(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

// Print renders one reply value followed by a newline.
func (p *Printer) Print(v resp.Value) {
	fmt.Fprintln(p.out, p.Render(v))
}

// Render returns the display form of a value.
func (p *Printer) Render(v resp.Value) string {
	return p.render(v, "")
}

func (p *Printer) render(v resp.Value, indent string) string {
	switch v.Type {
	case resp.SimpleString:
		return p.paint(styles.Status, v.Str)
	case resp.Error, resp.BulkError:
		return p.paint(styles.Error, "(error) "+v.Str)
	case resp.Integer:
		return p.paint(styles.Integer, "(integer) "+strconv.FormatInt(v.Int, 10))
	case resp.Double:
		return p.paint(styles.Integer, "(double) "+strconv.FormatFloat(v.Float, 'g', -1, 64))
	case resp.BigNumber:
		return p.paint(styles.Integer, "(big number) "+v.Str)
	case resp.Boolean:
		if v.Bool {
			return p.paint(styles.Integer, "(true)")
		}
		return p.paint(styles.Integer, "(false)")
	case resp.BulkString:
		return strconv.Quote(v.Str)
	case resp.Verbatim:
		return v.Str
	case resp.Null:
		return p.paint(styles.Nil, "(nil)")
	case resp.Array, resp.Set, resp.Push:
		return p.renderList(v.Elems, indent)
	case resp.Map:
		return p.renderMap(v.Elems, indent)
	}
	return strconv.Quote(v.Str)
}

func (p *Printer) renderList(elems []resp.Value, indent string) string {
	if len(elems) == 0 {
		return p.paint(styles.Nil, "(empty array)")
	}

	numWidth := len(strconv.Itoa(len(elems)))
	childIndent := indent + strings.Repeat(" ", numWidth+2)

	var b strings.Builder
	for i, elem := range elems {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(indent)
		}
		fmt.Fprintf(&b, "%*d) ", numWidth, i+1)
		b.WriteString(p.render(elem, childIndent))
	}
	return b.String()
}

// renderMap prints field/value pairs as "field => value" lines, the RESP3
// map form.
func (p *Printer) renderMap(elems []resp.Value, indent string) string {
	if len(elems) == 0 {
		return p.paint(styles.Nil, "(empty map)")
	}

	var b strings.Builder
	for i := 0; i+1 < len(elems); i += 2 {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(indent)
		}
		b.WriteString(p.render(elems[i], indent))
		b.WriteString(" => ")
		b.WriteString(p.render(elems[i+1], indent))
	}
	return b.String()
}

func (p *Printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}
