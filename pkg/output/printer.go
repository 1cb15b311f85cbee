// Package output renders batch results for a terminal.
package output

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Format is the body format requested from the server.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXML, "":
		return FormatXML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want xml or json)", s)
	}
}

// Printer writes response bodies to W.
type Printer struct {
	W      io.Writer
	Format Format
	Pretty bool
	Indent string
}

// NewPrinter creates a printer with two-space indentation.
func NewPrinter(w io.Writer, format Format, prettyPrint bool) *Printer {
	return &Printer{W: w, Format: format, Pretty: prettyPrint, Indent: "  "}
}

// Print writes one body. Raw bodies are followed by a comma so a stream of
// records stays separable; pretty bodies get their own lines. A body that
// does not parse in the expected format is written unchanged.
func (p *Printer) Print(body string) error {
	if !p.Pretty {
		_, err := fmt.Fprintf(p.W, "%s,", body)
		return err
	}

	var out []byte
	switch p.Format {
	case FormatJSON:
		out = p.prettyJSON(body)
	default:
		out = p.prettyXML(body)
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	_, err := p.W.Write(out)
	return err
}

func (p *Printer) prettyJSON(body string) []byte {
	if !gjson.Valid(body) {
		return []byte(body)
	}
	opts := *pretty.DefaultOptions
	opts.Indent = p.indent()
	return pretty.PrettyOptions([]byte(body), &opts)
}

func (p *Printer) prettyXML(body string) []byte {
	out, err := IndentXML(body, p.indent())
	if err != nil {
		return []byte(body)
	}
	return out
}

func (p *Printer) indent() string {
	if p.Indent == "" {
		return "  "
	}
	return p.Indent
}

// IndentXML re-indents an XML document token by token. Names keep their
// prefixes as written and the document must be well formed.
func IndentXML(body, indent string) ([]byte, error) {
	dec := xml.NewDecoder(strings.NewReader(body))

	var (
		buf    bytes.Buffer
		open   []xml.Name
		inline bool
		seen   bool
	)
	newline := func() {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indent, len(open)))
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			newline()
			buf.WriteByte('<')
			buf.WriteString(qualifiedName(t.Name))
			for _, attr := range t.Attr {
				buf.WriteByte(' ')
				buf.WriteString(qualifiedName(attr.Name))
				buf.WriteString(`="`)
				if err := xml.EscapeText(&buf, []byte(attr.Value)); err != nil {
					return nil, fmt.Errorf("encode xml: %w", err)
				}
				buf.WriteByte('"')
			}
			buf.WriteByte('>')
			open = append(open, t.Name)
			inline = true
		case xml.EndElement:
			if len(open) == 0 || open[len(open)-1] != t.Name {
				return nil, fmt.Errorf("parse xml: unexpected </%s>", qualifiedName(t.Name))
			}
			open = open[:len(open)-1]
			if !inline {
				newline()
			}
			buf.WriteString("</" + qualifiedName(t.Name) + ">")
			inline = false
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			if len(open) == 0 {
				return nil, fmt.Errorf("parse xml: text outside the root element")
			}
			textEscaper.WriteString(&buf, string(t))
			inline = true
		case xml.ProcInst:
			newline()
			buf.WriteString("<?" + t.Target)
			if len(t.Inst) > 0 {
				buf.WriteByte(' ')
				buf.Write(t.Inst)
			}
			buf.WriteString("?>")
			inline = false
		case xml.Comment:
			newline()
			buf.WriteString("<!--" + string(t) + "-->")
			inline = false
		case xml.Directive:
			newline()
			buf.WriteString("<!" + string(t) + ">")
			inline = false
		}
		seen = true
	}

	if !seen {
		return nil, fmt.Errorf("parse xml: empty document")
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("parse xml: unclosed <%s>", qualifiedName(open[len(open)-1]))
	}
	return buf.Bytes(), nil
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
