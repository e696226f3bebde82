// Package vcd reads Value Change Dump files.
//
// The parser is split in two phases that mirror the file layout: ParseHeader
// consumes the declaration section up to $enddefinitions and returns the scope
// tree, then Next yields simulation commands one at a time.
package vcd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parser reads a dump from an io.Reader.
type Parser struct {
	scanner *bufio.Scanner
	line    int
	tokLine int
	header  bool
}

// NewParser creates a Parser reading from r.
func NewParser(r io.Reader) *Parser {
	p := &Parser{line: 1}
	p.scanner = bufio.NewScanner(r)
	// Large buffer for long string values
	buf := make([]byte, 0, 64*1024)
	p.scanner.Buffer(buf, 10*1024*1024)
	p.scanner.Split(p.splitWords)
	return p
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// splitWords is bufio.ScanWords with line tracking. The delimiter after a
// token is left in the buffer so the next call counts it.
func (p *Parser) splitWords(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		if data[start] == '\n' {
			p.line++
		}
		start++
	}
	for i := start; i < len(data); i++ {
		if isSpace(data[i]) {
			p.tokLine = p.line
			return i, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		p.tokLine = p.line
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func (p *Parser) token() (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// mustToken is token where EOF is a syntax error.
func (p *Parser) mustToken(what string) (string, error) {
	tok, err := p.token()
	if err == io.EOF {
		return "", p.errorf("unexpected end of input, expected %s", what)
	}
	return tok, err
}

func (p *Parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.tokLine, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expectEnd(after string) error {
	tok, err := p.mustToken("$end")
	if err != nil {
		return err
	}
	if tok != "$end" {
		return p.errorf("expected $end after %s, got %q", after, tok)
	}
	return nil
}

// readUntilEnd collects tokens up to the next $end.
func (p *Parser) readUntilEnd(what string) ([]string, error) {
	var toks []string
	for {
		tok, err := p.mustToken("$end closing " + what)
		if err != nil {
			return nil, err
		}
		if tok == "$end" {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// ParseHeader reads the declaration section. It must be called once before
// Next.
func (p *Parser) ParseHeader() (*Header, error) {
	if p.header {
		return nil, fmt.Errorf("vcd: header already parsed")
	}
	h := &Header{}
	var stack []*Scope

	add := func(item ScopeItem) {
		if len(stack) == 0 {
			h.Items = append(h.Items, item)
			return
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, item)
	}

	for {
		tok, err := p.mustToken("$enddefinitions")
		if err != nil {
			return nil, err
		}
		switch tok {
		case "$scope":
			toks, err := p.readUntilEnd("$scope")
			if err != nil {
				return nil, err
			}
			if len(toks) != 2 {
				return nil, p.errorf("$scope expects a kind and a name, got %d tokens", len(toks))
			}
			s := &Scope{Kind: toks[0], Identifier: toks[1]}
			add(s)
			stack = append(stack, s)
		case "$upscope":
			if err := p.expectEnd("$upscope"); err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				return nil, p.errorf("$upscope without matching $scope")
			}
			stack = stack[:len(stack)-1]
		case "$var":
			v, err := p.parseVar()
			if err != nil {
				return nil, err
			}
			add(v)
		case "$timescale":
			toks, err := p.readUntilEnd(tok)
			if err != nil {
				return nil, err
			}
			h.Timescale = strings.Join(toks, "")
		case "$date":
			toks, err := p.readUntilEnd(tok)
			if err != nil {
				return nil, err
			}
			h.Date = strings.Join(toks, " ")
		case "$version":
			toks, err := p.readUntilEnd(tok)
			if err != nil {
				return nil, err
			}
			h.Version = strings.Join(toks, " ")
		case "$comment":
			toks, err := p.readUntilEnd(tok)
			if err != nil {
				return nil, err
			}
			h.Comments = append(h.Comments, strings.Join(toks, " "))
		case "$enddefinitions":
			if err := p.expectEnd(tok); err != nil {
				return nil, err
			}
			if len(stack) != 0 {
				return nil, p.errorf("scope %q not closed before $enddefinitions", stack[len(stack)-1].Identifier)
			}
			p.header = true
			return h, nil
		default:
			if !strings.HasPrefix(tok, "$") {
				return nil, p.errorf("unexpected %q in header", tok)
			}
			// Unknown declaration keyword, skip its body
			if _, err := p.readUntilEnd(tok); err != nil {
				return nil, err
			}
		}
	}
}

func (p *Parser) parseVar() (*Var, error) {
	toks, err := p.readUntilEnd("$var")
	if err != nil {
		return nil, err
	}
	if len(toks) < 4 {
		return nil, p.errorf("$var expects type, width, id and reference, got %d tokens", len(toks))
	}
	width, err := strconv.Atoi(toks[1])
	if err != nil || width < 0 {
		return nil, p.errorf("invalid $var width %q", toks[1])
	}
	v := &Var{
		Type:      toks[0],
		Width:     width,
		ID:        IDCode(toks[2]),
		Reference: toks[3],
	}
	if len(toks) > 4 {
		v.Index = strings.Join(toks[4:], "")
	}
	return v, nil
}

// Next returns the next simulation command, or io.EOF when the input is
// exhausted.
func (p *Parser) Next() (Command, error) {
	if !p.header {
		return Command{}, fmt.Errorf("vcd: Next called before ParseHeader")
	}
	tok, err := p.token()
	if err != nil {
		return Command{}, err
	}

	switch tok {
	case "$dumpvars", "$dumpall", "$dumpon", "$dumpoff":
		return Command{Kind: Begin, Text: tok[1:]}, nil
	case "$end":
		return Command{Kind: End}, nil
	case "$comment":
		toks, err := p.readUntilEnd(tok)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Comment, Text: strings.Join(toks, " ")}, nil
	}

	switch c := tok[0]; c {
	case '#':
		t, err := strconv.ParseUint(tok[1:], 10, 64)
		if err != nil {
			return Command{}, p.errorf("invalid timestamp %q", tok)
		}
		return Command{Kind: Timestamp, Time: t}, nil
	case 'b', 'B':
		bits := make([]Value, 0, len(tok)-1)
		for i := 1; i < len(tok); i++ {
			v, ok := parseValue(tok[i])
			if !ok {
				return Command{}, p.errorf("invalid bit %q in vector %q", tok[i], tok)
			}
			bits = append(bits, v)
		}
		id, err := p.mustToken("identifier")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: ChangeVector, ID: IDCode(id), Vector: bits}, nil
	case 'r', 'R':
		f, err := strconv.ParseFloat(tok[1:], 64)
		if err != nil {
			return Command{}, p.errorf("invalid real value %q", tok)
		}
		id, err := p.mustToken("identifier")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: ChangeReal, ID: IDCode(id), Real: f}, nil
	case 's', 'S':
		id, err := p.mustToken("identifier")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: ChangeString, ID: IDCode(id), Text: tok[1:]}, nil
	default:
		v, ok := parseValue(c)
		if !ok {
			return Command{}, p.errorf("unexpected %q in value change section", tok)
		}
		if len(tok) == 1 {
			return Command{}, p.errorf("scalar change %q has no identifier", tok)
		}
		return Command{Kind: ChangeScalar, ID: IDCode(tok[1:]), Scalar: v}, nil
	}
}
