// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/metasub/utils/errors"
)

// insertionToks defines the sets of tokens after which
// a semicolon is inserted.
var insertionToks = map[rune]bool{
	scanner.Ident:     true,
	scanner.String:    true,
	scanner.RawString: true,
	scanner.Int:       true,
	scanner.Float:     true,
	')':               true,
}

type parser struct {
	scanner scanner.Scanner
	errors  []string

	insertion bool
	scanned   rune
}

// parse parses a profile into a list of instance clauses, in the
// order in which they appear. The grammar is:
//
//	toplevel:
//		clause
//		clause ';' toplevel
//		<eof>
//
//	clause:
//		'param' ident assign
//		'param' ident assignlist
//		'instance' ident ident
//		'instance' ident ident assignlist
//
//	assign:
//		key = value
//
//	assignlist:
//		( assign ';' ... )
//
// Values are identifiers (including true and false), integers,
// floats and quoted strings. Values are kept in their textual form
// and are interpreted by the parameter they are assigned to.
func parse(r io.Reader) ([]*instance, error) {
	var p parser
	p.scanner.Whitespace &= ^uint64(1 << '\n')
	p.scanner.Mode = scanner.ScanIdents | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	p.scanner.IsIdentRune = func(ch rune, i int) bool {
		return unicode.IsLetter(ch) || (unicode.IsDigit(ch) || ch == '_' || ch == '-' || ch == '/') && i > 0
	}
	if named, ok := r.(interface{ Name() string }); ok {
		p.scanner.Position.Filename = named.Name()
	}
	p.scanner.Error = func(s *scanner.Scanner, msg string) {
		p.errorf("%s", msg)
	}
	p.scanner.Init(r)
	insts, ok := p.toplevel()
	if ok && len(p.errors) == 0 {
		return insts, nil
	}
	switch len(p.errors) {
	case 0:
		return nil, errors.E(errors.Invalid, "parse error")
	case 1:
		return nil, errors.E(errors.Invalid, "parse error: "+p.errors[0])
	default:
		return nil, errors.E(errors.Invalid, "parse error:\n"+strings.Join(p.errors, "\n"))
	}
}

func (p *parser) toplevel() (insts []*instance, ok bool) {
	for {
		switch tok := p.next(); tok {
		case scanner.EOF:
			return insts, true
		case ';':
		case scanner.Ident:
			inst := new(instance)
			switch p.text() {
			case "param":
				if p.next() != scanner.Ident {
					p.errorf("expected identifier")
					return nil, false
				}
				inst.name = p.text()
				switch p.peek() {
				case scanner.Ident:
					key, value, ok := p.assign()
					if !ok {
						return nil, false
					}
					inst.params = map[string]string{key: value}
				case '(':
					if inst.params, ok = p.assignlist(); !ok {
						return nil, false
					}
				default:
					p.next()
					p.errorf("unexpected: %s", p.text())
					return nil, false
				}
			case "instance":
				if p.next() != scanner.Ident {
					p.errorf("expected identifier")
					return nil, false
				}
				inst.name = p.text()
				if p.next() != scanner.Ident {
					p.errorf("expected identifier")
					return nil, false
				}
				inst.parent = p.text()
				if p.peek() == '(' {
					if inst.params, ok = p.assignlist(); !ok {
						return nil, false
					}
				}
			default:
				p.errorf("unrecognized toplevel clause: %s", p.text())
				return nil, false
			}
			insts = append(insts, inst)
		default:
			p.errorf("unexpected: %s", scanner.TokenString(tok))
			return nil, false
		}
	}
}

func (p *parser) assign() (key, value string, ok bool) {
	if p.next() != scanner.Ident {
		p.errorf("expected identifier")
		return
	}
	key = p.text()
	if p.next() != '=' {
		p.errorf(`expected "="`)
		return
	}
	value, ok = p.value()
	return
}

func (p *parser) assignlist() (assigns map[string]string, ok bool) {
	if p.next() != '(' {
		p.errorf(`expected "("`)
		return
	}
	assigns = make(map[string]string)
	for {
		switch p.peek() {
		case ';':
			p.next()
		case ')':
			p.next()
			return assigns, true
		case scanner.EOF:
			p.errorf(`expected ")"`)
			return nil, false
		default:
			key, value, ok := p.assign()
			if !ok {
				return nil, false
			}
			assigns[key] = value
		}
	}
}

func (p *parser) value() (string, bool) {
	switch p.next() {
	case scanner.Ident, scanner.Int, scanner.Float:
		return p.text(), true
	case '-':
		switch p.next() {
		case scanner.Int, scanner.Float:
			return "-" + p.text(), true
		}
	case scanner.String, scanner.RawString:
		text, err := strconv.Unquote(p.text())
		if err != nil {
			p.errorf("could not parse string: %v", err)
			return "", false
		}
		return text, true
	}
	p.errorf("not a value: %s", p.text())
	return "", false
}

func (p *parser) next() rune {
	tok := p.peek()
	p.insertion = insertionToks[tok]
	p.scanned = 0
	return tok
}

func (p *parser) peek() rune {
	for p.scanned == 0 {
		p.scanned = p.scanner.Scan()
		if p.scanned == '\n' && !p.insertion {
			p.scanned = 0
		}
	}
	if p.scanned == '\n' {
		return ';'
	}
	return p.scanned
}

func (p *parser) text() string {
	return p.scanner.TokenText()
}

func (p *parser) errorf(format string, args ...interface{}) {
	e := fmt.Sprintf("%s: %s", p.scanner.Position, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, e)
}

// splitPath splits an instance.param path.
func splitPath(path string) (inst, param string, err error) {
	i := strings.LastIndexByte(path, '.')
	if i <= 0 || i == len(path)-1 {
		return "", "", errors.E(errors.Invalid, "config: invalid parameter path", path)
	}
	return path[:i], path[i+1:], nil
}
