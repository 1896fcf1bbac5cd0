// Package parser turns a token line into a statement AST with a
// recursive-descent parser over the regular SQL subset the engine executes.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	errs   ErrorList
}

// Parse builds a statement from a lexed line. A trailing semicolon is
// accepted and ignored. On failure every collected error is returned.
func Parse(tokens []lexer.Token) (Statement, ErrorList) {
	p := &parser{tokens: tokens}

	var stmt Statement
	switch p.cur().Type {
	case lexer.TokenCreate:
		stmt = p.parseCreateTable()
	case lexer.TokenInsert:
		stmt = p.parseInsert()
	case lexer.TokenDelete:
		stmt = p.parseDelete()
	case lexer.TokenUpdate:
		stmt = p.parseUpdate()
	case lexer.TokenSelect:
		stmt = p.parseSelect()
	default:
		p.fail(ParseUnexpectedToken, p.cur(), "expected a statement keyword")
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}

	if p.cur().Type == lexer.TokenSemicolon {
		p.advance()
	}
	if p.cur().Type != lexer.TokenEOF {
		p.fail(ParseUnexpectedToken, p.cur(), "trailing input after statement")
		return nil, p.errs
	}
	return stmt, nil
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	p.pos++
	return t
}

func (p *parser) fail(kind ErrorKind, tok lexer.Token, msg string) {
	if tok.Type == lexer.TokenEOF {
		// End-of-statement has no position; report it as synthetic.
		tok = lexer.Token{Type: lexer.TokenUnknown}
	}
	p.errs = append(p.errs, CompileError{Kind: kind, Token: tok, Msg: msg})
}

// expect consumes a token of the wanted type or records an error. ok=false
// aborts the production.
func (p *parser) expect(tt lexer.TokenType) (lexer.Token, bool) {
	t := p.cur()
	if t.Type != tt {
		if t.Type == lexer.TokenEOF {
			// Synthetic token: reported without position.
			p.fail(ParseMissingToken, lexer.Token{Type: lexer.TokenUnknown},
				fmt.Sprintf("expected `%s`, found end of statement", tt))
		} else {
			p.fail(ParseUnexpectedToken, t, fmt.Sprintf("expected `%s`", tt))
		}
		return t, false
	}
	p.advance()
	return t, true
}

// ----- CREATE TABLE -----

func (p *parser) parseCreateTable() Statement {
	p.advance() // CREATE
	if _, ok := p.expect(lexer.TokenTable); !ok {
		return nil
	}
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokenLParen); !ok {
		return nil
	}

	stmt := &CreateTableStmt{Table: name.Text}
	for {
		def, ok := p.parseAttrDef()
		if !ok {
			return nil
		}
		stmt.Attrs = append(stmt.Attrs, def)
		if p.cur().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokenRParen); !ok {
		return nil
	}
	return stmt
}

func (p *parser) parseAttrDef() (AttrDef, bool) {
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return AttrDef{}, false
	}
	def := AttrDef{Name: name.Text, Nullable: true}

	switch p.cur().Type {
	case lexer.TokenInt:
		p.advance()
		def.Type = catalog.AttrType{Kind: catalog.Int}
	case lexer.TokenFloat:
		p.advance()
		def.Type = catalog.AttrType{Kind: catalog.Float}
	case lexer.TokenChar:
		p.advance()
		if _, ok := p.expect(lexer.TokenLParen); !ok {
			return AttrDef{}, false
		}
		lenTok, ok := p.expect(lexer.TokenIntLit)
		if !ok {
			return AttrDef{}, false
		}
		n, err := strconv.Atoi(lenTok.Text)
		if err != nil || n == 0 {
			p.fail(ParseIllFormed, lenTok, "char length must be positive")
			return AttrDef{}, false
		}
		def.Type = catalog.AttrType{Kind: catalog.Char, Len: n}
		if _, ok := p.expect(lexer.TokenRParen); !ok {
			return AttrDef{}, false
		}
	default:
		p.fail(ParseUnexpectedToken, p.cur(), "expected an attribute type")
		return AttrDef{}, false
	}

	// Optional NULL / NOT NULL, then optional PRIMARY.
	switch p.cur().Type {
	case lexer.TokenNull:
		p.advance()
	case lexer.TokenNot:
		p.advance()
		if _, ok := p.expect(lexer.TokenNull); !ok {
			return AttrDef{}, false
		}
		def.Nullable = false
	}
	if p.cur().Type == lexer.TokenPrimary {
		p.advance()
		def.Primary = true
		def.Nullable = false
	}
	return def, true
}

// ----- INSERT -----

func (p *parser) parseInsert() Statement {
	p.advance() // INSERT
	if _, ok := p.expect(lexer.TokenInto); !ok {
		return nil
	}
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokenValues); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokenLParen); !ok {
		return nil
	}

	stmt := &InsertStmt{Table: name.Text}
	for {
		v, ok := p.parseValue()
		if !ok {
			return nil
		}
		stmt.Values = append(stmt.Values, v)
		if p.cur().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokenRParen); !ok {
		return nil
	}
	return stmt
}

// parseValue parses a literal: [-]int, [-]float, string, or NULL.
func (p *parser) parseValue() (*ValueExpr, bool) {
	neg := false
	first := p.cur()
	if first.Type == lexer.TokenMinus {
		neg = true
		p.advance()
	}
	t := p.cur()
	switch t.Type {
	case lexer.TokenIntLit, lexer.TokenFloatLit:
		p.advance()
		kind := record.LitInteger
		if t.Type == lexer.TokenFloatLit {
			kind = record.LitFloat
		}
		raw := t.Text
		if neg {
			raw = "-" + raw
			t = first
		}
		return &ValueExpr{Raw: raw, Kind: kind, Token: t}, true
	case lexer.TokenStringLit:
		if neg {
			p.fail(ParseUnexpectedToken, t, "cannot negate a string literal")
			return nil, false
		}
		p.advance()
		return &ValueExpr{Raw: t.Text, Kind: record.LitString, Token: t}, true
	case lexer.TokenNull:
		if neg {
			p.fail(ParseUnexpectedToken, t, "cannot negate NULL")
			return nil, false
		}
		p.advance()
		return &ValueExpr{Kind: record.LitNull, Token: t}, true
	default:
		p.fail(ParseUnexpectedToken, t, "expected a literal value")
		return nil, false
	}
}

// ----- DELETE -----

func (p *parser) parseDelete() Statement {
	p.advance() // DELETE
	if _, ok := p.expect(lexer.TokenFrom); !ok {
		return nil
	}
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil
	}
	stmt := &DeleteStmt{Table: name.Text}
	if where, ok := p.parseOptionalWhere(); ok {
		stmt.Where = where
	} else {
		return nil
	}
	return stmt
}

// ----- UPDATE -----

func (p *parser) parseUpdate() Statement {
	p.advance() // UPDATE
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokenSet); !ok {
		return nil
	}

	stmt := &UpdateStmt{Table: name.Text}
	for {
		col, ok := p.expect(lexer.TokenIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokenEq); !ok {
			return nil
		}
		v, ok := p.parseValue()
		if !ok {
			return nil
		}
		stmt.Assigns = append(stmt.Assigns, Assignment{Column: col.Text, Token: col, Value: v})
		if p.cur().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	if where, ok := p.parseOptionalWhere(); ok {
		stmt.Where = where
	} else {
		return nil
	}
	return stmt
}

// ----- SELECT -----

func (p *parser) parseSelect() Statement {
	p.advance() // SELECT
	stmt := &SelectStmt{}

	for {
		item, ok := p.parseSelectItem()
		if !ok {
			return nil
		}
		stmt.Items = append(stmt.Items, item)
		if p.cur().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}

	if _, ok := p.expect(lexer.TokenFrom); !ok {
		return nil
	}
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil
	}
	stmt.Table = name.Text
	if where, ok := p.parseOptionalWhere(); ok {
		stmt.Where = where
	} else {
		return nil
	}
	return stmt
}

var aggFuncs = map[string]AggFunc{
	"sum":   AggSum,
	"avg":   AggAvg,
	"count": AggCount,
	"max":   AggMax,
	"min":   AggMin,
}

func (p *parser) parseSelectItem() (SelectItem, bool) {
	t := p.cur()
	if t.Type == lexer.TokenStar {
		p.advance()
		return SelectItem{Star: true}, true
	}
	if t.Type != lexer.TokenIdent {
		p.fail(ParseUnexpectedToken, t, "expected `*`, a column or an aggregate call")
		return SelectItem{}, false
	}

	// Aggregate call: agg '(' ('*' | colref) ')'.
	if agg, ok := aggFuncs[strings.ToLower(t.Text)]; ok && p.peekType() == lexer.TokenLParen {
		p.advance() // func name
		p.advance() // '('
		item := SelectItem{Agg: agg}
		if p.cur().Type == lexer.TokenStar {
			p.advance()
			item.Star = true
		} else {
			col, ok := p.parseColumnRef()
			if !ok {
				return SelectItem{}, false
			}
			item.Column = col
		}
		if _, ok := p.expect(lexer.TokenRParen); !ok {
			return SelectItem{}, false
		}
		return item, true
	}

	col, ok := p.parseColumnRef()
	if !ok {
		return SelectItem{}, false
	}
	return SelectItem{Column: col}, true
}

func (p *parser) peekType() lexer.TokenType {
	if p.pos+1 >= len(p.tokens) {
		return lexer.TokenEOF
	}
	return p.tokens[p.pos+1].Type
}

func (p *parser) parseColumnRef() (*ColumnRef, bool) {
	name, ok := p.expect(lexer.TokenIdent)
	if !ok {
		return nil, false
	}
	ref := &ColumnRef{Column: name.Text, Token: name}
	if p.cur().Type == lexer.TokenDot {
		p.advance()
		attr, ok := p.expect(lexer.TokenIdent)
		if !ok {
			return nil, false
		}
		ref.Table = name.Text
		ref.Column = attr.Text
		ref.Token = attr
	}
	return ref, true
}

// ----- WHERE -----

func (p *parser) parseOptionalWhere() (Expr, bool) {
	if p.cur().Type != lexer.TokenWhere {
		return nil, true
	}
	p.advance()
	return p.parseOrExpr()
}

func (p *parser) parseOrExpr() (Expr, bool) {
	l, ok := p.parseAndExpr()
	if !ok {
		return nil, false
	}
	for p.cur().Type == lexer.TokenOr {
		p.advance()
		r, ok := p.parseAndExpr()
		if !ok {
			return nil, false
		}
		l = &LogicExpr{Op: LogicOr, L: l, R: r}
	}
	return l, true
}

func (p *parser) parseAndExpr() (Expr, bool) {
	l, ok := p.parseNotExpr()
	if !ok {
		return nil, false
	}
	for p.cur().Type == lexer.TokenAnd {
		p.advance()
		r, ok := p.parseNotExpr()
		if !ok {
			return nil, false
		}
		l = &LogicExpr{Op: LogicAnd, L: l, R: r}
	}
	return l, true
}

func (p *parser) parseNotExpr() (Expr, bool) {
	if p.cur().Type == lexer.TokenNot {
		p.advance()
		e, ok := p.parseNotExpr()
		if !ok {
			return nil, false
		}
		return &NotExpr{E: e}, true
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, bool) {
	if p.cur().Type == lexer.TokenLParen {
		p.advance()
		e, ok := p.parseOrExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.TokenRParen); !ok {
			return nil, false
		}
		return e, true
	}

	l, ok := p.parseOperand()
	if !ok {
		return nil, false
	}
	op, ok := p.parseCmpOp()
	if !ok {
		return nil, false
	}
	r, ok := p.parseOperand()
	if !ok {
		return nil, false
	}
	return &CmpExpr{Op: op, L: l, R: r}, true
}

func (p *parser) parseOperand() (Expr, bool) {
	switch p.cur().Type {
	case lexer.TokenIdent:
		ref, ok := p.parseColumnRef()
		if !ok {
			return nil, false
		}
		return ref, true
	default:
		v, ok := p.parseValue()
		if !ok {
			return nil, false
		}
		return v, true
	}
}

func (p *parser) parseCmpOp() (CmpOp, bool) {
	t := p.advance()
	switch t.Type {
	case lexer.TokenEq:
		return CmpEq, true
	case lexer.TokenNe:
		return CmpNe, true
	case lexer.TokenLt:
		return CmpLt, true
	case lexer.TokenLe:
		return CmpLe, true
	case lexer.TokenGt:
		return CmpGt, true
	case lexer.TokenGe:
		return CmpGe, true
	default:
		p.fail(ParseUnexpectedToken, t, "expected a comparison operator")
		return CmpEq, false
	}
}
