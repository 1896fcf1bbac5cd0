// Package sem validates a parsed statement against a catalog snapshot:
// table and column existence, literal/attribute type compatibility and
// nullability. Errors reuse the parser's positioned CompileError list.
package sem

import (
	"fmt"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
	"github.com/tuanpm/slotdb/internal/sql/parser"
)

// TableSet is the schema snapshot a statement is checked and executed
// against. Definitions are cloned out of the catalog at planning time so
// execution never observes later DDL.
type TableSet map[string]*catalog.Table

// GenTableSet collects (clones of) every table the statement references.
// Unknown tables are simply absent; CheckSem reports them.
func GenTableSet(stmt parser.Statement, cat *catalog.Catalog) TableSet {
	ts := make(TableSet)
	add := func(name string) {
		if t, ok := cat.GetTable(name); ok {
			ts[name] = t.Clone()
		}
	}
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		add(s.Table)
	case *parser.InsertStmt:
		add(s.Table)
	case *parser.DeleteStmt:
		add(s.Table)
	case *parser.UpdateStmt:
		add(s.Table)
	case *parser.SelectStmt:
		add(s.Table)
	}
	return ts
}

type checker struct {
	ts   TableSet
	errs parser.ErrorList
}

// CheckSem validates the statement. A nil return means the statement is
// safe to plan.
func CheckSem(stmt parser.Statement, ts TableSet) parser.ErrorList {
	c := &checker{ts: ts}
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		c.checkCreateTable(s)
	case *parser.InsertStmt:
		c.checkInsert(s)
	case *parser.DeleteStmt:
		c.checkTableAndWhere(s.Table, s.Where)
	case *parser.UpdateStmt:
		c.checkUpdate(s)
	case *parser.SelectStmt:
		c.checkSelect(s)
	}
	return c.errs
}

func (c *checker) fail(kind parser.ErrorKind, tok lexer.Token, format string, args ...any) {
	c.errs = append(c.errs, parser.CompileError{
		Kind:  kind,
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	})
}

func (c *checker) table(name string, tok lexer.Token) (*catalog.Table, bool) {
	t, ok := c.ts[name]
	if !ok {
		c.fail(parser.SemUnknownTable, tok, "table `%s` does not exist", name)
	}
	return t, ok
}

func (c *checker) checkCreateTable(s *parser.CreateTableStmt) {
	if _, ok := c.ts[s.Table]; ok {
		c.fail(parser.SemDuplicateTable, lexer.Token{Type: lexer.TokenUnknown},
			"table `%s` already exists", s.Table)
	}
	seen := make(map[string]bool)
	for _, a := range s.Attrs {
		if seen[a.Name] {
			c.fail(parser.SemDuplicateColumn, lexer.Token{Type: lexer.TokenUnknown},
				"duplicate column `%s`", a.Name)
		}
		seen[a.Name] = true
	}
}

func (c *checker) checkInsert(s *parser.InsertStmt) {
	t, ok := c.table(s.Table, lexer.Token{Type: lexer.TokenUnknown})
	if !ok {
		return
	}
	if len(s.Values) != len(t.AttrList) {
		c.fail(parser.SemArityMismatch, lexer.Token{Type: lexer.TokenUnknown},
			"table `%s` has %d attributes, got %d values", s.Table, len(t.AttrList), len(s.Values))
		return
	}
	for i, v := range s.Values {
		c.checkValueForAttr(v, t.AttrList[i])
	}
}

func (c *checker) checkUpdate(s *parser.UpdateStmt) {
	t, ok := c.table(s.Table, lexer.Token{Type: lexer.TokenUnknown})
	if !ok {
		return
	}
	for _, as := range s.Assigns {
		attr, ok := t.Attr(as.Column)
		if !ok {
			c.fail(parser.SemUnknownColumn, as.Token,
				"column `%s` does not exist in table `%s`", as.Column, s.Table)
			continue
		}
		c.checkValueForAttr(as.Value, attr)
	}
	c.checkWhere(t, s.Where)
}

func (c *checker) checkSelect(s *parser.SelectStmt) {
	t, ok := c.table(s.Table, lexer.Token{Type: lexer.TokenUnknown})
	if !ok {
		return
	}
	for _, item := range s.Items {
		if item.Column != nil {
			c.checkColumnRef(t, item.Column)
		}
	}
	c.checkWhere(t, s.Where)
}

func (c *checker) checkTableAndWhere(name string, where parser.Expr) {
	t, ok := c.table(name, lexer.Token{Type: lexer.TokenUnknown})
	if !ok {
		return
	}
	c.checkWhere(t, where)
}

func (c *checker) checkValueForAttr(v *parser.ValueExpr, attr catalog.Attr) {
	switch v.Kind {
	case record.LitNull:
		if !attr.Nullable {
			c.fail(parser.SemNotNullable, v.Token,
				"attribute `%s` is not nullable", attr.Name)
		}
	case record.LitInteger:
		if attr.AttrType.Kind == catalog.Char {
			c.fail(parser.SemTypeMismatch, v.Token,
				"expected %s for attribute `%s`, found Integer", attr.AttrType, attr.Name)
		}
	case record.LitFloat:
		if attr.AttrType.Kind != catalog.Float {
			c.fail(parser.SemTypeMismatch, v.Token,
				"expected %s for attribute `%s`, found Float", attr.AttrType, attr.Name)
		}
	case record.LitString:
		if attr.AttrType.Kind != catalog.Char {
			c.fail(parser.SemTypeMismatch, v.Token,
				"expected %s for attribute `%s`, found String", attr.AttrType, attr.Name)
		}
	}
}

func (c *checker) checkColumnRef(t *catalog.Table, ref *parser.ColumnRef) (catalog.Attr, bool) {
	if ref.Table != "" && ref.Table != t.Name {
		c.fail(parser.SemUnknownTable, ref.Token,
			"table `%s` is not part of this statement", ref.Table)
		return catalog.Attr{}, false
	}
	attr, ok := t.Attr(ref.Column)
	if !ok {
		c.fail(parser.SemUnknownColumn, ref.Token,
			"column `%s` does not exist in table `%s`", ref.Column, t.Name)
		return catalog.Attr{}, false
	}
	return attr, ok
}

func (c *checker) checkWhere(t *catalog.Table, where parser.Expr) {
	if where == nil {
		return
	}
	c.checkCond(t, where)
}

// typeClass partitions operand types into comparable classes.
type typeClass int

const (
	classUnknown typeClass = iota
	classNumeric
	classString
)

func (c *checker) checkCond(t *catalog.Table, e parser.Expr) {
	switch x := e.(type) {
	case *parser.LogicExpr:
		c.checkCond(t, x.L)
		c.checkCond(t, x.R)
	case *parser.NotExpr:
		c.checkCond(t, x.E)
	case *parser.CmpExpr:
		lc, ltok := c.operandClass(t, x.L)
		rc, rtok := c.operandClass(t, x.R)
		if lc == classUnknown || rc == classUnknown {
			return // already reported
		}
		if lc != rc {
			tok := ltok
			if tok.Type == lexer.TokenUnknown {
				tok = rtok
			}
			c.fail(parser.SemTypeMismatch, tok,
				"operands of `%s` have incomparable types", x.Op)
		}
	default:
		c.fail(parser.SemTypeMismatch, lexer.Token{Type: lexer.TokenUnknown},
			"condition must be a comparison")
	}
}

func (c *checker) operandClass(t *catalog.Table, e parser.Expr) (typeClass, lexer.Token) {
	switch x := e.(type) {
	case *parser.ValueExpr:
		switch x.Kind {
		case record.LitInteger, record.LitFloat:
			return classNumeric, x.Token
		case record.LitString:
			return classString, x.Token
		default:
			c.fail(parser.SemTypeMismatch, x.Token, "NULL cannot be compared")
			return classUnknown, x.Token
		}
	case *parser.ColumnRef:
		attr, ok := c.checkColumnRef(t, x)
		if !ok {
			return classUnknown, x.Token
		}
		if attr.AttrType.Kind == catalog.Char {
			return classString, x.Token
		}
		return classNumeric, x.Token
	default:
		c.fail(parser.SemTypeMismatch, lexer.Token{Type: lexer.TokenUnknown},
			"nested predicates cannot be comparison operands")
		return classUnknown, lexer.Token{Type: lexer.TokenUnknown}
	}
}
