// Package server is the statement entry point: given a SQL string, a
// catalog and a result sink, it runs lex, parse, semantic check, plan
// generation and drives the iterator tree to completion.
package server

import (
	"fmt"
	"strings"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/exec"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
	"github.com/tuanpm/slotdb/internal/sql/parser"
	"github.com/tuanpm/slotdb/internal/sql/sem"
)

// ResultHandler receives a statement's outcome: error strings, or a tuple
// stream terminated by ok=false.
type ResultHandler interface {
	HandleError(msg string)
	HandleTupleData(td record.TupleData, ok bool)
}

// SchemaAware is an optional ResultHandler extension: before streaming
// begins, the handler learns the statement's table definition so it can
// decode and label tuple bytes.
type SchemaAware interface {
	HandleSchema(def *catalog.Table)
}

// SQLHandler executes one statement end to end. Lex, parse and semantic
// errors are formatted and delivered through HandleError; a clean stream
// ends with HandleTupleData(nil, false).
func SQLHandler(input string, rh ResultHandler, cat *catalog.Catalog, mgr *heap.Manager) {
	line := lexer.Parse(input)
	if len(line.Errors) > 0 {
		rh.HandleError(formatLexErrors(line.Errors))
		return
	}

	stmt, perrs := parser.Parse(line.Tokens)
	if len(perrs) > 0 {
		rh.HandleError(formatCompileErrors(perrs))
		return
	}

	ts := sem.GenTableSet(stmt, cat)
	if serrs := sem.CheckSem(stmt, ts); len(serrs) > 0 {
		rh.HandleError(formatCompileErrors(serrs))
		return
	}

	if sa, ok := rh.(SchemaAware); ok {
		if def, ok := ts[statementTable(stmt)]; ok {
			sa.HandleSchema(def)
		}
	}

	plan := exec.GenPlan(stmt, ts, cat, mgr)
	plan.Open()
	defer plan.Close()
	for {
		td, ok := plan.Next()
		if !ok {
			if err := plan.Err(); err != nil {
				rh.HandleError(err.Error())
			} else {
				rh.HandleTupleData(nil, false)
			}
			return
		}
		rh.HandleTupleData(td, true)
	}
}

func statementTable(stmt parser.Statement) string {
	switch s := stmt.(type) {
	case *parser.InsertStmt:
		return s.Table
	case *parser.DeleteStmt:
		return s.Table
	case *parser.UpdateStmt:
		return s.Table
	case *parser.SelectStmt:
		return s.Table
	}
	return ""
}

// formatEntry renders one error. Synthetic/unknown tokens omit column and
// token text.
func formatEntry(kind fmt.Stringer, tok lexer.Token, msg string) string {
	if tok.Type == lexer.TokenUnknown {
		return fmt.Sprintf("%s: %s", kind, msg)
	}
	return fmt.Sprintf("%s %d `%s`: %s", kind, tok.Column, tok.Text, msg)
}

func formatLexErrors(errs []lexer.Error) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, formatEntry(e.Kind, e.Token, e.Msg))
	}
	return strings.Join(parts, "\n")
}

func formatCompileErrors(errs parser.ErrorList) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, formatEntry(e.Kind, e.Token, e.Msg))
	}
	return strings.Join(parts, "\n")
}
