package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// prescanStructs walks every function body looking for named struct
// literals and registers each distinct name's shape the first time it is
// seen, before any TypeNode in a table column or function signature is
// resolved. A field whose literal value isn't itself a literal (an ident,
// a call, ...) seeds an Any placeholder — that cell downcasts to its real
// type the first time the field is actually assigned or read in pass two.
//
// There is no separate struct-declaration surface in the input AST (see
// astinput.Program): a named struct's shape is established by use, the way
// original_source/compiler/src/semantics/data.rs registers a struct
// lazily from its first StructLit rather than from a forward declaration.
func (b *builder) prescanStructs(fns []astinput.Function) error {
	for i := range fns {
		for j := range fns[i].Body {
			if err := b.scanStatement(&fns[i].Body[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) scanStatement(s *astinput.Statement) error {
	switch s.Kind {
	case astinput.StmtVarDecl, astinput.StmtVarAssign:
		if s.Expr != nil {
			return b.scanExpression(s.Expr)
		}
	case astinput.StmtExpr:
		if s.ExprStmt != nil {
			return b.scanExpression(s.ExprStmt)
		}
	case astinput.StmtIf:
		for bi := range s.Branches {
			if err := b.scanExpression(&s.Branches[bi].Condition); err != nil {
				return err
			}
			for si := range s.Branches[bi].Body {
				if err := b.scanStatement(&s.Branches[bi].Body[si]); err != nil {
					return err
				}
			}
		}
		for si := range s.Else {
			if err := b.scanStatement(&s.Else[si]); err != nil {
				return err
			}
		}
	case astinput.StmtLoop:
		if s.Cond != nil {
			if err := b.scanExpression(s.Cond); err != nil {
				return err
			}
		}
		for si := range s.Body {
			if err := b.scanStatement(&s.Body[si]); err != nil {
				return err
			}
		}
	case astinput.StmtReturn:
		if s.Expr != nil {
			return b.scanExpression(s.Expr)
		}
	}
	return nil
}

func (b *builder) scanExpression(e *astinput.Expression) error {
	switch e.Kind {
	case astinput.ExprArrayLit:
		for i := range e.Elements {
			if err := b.scanExpression(&e.Elements[i]); err != nil {
				return err
			}
		}
	case astinput.ExprStructLit:
		fields := make(map[string]*semtype.Type, len(e.Fields))
		order := make([]string, 0, len(e.Fields))
		for name, v := range e.Fields {
			v := v
			if err := b.scanExpression(&v); err != nil {
				return err
			}
			fields[name] = b.inferLiteralType(&v)
			order = append(order, name)
		}
		if e.StructName != "" && !b.structs.ContainsName(e.StructName) {
			if _, err := b.registerStruct(e.StructName, order, fields); err != nil {
				return qlerr.New(qlerr.DuplicateTableDefinition, e.StructName)
			}
		}
	case astinput.ExprFieldAccess:
		return b.scanExpression(e.Receiver)
	case astinput.ExprIndex:
		if err := b.scanExpression(e.Receiver); err != nil {
			return err
		}
		return b.scanExpression(e.Index)
	case astinput.ExprBinary, astinput.ExprCompare:
		if err := b.scanExpression(e.Left); err != nil {
			return err
		}
		return b.scanExpression(e.Right)
	case astinput.ExprCall, astinput.ExprMethodCall:
		if e.Receiver != nil {
			if err := b.scanExpression(e.Receiver); err != nil {
				return err
			}
		}
		for i := range e.Args {
			if err := b.scanExpression(&e.Args[i]); err != nil {
				return err
			}
		}
	case astinput.ExprClosure:
		for i := range e.Body {
			if err := b.scanStatement(&e.Body[i]); err != nil {
				return err
			}
		}
		if e.BodyExpr != nil {
			return b.scanExpression(e.BodyExpr)
		}
	case astinput.ExprQuery:
		if e.Query != nil && e.Query.Value != nil {
			return b.scanExpression(e.Query.Value)
		}
	}
	return nil
}

// inferLiteralType gives a best-effort SemType to a struct-literal field
// seen before full expression building runs. Anything not directly a
// literal resolves to Any and is refined later by TryDowncast.
func (b *builder) inferLiteralType(e *astinput.Expression) *semtype.Type {
	switch e.Kind {
	case astinput.ExprIntLit:
		return semtype.NewInteger()
	case astinput.ExprBoolLit:
		return semtype.NewBool()
	case astinput.ExprStringLit:
		return semtype.NewString()
	case astinput.ExprArrayLit:
		elem := semtype.NewAny()
		if len(e.Elements) > 0 {
			elem = b.inferLiteralType(&e.Elements[0])
		}
		return semtype.NewArray(elem)
	case astinput.ExprStructLit:
		if e.StructName != "" {
			if s, ok := b.structs.GetByName(e.StructName); ok {
				return semtype.NewNamedStruct(s.ID, s.Name, s.Fields)
			}
		}
		fields := make(map[string]*semtype.Type, len(e.Fields))
		for name, v := range e.Fields {
			v := v
			fields[name] = b.inferLiteralType(&v)
		}
		return semtype.NewAnonymousStruct(fields)
	default:
		return semtype.NewAny()
	}
}
