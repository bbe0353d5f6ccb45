package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// resolveTypeNode turns an astinput.TypeNode into a *semtype.Type, looking
// up named structs in the builder's struct registry. Mirrors
// original_source/compiler/src/semantics/types.rs's TypeNode::resolve.
func (b *builder) resolveTypeNode(t *astinput.TypeNode) (*semtype.Type, error) {
	if t == nil {
		return semtype.NewVoid(), nil
	}
	switch t.Kind {
	case astinput.TypeKindInteger:
		return semtype.NewInteger(), nil
	case astinput.TypeKindBool:
		return semtype.NewBool(), nil
	case astinput.TypeKindString:
		return semtype.NewString(), nil
	case astinput.TypeKindArray:
		elem, err := b.resolveTypeNode(t.Elem)
		if err != nil {
			return nil, err
		}
		return semtype.NewArray(elem), nil
	case astinput.TypeKindStruct:
		s, ok := b.structs.GetByName(t.Name)
		if !ok {
			return nil, qlerr.New(qlerr.UndefinedStruct, t.Name)
		}
		return semtype.NewNamedStruct(s.ID, s.Name, s.Fields), nil
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, string(t.Kind), "unrecognized type node kind %q", t.Kind)
	}
}
