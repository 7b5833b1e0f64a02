package store

import (
	"fmt"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
)

// Bind walks every registered typedef-use, parameter type reference, and
// IDENT base reference and resolves it against the store. It is re-run
// after every ODM mutation that introduces cross-references. Any reference
// that fails to resolve is a startup error; Bind checks every reference
// rather than stopping at the first failure, and its error gives the number
// of failures and the first one.
func (s *Store) Bind() error {
	var errs []error
	for _, ns := range s.Namespaces() {
		for _, k := range objectKinds {
			for _, desc := range ns.ListObjects(k, true) {
				for _, p := range desc.Params {
					if err := s.bindType(p.Type); err != nil {
						errs = append(errs, fmt.Errorf("store: bind param %s of %s/%s/%s: %w", p.Name, ns.Org, ns.Model, desc.Name, err))
					}
				}
				if desc.ValueType != nil {
					if err := s.bindType(desc.ValueType); err != nil {
						errs = append(errs, fmt.Errorf("store: bind value type of %s/%s/%s: %w", ns.Org, ns.Model, desc.Name, err))
					}
				}
				if desc.ResultType != nil {
					if err := s.bindType(desc.ResultType); err != nil {
						errs = append(errs, fmt.Errorf("store: bind result type of %s/%s/%s: %w", ns.Org, ns.Model, desc.Name, err))
					}
				}
				for _, ot := range desc.OperandTypes {
					if err := s.bindType(ot.Type); err != nil {
						errs = append(errs, fmt.Errorf("store: bind operand %s of %s/%s/%s: %w", ot.Name, ns.Org, ns.Model, desc.Name, err))
					}
				}
				for _, base := range desc.Bases {
					if _, err := s.Resolve(base.Path); err != nil {
						errs = append(errs, fmt.Errorf("store: bind ident base of %s/%s/%s: %w", ns.Org, ns.Model, desc.Name, err))
					}
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("store: binding failed with %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// bindType resolves a single semantic type node's typedef-use indirection,
// recursing into compound forms.
func (s *Store) bindType(t *semtype.Type) error {
	if t == nil {
		return nil
	}
	switch t.Form {
	case semtype.FormTypedefUse:
		if t.Resolved != nil {
			return nil
		}
		res, err := s.Resolve(t.Ref.Path)
		if err != nil {
			return err
		}
		if res.Kind != ari.KindTypedef {
			return fmt.Errorf("store: typedef use %s resolves to non-typedef kind %s", t.Ref, res.Kind)
		}
		t.Resolved = res.Desc.ValueType
		return nil
	case semtype.FormUnion:
		for _, alt := range t.Alternatives {
			if err := s.bindType(alt); err != nil {
				return err
			}
		}
	case semtype.FormUList:
		return s.bindType(t.ItemType)
	case semtype.FormUMap:
		if err := s.bindType(t.KeyType); err != nil {
			return err
		}
		return s.bindType(t.ValType)
	case semtype.FormTBLT:
		for _, c := range t.Columns {
			if err := s.bindType(c.Type); err != nil {
				return err
			}
		}
	case semtype.FormSequence:
		for _, e := range t.Elements {
			if err := s.bindType(e.Type); err != nil {
				return err
			}
		}
	}
	return nil
}
