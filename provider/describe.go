// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"reflect"

	"github.com/pkg/errors"
)

// FieldDescription describes how a struct field is serialized.
type FieldDescription struct {
	// GoName is the name of the field in the Go struct.
	GoName string
	// ElementName is the name of the BSON element the field is written to.
	ElementName string
	// Type is the Go type of the field.
	Type reflect.Type
	// Index is the index sequence for reflect.Value.FieldByIndex. It has more than one entry
	// for fields promoted from inlined structs.
	Index []int
	OmitEmpty bool
	// Skipped fields are not serialized; they are still described so that callers can tell
	// them apart from fields that do not exist.
	Skipped bool
}

// TypeDescription is the provider's view of a struct type.
type TypeDescription struct {
	Type                reflect.Type
	MemberSerialization MemberSerialization
	Fields              []*FieldDescription

	byGoName map[string]*FieldDescription
}

// Field returns the description of the field with the given Go name.
func (td *TypeDescription) Field(goName string) (*FieldDescription, bool) {
	fd, ok := td.byGoName[goName]
	return fd, ok
}

// Describe returns the description of the struct type t, or of the struct t points to.
// Descriptions are cached.
func (p *Provider) Describe(t reflect.Type) (*TypeDescription, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrNotStruct, "cannot describe %v", t)
	}

	if td, ok := p.descriptions.Load(t); ok {
		return td.(*TypeDescription), nil
	}

	mode := p.MemberSerializationOf(t)
	td := &TypeDescription{
		Type:                t,
		MemberSerialization: mode,
		byGoName:            make(map[string]*FieldDescription),
	}
	p.describeFields(td, t, mode, nil)

	actual, _ := p.descriptions.LoadOrStore(t, td)
	return actual.(*TypeDescription), nil
}

// describeFields walks the fields of t with the same rules the struct codec uses. Inlined
// structs are described with the member serialization of the outer type.
func (p *Provider) describeFields(td *TypeDescription, t reflect.Type, mode MemberSerialization, index []int) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}

		fieldIndex := make([]int, len(index)+1)
		copy(fieldIndex, index)
		fieldIndex[len(index)] = i

		st := parseJSONTags(sf, mode)
		if st.Inline && sf.Type.Kind() == reflect.Struct && !st.Skip {
			p.describeFields(td, sf.Type, mode, fieldIndex)
			continue
		}
		if sf.PkgPath != "" {
			continue
		}

		fd := &FieldDescription{
			GoName:      sf.Name,
			ElementName: st.Name,
			Type:        sf.Type,
			Index:       fieldIndex,
			OmitEmpty:   st.OmitEmpty,
			Skipped:     st.Skip,
		}
		// Fields of the outer struct shadow promoted fields with the same Go name.
		if existing, ok := td.byGoName[sf.Name]; ok {
			if len(existing.Index) <= len(fieldIndex) {
				continue
			}
			for j, f := range td.Fields {
				if f == existing {
					td.Fields = append(td.Fields[:j], td.Fields[j+1:]...)
					break
				}
			}
		}
		td.Fields = append(td.Fields, fd)
		td.byGoName[sf.Name] = fd
	}
}
