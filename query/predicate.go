// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package query

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

// Predicate is a condition on documents of a Go struct type. Predicates name fields by their Go
// names; Translate turns them into a filter document in terms of element names.
type Predicate interface {
	translate(tr *translator, t reflect.Type) (bson.D, error)
}

// FieldRef refers to a field by its dotted Go path, e.g. "Inner.B".
type FieldRef struct {
	path string
}

// Field returns a reference to the field at path.
func Field(path string) FieldRef {
	return FieldRef{path: path}
}

// Path returns the Go path of the field.
func (f FieldRef) Path() string { return f.path }

type opKind int

const (
	kindCompare opKind = iota // value compared with the field
	kindSet                   // each value compared with the field
	kindElement               // value compared with the field's elements
	kindElements              // each value compared with the field's elements
	kindSize
	kindExists
	kindElemMatch
	kindRegex
)

type fieldPredicate struct {
	path   string
	op     string // empty for implicit equality
	kind   opKind
	value  interface{}
	values []interface{}
	sub    Predicate
}

// Eq matches documents whose field equals v.
func (f FieldRef) Eq(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, kind: kindCompare, value: v}
}

// Ne matches documents whose field does not equal v.
func (f FieldRef) Ne(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$ne", kind: kindCompare, value: v}
}

// Gt matches documents whose field is greater than v.
func (f FieldRef) Gt(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$gt", kind: kindCompare, value: v}
}

// Gte matches documents whose field is greater than or equal to v.
func (f FieldRef) Gte(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$gte", kind: kindCompare, value: v}
}

// Lt matches documents whose field is less than v.
func (f FieldRef) Lt(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$lt", kind: kindCompare, value: v}
}

// Lte matches documents whose field is less than or equal to v.
func (f FieldRef) Lte(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$lte", kind: kindCompare, value: v}
}

// In matches documents whose field equals one of values.
func (f FieldRef) In(values ...interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$in", kind: kindSet, values: values}
}

// NotIn matches documents whose field equals none of values.
func (f FieldRef) NotIn(values ...interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$nin", kind: kindSet, values: values}
}

// Exists matches documents that have (or, with false, lack) the field.
func (f FieldRef) Exists(exists bool) Predicate {
	return &fieldPredicate{path: f.path, op: "$exists", kind: kindExists, value: exists}
}

// Contains matches documents whose array field has an element equal to v.
func (f FieldRef) Contains(v interface{}) Predicate {
	return &fieldPredicate{path: f.path, kind: kindElement, value: v}
}

// ContainsAll matches documents whose array field has every one of values.
func (f FieldRef) ContainsAll(values ...interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$all", kind: kindElements, values: values}
}

// ContainsAny matches documents whose array field has at least one of values.
func (f FieldRef) ContainsAny(values ...interface{}) Predicate {
	return &fieldPredicate{path: f.path, op: "$in", kind: kindElements, values: values}
}

// Size matches documents whose array field has exactly n elements.
func (f FieldRef) Size(n int) Predicate {
	return &fieldPredicate{path: f.path, op: "$size", kind: kindSize, value: n}
}

// Any matches documents whose array field has an element satisfying p. Field paths in p are
// relative to the element type, which must be a struct.
func (f FieldRef) Any(p Predicate) Predicate {
	return &fieldPredicate{path: f.path, op: "$elemMatch", kind: kindElemMatch, sub: p}
}

// Matches matches documents whose string field matches the regular expression pattern.
func (f FieldRef) Matches(pattern, options string) Predicate {
	return &fieldPredicate{path: f.path, op: "$regex", kind: kindRegex, value: pattern, values: []interface{}{options}}
}

type logicalPredicate struct {
	op       string
	children []Predicate
}

// And matches documents satisfying every one of ps.
func And(ps ...Predicate) Predicate {
	return &logicalPredicate{op: "$and", children: ps}
}

// Or matches documents satisfying at least one of ps.
func Or(ps ...Predicate) Predicate {
	return &logicalPredicate{op: "$or", children: ps}
}

type notPredicate struct {
	child Predicate
}

// Not matches documents that do not satisfy p.
func Not(p Predicate) Predicate {
	return &notPredicate{child: p}
}
