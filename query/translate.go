// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package query

import (
	"reflect"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ikmak/mongo-jsonbridge/provider"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

var translateDuration = metrics.NewHistogram("jsonbridge_query_translate_duration_seconds")

type translator struct {
	prov *provider.Provider
}

// Translate turns p into a filter document for documents of struct type t. Go field names are
// replaced with the element names prov serializes them under, and every value is checked
// against the type of the field it is compared with. A nil prov means the registered provider;
// a nil p matches every document.
func Translate(t reflect.Type, p Predicate, prov *provider.Provider) (bson.D, error) {
	defer translateDuration.UpdateDuration(time.Now())

	if prov == nil {
		prov = provider.Default()
	}
	st := indirect(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, errors.Wrapf(provider.ErrNotStruct, "cannot translate a predicate on %v", t)
	}

	return (&translator{prov: prov}).predicate(p, st)
}

func (tr *translator) predicate(p Predicate, t reflect.Type) (bson.D, error) {
	if p == nil {
		return bson.D{}, nil
	}
	return p.translate(tr, t)
}

// resolve maps the Go path of a field of t to its element path and returns the field type.
// Paths descend through structs and through arrays of structs, as dotted element paths do.
func (tr *translator) resolve(t reflect.Type, path string) (string, reflect.Type, error) {
	parts := strings.Split(path, ".")
	names := make([]string, 0, len(parts))

	cur := t
	for i, part := range parts {
		st := indirect(cur)
		if i > 0 && isArray(st) {
			st = indirect(st.Elem())
		}
		if st.Kind() != reflect.Struct {
			return "", nil, errors.Wrapf(ErrFieldNotFound, "%s: %s is not a struct", path, strings.Join(parts[:i], "."))
		}

		td, err := tr.prov.Describe(st)
		if err != nil {
			return "", nil, err
		}
		fd, ok := td.Field(part)
		if !ok {
			return "", nil, errors.Wrapf(ErrFieldNotFound, "%v has no field %q", st, part)
		}
		if fd.Skipped {
			return "", nil, errors.Wrapf(ErrFieldNotSerialized, "%v.%s", st, part)
		}

		names = append(names, fd.ElementName)
		cur = fd.Type
	}

	return strings.Join(names, "."), cur, nil
}

func (fp *fieldPredicate) translate(tr *translator, t reflect.Type) (bson.D, error) {
	name, ft, err := tr.resolve(t, fp.path)
	if err != nil {
		return nil, err
	}

	switch fp.kind {
	case kindCompare:
		if err := checkValue(fp.path, fp.value, ft); err != nil {
			return nil, err
		}
		if fp.op == "" {
			return bson.D{{Key: name, Value: fp.value}}, nil
		}
		return operator(name, fp.op, fp.value), nil

	case kindSet:
		for _, v := range fp.values {
			if err := checkValue(fp.path, v, ft); err != nil {
				return nil, err
			}
		}
		return operator(name, fp.op, append(bson.A{}, fp.values...)), nil

	case kindElement:
		et, err := elemType(fp.path, ft)
		if err != nil {
			return nil, err
		}
		if err := checkValue(fp.path, fp.value, et); err != nil {
			return nil, err
		}
		return bson.D{{Key: name, Value: fp.value}}, nil

	case kindElements:
		et, err := elemType(fp.path, ft)
		if err != nil {
			return nil, err
		}
		for _, v := range fp.values {
			if err := checkValue(fp.path, v, et); err != nil {
				return nil, err
			}
		}
		return operator(name, fp.op, append(bson.A{}, fp.values...)), nil

	case kindSize:
		if _, err := elemType(fp.path, ft); err != nil {
			return nil, err
		}
		if fp.value.(int) < 0 {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s: negative size %d", fp.path, fp.value)
		}
		return operator(name, fp.op, fp.value), nil

	case kindExists:
		return operator(name, fp.op, fp.value), nil

	case kindElemMatch:
		et, err := elemType(fp.path, ft)
		if err != nil {
			return nil, err
		}
		if indirect(et).Kind() != reflect.Struct {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s: elements of %v are not structs", fp.path, ft)
		}
		sub, err := tr.predicate(fp.sub, indirect(et))
		if err != nil {
			return nil, err
		}
		return operator(name, fp.op, sub), nil

	case kindRegex:
		st := indirect(ft)
		if isArray(st) {
			st = indirect(st.Elem())
		}
		if st.Kind() != reflect.String {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s: cannot match a regular expression against %v", fp.path, ft)
		}
		re := bson.D{{Key: "$regex", Value: fp.value}}
		if opts := fp.values[0].(string); opts != "" {
			re = append(re, bson.E{Key: "$options", Value: opts})
		}
		return bson.D{{Key: name, Value: re}}, nil
	}

	return nil, errors.Errorf("unknown predicate kind %d", fp.kind)
}

func (lp *logicalPredicate) translate(tr *translator, t reflect.Type) (bson.D, error) {
	switch len(lp.children) {
	case 0:
		if lp.op == "$or" {
			// An empty disjunction matches nothing.
			return bson.D{{Key: "$nor", Value: bson.A{bson.D{}}}}, nil
		}
		return bson.D{}, nil
	case 1:
		return tr.predicate(lp.children[0], t)
	}

	arr := make(bson.A, 0, len(lp.children))
	for _, child := range lp.children {
		d, err := tr.predicate(child, t)
		if err != nil {
			return nil, err
		}
		arr = append(arr, d)
	}
	return bson.D{{Key: lp.op, Value: arr}}, nil
}

func (np *notPredicate) translate(tr *translator, t reflect.Type) (bson.D, error) {
	d, err := tr.predicate(np.child, t)
	if err != nil {
		return nil, err
	}

	if len(d) != 1 || strings.HasPrefix(d[0].Key, "$") {
		return bson.D{{Key: "$nor", Value: bson.A{d}}}, nil
	}

	name := d[0].Key
	ops, ok := d[0].Value.(bson.D)
	if !ok || len(ops) == 0 || !strings.HasPrefix(ops[0].Key, "$") {
		return operator(name, "$ne", d[0].Value), nil
	}
	if len(ops) == 1 && ops[0].Key == "$not" {
		return bson.D{{Key: name, Value: ops[0].Value}}, nil
	}
	return operator(name, "$not", ops), nil
}

func operator(name, op string, v interface{}) bson.D {
	return bson.D{{Key: name, Value: bson.D{{Key: op, Value: v}}}}
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// isArray reports whether values of t encode as BSON arrays. Byte slices encode as binary.
func isArray(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

func elemType(path string, t reflect.Type) (reflect.Type, error) {
	st := indirect(t)
	if !isArray(st) {
		return nil, errors.Wrapf(ErrNotArray, "%s has type %v", path, t)
	}
	return st.Elem(), nil
}

// checkValue reports whether v can be compared with a field of type t. Numbers of any kind
// compare with numeric fields, since the server compares them by value.
func checkValue(path string, v interface{}, t reflect.Type) error {
	if v == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			return nil
		}
		return errors.Wrapf(ErrTypeMismatch, "%s: nil is not a %v", path, t)
	}

	vt := indirect(reflect.TypeOf(v))
	ft := indirect(t)
	switch {
	case vt.AssignableTo(ft), ft.Kind() == reflect.Interface:
		return nil
	case isNumber(vt.Kind()) && isNumber(ft.Kind()):
		return nil
	case vt.Kind() == ft.Kind() && vt.ConvertibleTo(ft):
		return nil
	}
	return errors.Wrapf(ErrTypeMismatch, "%s: %v is not comparable with %v", path, vt, t)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
