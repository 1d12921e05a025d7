// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/ikmak/mongo-jsonbridge/provider"
	"github.com/ikmak/mongo-jsonbridge/query"
	"github.com/pkg/errors"
)

// parseWhere parses a condition of the form <field><op><value>. The field is a Go field name or
// an element name of t. Operators are = != > >= < <= and ~ (array contains). The value is
// parsed according to the field type, or its element type for ~.
func parseWhere(expr string, t reflect.Type, prov *provider.Provider) (query.Predicate, error) {
	i := strings.IndexAny(expr, "!=<>~")
	if i <= 0 {
		return nil, errors.Errorf("invalid condition %q: want <field><op><value>", expr)
	}
	op := expr[i : i+1]
	if strings.ContainsAny(op, "!<>") && i+1 < len(expr) && expr[i+1] == '=' {
		op = expr[i : i+2]
	}
	if op == "!" {
		return nil, errors.Errorf("invalid condition %q: unknown operator", expr)
	}
	name, raw := strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+len(op):])

	td, err := prov.Describe(t)
	if err != nil {
		return nil, err
	}
	fd, err := lookupField(td, name)
	if err != nil {
		return nil, err
	}

	vt := fd.Type
	if op == "~" && (vt.Kind() == reflect.Slice || vt.Kind() == reflect.Array) {
		vt = vt.Elem()
	}
	v, err := parseValue(raw, vt)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid condition %q", expr)
	}

	f := query.Field(fd.GoName)
	switch op {
	case "=":
		return f.Eq(v), nil
	case "!=":
		return f.Ne(v), nil
	case ">":
		return f.Gt(v), nil
	case ">=":
		return f.Gte(v), nil
	case "<":
		return f.Lt(v), nil
	case "<=":
		return f.Lte(v), nil
	}
	return f.Contains(v), nil
}

func lookupField(td *provider.TypeDescription, name string) (*provider.FieldDescription, error) {
	if fd, ok := td.Field(name); ok {
		return fd, nil
	}
	for _, fd := range td.Fields {
		if !fd.Skipped && fd.ElementName == name {
			return fd, nil
		}
	}
	for _, fd := range td.Fields {
		if strings.EqualFold(fd.GoName, name) {
			return fd, nil
		}
	}
	return nil, errors.Wrapf(query.ErrFieldNotFound, "%v has no field %q", td.Type, name)
}

func parseValue(s string, t reflect.Type) (interface{}, error) {
	v := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v.OverflowInt(n) {
			return nil, errors.Errorf("%q is not a valid %v", s, t)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v.OverflowUint(n) {
			return nil, errors.Errorf("%q is not a valid %v", s, t)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Errorf("%q is not a valid %v", s, t)
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Errorf("%q is not a valid %v", s, t)
		}
		v.SetBool(b)
	case reflect.String:
		v.SetString(s)
	default:
		return nil, errors.Errorf("cannot parse values of type %v", t)
	}

	return v.Interface(), nil
}

// intList parses a comma separated list of integers. The empty string is an empty list.
func intList(s string) ([]int, error) {
	out := []int{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Errorf("%q is not an integer", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// stringsFlag is a flag.Value collecting every occurrence of a repeated flag.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ", ") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
