// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package memstore

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Match reports whether doc satisfies the query filter. Both must be valid BSON documents.
//
// Supported are implicit conjunction of top-level fields, $and, $or, $nor and the field
// operators $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $all, $exists, $size, $not,
// $elemMatch, $regex and $options. Field paths may be dotted; they descend into embedded
// documents, array indexes and the documents inside arrays.
func Match(doc, filter bson.Raw) (bool, error) {
	return matchDocument(bsoncore.Document(doc), bsoncore.Document(filter))
}

func matchDocument(doc, filter bsoncore.Document) (bool, error) {
	elems, err := filter.Elements()
	if err != nil {
		return false, errors.Wrap(store.ErrInvalidFilter, err.Error())
	}

	for _, elem := range elems {
		var (
			ok  bool
			err error
		)
		if key := elem.Key(); strings.HasPrefix(key, "$") {
			ok, err = matchLogical(doc, key, elem.Value())
		} else {
			ok, err = matchField(lookup(doc, key), elem.Value())
		}
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func matchLogical(doc bsoncore.Document, op string, operand bsoncore.Value) (bool, error) {
	if op != "$and" && op != "$or" && op != "$nor" {
		return false, errors.Wrapf(store.ErrUnsupportedOperator, "top-level operator %s", op)
	}

	clauses, err := arrayOperand(op, operand)
	if err != nil {
		return false, err
	}
	if len(clauses) == 0 {
		return false, errors.Wrapf(store.ErrInvalidFilter, "%s requires a nonempty array", op)
	}

	for _, clause := range clauses {
		if clause.Type != bsontype.EmbeddedDocument {
			return false, errors.Wrapf(store.ErrInvalidFilter, "%s entries must be documents", op)
		}
		ok, err := matchDocument(doc, clause.Document())
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !ok:
			return false, nil
		case op == "$or" && ok:
			return true, nil
		case op == "$nor" && ok:
			return false, nil
		}
	}

	return op != "$or", nil
}

// matchField evaluates the condition of one field against the values found at its path.
func matchField(vals []bsoncore.Value, cond bsoncore.Value) (bool, error) {
	if cond.Type == bsontype.Regex {
		pattern, options := cond.Regex()
		return matchRegex(vals, pattern, options)
	}
	if cond.Type != bsontype.EmbeddedDocument || !isOperatorDocument(cond.Document()) {
		return matchEq(vals, cond), nil
	}

	ops := cond.Document()
	elems, err := ops.Elements()
	if err != nil {
		return false, errors.Wrap(store.ErrInvalidFilter, err.Error())
	}
	for _, elem := range elems {
		ok, err := matchOperator(vals, elem.Key(), elem.Value(), ops)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func isOperatorDocument(doc bsoncore.Document) bool {
	elems, err := doc.Elements()
	return err == nil && len(elems) > 0 && strings.HasPrefix(elems[0].Key(), "$")
}

func isLogicalDocument(doc bsoncore.Document) bool {
	elems, err := doc.Elements()
	if err != nil || len(elems) == 0 {
		return false
	}
	switch elems[0].Key() {
	case "$and", "$or", "$nor":
		return true
	}
	return false
}

func matchOperator(vals []bsoncore.Value, op string, operand bsoncore.Value, ops bsoncore.Document) (bool, error) {
	switch op {
	case "$eq":
		return matchEq(vals, operand), nil
	case "$ne":
		return !matchEq(vals, operand), nil
	case "$gt", "$gte", "$lt", "$lte":
		return matchRange(vals, op, operand), nil
	case "$in", "$nin":
		candidates, err := arrayOperand(op, operand)
		if err != nil {
			return false, err
		}
		found, err := matchAny(vals, candidates)
		if err != nil {
			return false, err
		}
		return found == (op == "$in"), nil
	case "$all":
		required, err := arrayOperand(op, operand)
		if err != nil {
			return false, err
		}
		if len(required) == 0 {
			return false, nil
		}
		for _, r := range required {
			if !matchEq(vals, r) {
				return false, nil
			}
		}
		return true, nil
	case "$exists":
		return (len(vals) > 0) == truthy(operand), nil
	case "$size":
		if !isNumber(operand) {
			return false, errors.Wrap(store.ErrInvalidFilter, "$size requires a number")
		}
		n := floatOf(operand)
		for _, v := range vals {
			if v.Type == bsontype.Array {
				elems, _ := v.Array().Values()
				if float64(len(elems)) == n {
					return true, nil
				}
			}
		}
		return false, nil
	case "$not":
		if operand.Type != bsontype.Regex && (operand.Type != bsontype.EmbeddedDocument || !isOperatorDocument(operand.Document())) {
			return false, errors.Wrap(store.ErrInvalidFilter, "$not requires an operator document or a regex")
		}
		ok, err := matchField(vals, operand)
		return !ok, err
	case "$elemMatch":
		if operand.Type != bsontype.EmbeddedDocument {
			return false, errors.Wrap(store.ErrInvalidFilter, "$elemMatch requires a document")
		}
		return matchElem(vals, operand.Document())
	case "$regex":
		pattern, options, err := regexOperand(operand, ops)
		if err != nil {
			return false, err
		}
		return matchRegex(vals, pattern, options)
	case "$options":
		if _, err := ops.LookupErr("$regex"); err != nil {
			return false, errors.Wrap(store.ErrInvalidFilter, "$options without $regex")
		}
		return true, nil
	default:
		return false, errors.Wrapf(store.ErrUnsupportedOperator, "field operator %s", op)
	}
}

// candidates expands the values at a path with the elements of the arrays among them.
func candidates(vals []bsoncore.Value) []bsoncore.Value {
	out := make([]bsoncore.Value, 0, len(vals))
	for _, v := range vals {
		out = append(out, v)
		if v.Type == bsontype.Array {
			elems, _ := v.Array().Values()
			out = append(out, elems...)
		}
	}
	return out
}

// matchEq has the server's equality semantics: an array matches a value it contains, and a
// missing field matches null.
func matchEq(vals []bsoncore.Value, operand bsoncore.Value) bool {
	if len(vals) == 0 {
		return operand.Type == bsontype.Null
	}
	for _, v := range candidates(vals) {
		if equal(v, operand) {
			return true
		}
		if operand.Type == bsontype.Null && v.Type == bsontype.Undefined {
			return true
		}
	}
	return false
}

func matchRange(vals []bsoncore.Value, op string, operand bsoncore.Value) bool {
	for _, v := range candidates(vals) {
		if !sameBracket(v, operand) {
			continue
		}
		c := compareValues(v, operand)
		switch {
		case op == "$gt" && c > 0,
			op == "$gte" && c >= 0,
			op == "$lt" && c < 0,
			op == "$lte" && c <= 0:
			return true
		}
	}
	return false
}

func matchAny(vals []bsoncore.Value, operands []bsoncore.Value) (bool, error) {
	for _, operand := range operands {
		if operand.Type == bsontype.Regex {
			pattern, options := operand.Regex()
			ok, err := matchRegex(vals, pattern, options)
			if err != nil || ok {
				return ok, err
			}
			continue
		}
		if matchEq(vals, operand) {
			return true, nil
		}
	}
	return false, nil
}

// matchElem evaluates $elemMatch. A condition led by a field operator such as $gt applies to
// each element itself; any other condition, including $and, $or and $nor, is a query over
// embedded document elements.
func matchElem(vals []bsoncore.Value, cond bsoncore.Document) (bool, error) {
	operators := isOperatorDocument(cond) && !isLogicalDocument(cond)
	for _, v := range vals {
		if v.Type != bsontype.Array {
			continue
		}
		elems, _ := v.Array().Values()
		for _, elem := range elems {
			var (
				ok  bool
				err error
			)
			switch {
			case operators:
				ok, err = matchField([]bsoncore.Value{elem}, bsoncore.Value{Type: bsontype.EmbeddedDocument, Data: cond})
			case elem.Type == bsontype.EmbeddedDocument:
				ok, err = matchDocument(elem.Document(), cond)
			}
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

func matchRegex(vals []bsoncore.Value, pattern, options string) (bool, error) {
	re, err := compileRegex(pattern, options)
	if err != nil {
		return false, err
	}
	for _, v := range candidates(vals) {
		if (v.Type == bsontype.String || v.Type == bsontype.Symbol) && re.MatchString(stringOf(v)) {
			return true, nil
		}
		if v.Type == bsontype.Regex {
			p, o := v.Regex()
			if p == pattern && o == options {
				return true, nil
			}
		}
	}
	return false, nil
}

// compileRegex translates the i, m and s options to Go flags. The x option has no RE2
// equivalent and is rejected.
func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	var flags string
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags += string(o)
		default:
			return nil, errors.Wrapf(store.ErrUnsupportedOperator, "regex option %q", o)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(store.ErrInvalidFilter, err.Error())
	}
	return re, nil
}

func regexOperand(operand bsoncore.Value, ops bsoncore.Document) (string, string, error) {
	var pattern, options string
	switch operand.Type {
	case bsontype.String:
		pattern = operand.StringValue()
	case bsontype.Regex:
		pattern, options = operand.Regex()
	default:
		return "", "", errors.Wrap(store.ErrInvalidFilter, "$regex requires a string or regex")
	}
	if o, err := ops.LookupErr("$options"); err == nil {
		s, ok := o.StringValueOK()
		if !ok {
			return "", "", errors.Wrap(store.ErrInvalidFilter, "$options requires a string")
		}
		options = s
	}
	return pattern, options, nil
}

func arrayOperand(op string, operand bsoncore.Value) ([]bsoncore.Value, error) {
	if operand.Type != bsontype.Array {
		return nil, errors.Wrapf(store.ErrInvalidFilter, "%s requires an array", op)
	}
	vals, err := operand.Array().Values()
	if err != nil {
		return nil, errors.Wrap(store.ErrInvalidFilter, err.Error())
	}
	return vals, nil
}

func truthy(v bsoncore.Value) bool {
	switch v.Type {
	case bsontype.Boolean:
		return v.Boolean()
	case bsontype.Null, bsontype.Undefined:
		return false
	}
	if isNumber(v) {
		return floatOf(v) != 0
	}
	return true
}

// lookup returns the values reachable through a dotted path.
func lookup(doc bsoncore.Document, path string) []bsoncore.Value {
	return lookupParts(bsoncore.Value{Type: bsontype.EmbeddedDocument, Data: doc}, strings.Split(path, "."))
}

func lookupParts(v bsoncore.Value, parts []string) []bsoncore.Value {
	if len(parts) == 0 {
		return []bsoncore.Value{v}
	}

	switch v.Type {
	case bsontype.EmbeddedDocument:
		next, err := v.Document().LookupErr(parts[0])
		if err != nil {
			return nil
		}
		return lookupParts(next, parts[1:])
	case bsontype.Array:
		var out []bsoncore.Value
		if _, err := strconv.Atoi(parts[0]); err == nil {
			if next, err := bsoncore.Document(v.Array()).LookupErr(parts[0]); err == nil {
				out = append(out, lookupParts(next, parts[1:])...)
			}
		}
		elems, _ := v.Array().Values()
		for _, elem := range elems {
			if elem.Type == bsontype.EmbeddedDocument {
				out = append(out, lookupParts(elem, parts)...)
			}
		}
		return out
	default:
		return nil
	}
}
