// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package render

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const uuidSubtype = 0x04

type shellWriter struct {
	strings.Builder
	indent string
}

// writeValue expects v to be validated already; the bsoncore accessors panic on malformed data.
func (w *shellWriter) writeValue(v bsoncore.Value, depth int, multiline bool) {
	switch v.Type {
	case bsontype.Double:
		w.WriteString(formatDouble(v.Double()))
	case bsontype.String:
		w.writeString(v.StringValue())
	case bsontype.EmbeddedDocument:
		w.writeDocument(v.Document(), depth, multiline)
	case bsontype.Array:
		w.writeArray(v.Array(), depth)
	case bsontype.Binary:
		subtype, data := v.Binary()
		if subtype == uuidSubtype && len(data) == 16 {
			fmt.Fprintf(w, `UUID("%s")`, formatUUID(data))
			return
		}
		fmt.Fprintf(w, `new BinData(%d, "%s")`, subtype, base64.StdEncoding.EncodeToString(data))
	case bsontype.Undefined:
		w.WriteString("undefined")
	case bsontype.ObjectID:
		fmt.Fprintf(w, `ObjectId("%s")`, v.ObjectID().Hex())
	case bsontype.Boolean:
		w.WriteString(strconv.FormatBool(v.Boolean()))
	case bsontype.DateTime:
		w.WriteString(formatDateTime(v.DateTime()))
	case bsontype.Null:
		w.WriteString("null")
	case bsontype.Regex:
		pattern, options := v.Regex()
		w.WriteString("/" + strings.ReplaceAll(pattern, "/", `\/`) + "/" + options)
	case bsontype.DBPointer:
		ns, oid := v.DBPointer()
		w.WriteString("DBPointer(")
		w.writeString(ns)
		fmt.Fprintf(w, `, ObjectId("%s"))`, oid.Hex())
	case bsontype.JavaScript:
		w.WriteString(`{ "$code" : `)
		w.writeString(v.JavaScript())
		w.WriteString(" }")
	case bsontype.Symbol:
		w.WriteString(`{ "$symbol" : `)
		w.writeString(v.Symbol())
		w.WriteString(" }")
	case bsontype.CodeWithScope:
		code, scope := v.CodeWithScope()
		w.WriteString(`{ "$code" : `)
		w.writeString(code)
		w.WriteString(`, "$scope" : `)
		w.writeDocument(scope, depth, false)
		w.WriteString(" }")
	case bsontype.Int32:
		w.WriteString(strconv.FormatInt(int64(v.Int32()), 10))
	case bsontype.Timestamp:
		t, i := v.Timestamp()
		fmt.Fprintf(w, "Timestamp(%d, %d)", t, i)
	case bsontype.Int64:
		n := v.Int64()
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			fmt.Fprintf(w, "NumberLong(%d)", n)
		} else {
			fmt.Fprintf(w, `NumberLong("%d")`, n)
		}
	case bsontype.Decimal128:
		fmt.Fprintf(w, `NumberDecimal("%s")`, v.Decimal128().String())
	case bsontype.MinKey:
		w.WriteString("MinKey")
	case bsontype.MaxKey:
		w.WriteString("MaxKey")
	default:
		fmt.Fprintf(w, "<unknown type %#x>", byte(v.Type))
	}
}

func (w *shellWriter) writeDocument(doc bsoncore.Document, depth int, multiline bool) {
	elems, _ := doc.Elements()
	if len(elems) == 0 {
		w.WriteString("{ }")
		return
	}

	if !multiline {
		w.WriteString("{ ")
		for i, elem := range elems {
			if i > 0 {
				w.WriteString(", ")
			}
			w.writeString(elem.Key())
			w.WriteString(" : ")
			w.writeValue(elem.Value(), depth+1, false)
		}
		w.WriteString(" }")
		return
	}

	w.WriteString("{")
	for i, elem := range elems {
		if i > 0 {
			w.WriteString(",")
		}
		w.WriteString("\n")
		w.WriteString(strings.Repeat(w.indent, depth+1))
		w.writeString(elem.Key())
		w.WriteString(" : ")
		w.writeValue(elem.Value(), depth+1, true)
	}
	w.WriteString("\n")
	w.WriteString(strings.Repeat(w.indent, depth))
	w.WriteString("}")
}

func (w *shellWriter) writeArray(arr bsoncore.Array, depth int) {
	vals, _ := arr.Values()
	w.WriteString("[")
	for i, val := range vals {
		if i > 0 {
			w.WriteString(", ")
		}
		w.writeValue(val, depth+1, false)
	}
	w.WriteString("]")
}

func (w *shellWriter) writeString(s string) {
	w.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.WriteString(`\"`)
		case '\\':
			w.WriteString(`\\`)
		case '\b':
			w.WriteString(`\b`)
		case '\f':
			w.WriteString(`\f`)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		case '\t':
			w.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(w, `\u%04x`, r)
				continue
			}
			w.WriteRune(r)
		}
	}
	w.WriteByte('"')
}

// formatDouble always includes a decimal point or an exponent so the value reads back as a
// double. Plain notation is used between 1e-5 and 1e21.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	var s string
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-5 && abs < 1e21) {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatDateTime uses ISODate for instants in years 0 through 9999 and falls back to the
// millisecond count otherwise.
func formatDateTime(ms int64) string {
	t := time.Unix(ms/1e3, (ms%1e3)*int64(time.Millisecond)).UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return fmt.Sprintf("new Date(%d)", ms)
	}
	return `ISODate("` + t.Format("2006-01-02T15:04:05.000Z") + `")`
}

func formatUUID(b []byte) string {
	s := hex.EncodeToString(b)
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
