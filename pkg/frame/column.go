// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package frame is the in-memory ingestion table model: IngestionFrame
// and its typed columns, plus the tagged timestamp union (uniform
// sampling clock or explicit instant vector) every frame carries.
package frame

import "fmt"

// ColumnType is a closed enumeration of the scalar types a Column may
// carry. Unsupported is a sentinel: encountering it during validation
// or correlation fails immediately rather than letting it flow into
// assembled output.
type ColumnType int

const (
	TypeUnsupported ColumnType = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
)

func (t ColumnType) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeFloat32:
		return "Float32"
	case TypeFloat64:
		return "Double"
	case TypeString:
		return "String"
	case TypeBytes:
		return "Bytes"
	default:
		return "Unsupported"
	}
}

// fixedSize returns the serialized size in bytes for types whose
// values are a fixed width, and ok=false for variable-size types
// (String, Bytes) or Unsupported.
func (t ColumnType) fixedSize() (size int64, ok bool) {
	switch t {
	case TypeBool:
		return 1, true
	case TypeInt32, TypeFloat32:
		return 4, true
	case TypeInt64, TypeFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// valueSize returns the serialized size of a single value against its
// declared column type, validating the Go value's dynamic type in the
// process. An untyped nil is the explicit-null sentinel and is
// assignable to every supported type; it serializes at the type's
// fixed width, or zero for variable-size types.
func valueSize(t ColumnType, v any) (int64, error) {
	if v == nil {
		if t == TypeUnsupported {
			return 0, fmt.Errorf("column type %s is unsupported", t)
		}
		if size, ok := t.fixedSize(); ok {
			return size, nil
		}
		return 0, nil
	}
	switch t {
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return 0, fmt.Errorf("value %v is not assignable to Bool", v)
		}
		return 1, nil
	case TypeInt32:
		if _, ok := v.(int32); !ok {
			return 0, fmt.Errorf("value %v is not assignable to Int32", v)
		}
		return 4, nil
	case TypeInt64:
		if _, ok := v.(int64); !ok {
			return 0, fmt.Errorf("value %v is not assignable to Int64", v)
		}
		return 8, nil
	case TypeFloat32:
		if _, ok := v.(float32); !ok {
			return 0, fmt.Errorf("value %v is not assignable to Float32", v)
		}
		return 4, nil
	case TypeFloat64:
		if _, ok := v.(float64); !ok {
			return 0, fmt.Errorf("value %v is not assignable to Double", v)
		}
		return 8, nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return 0, fmt.Errorf("value %v is not assignable to String", v)
		}
		return int64(len(s)), nil
	case TypeBytes:
		b, ok := v.([]byte)
		if !ok {
			return 0, fmt.Errorf("value %v is not assignable to Bytes", v)
		}
		return int64(len(b)), nil
	default:
		return 0, fmt.Errorf("column type %s is unsupported", t)
	}
}

// Column is one named, typed, ordered vector of values. Every value
// must be assignable to Type, and len(Values) must equal the owning
// frame's timestamp count.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

// Validate checks that every value in the column is assignable to its
// declared Type.
func (c Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name must not be empty")
	}
	for i, v := range c.Values {
		if _, err := valueSize(c.Type, v); err != nil {
			return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// SerializedSize returns the total serialized size of every value in
// the column.
func (c Column) SerializedSize() (int64, error) {
	if size, ok := c.Type.fixedSize(); ok {
		return size * int64(len(c.Values)), nil
	}
	var total int64
	for i, v := range c.Values {
		sz, err := valueSize(c.Type, v)
		if err != nil {
			return 0, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
		}
		total += sz
	}
	return total, nil
}

// RowSize returns the serialized size of the value at row i.
func (c Column) RowSize(i int) (int64, error) {
	if i < 0 || i >= len(c.Values) {
		return 0, fmt.Errorf("row %d out of range [0,%d)", i, len(c.Values))
	}
	return valueSize(c.Type, c.Values[i])
}

// Slice returns a new Column containing rows [start, start+count).
func (c Column) Slice(start, count int) Column {
	values := make([]any, count)
	copy(values, c.Values[start:start+count])
	return Column{Name: c.Name, Type: c.Type, Values: values}
}

// NullColumn returns a Column of the given name/type/length whose
// values are all explicit-null (represented as untyped nil), used by
// the assembler to fill gaps for sources absent from a block.
func NullColumn(name string, t ColumnType, length int) Column {
	values := make([]any, length)
	return Column{Name: name, Type: t, Values: values}
}

// IsNull reports whether the value at row i is the explicit-null
// sentinel (nil).
func (c Column) IsNull(i int) bool { return c.Values[i] == nil }
