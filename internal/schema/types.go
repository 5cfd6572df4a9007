package schema

import (
	"sort"
)

// PrimitiveType is the resolved storage type of a column
type PrimitiveType string

const (
	TypeString  PrimitiveType = "string"
	TypeText    PrimitiveType = "text"
	TypeNumber  PrimitiveType = "number"
	TypeFloat   PrimitiveType = "float"
	TypeDecimal PrimitiveType = "decimal"
	TypeBoolean PrimitiveType = "boolean"
	TypeDate    PrimitiveType = "date"
	TypeUUID    PrimitiveType = "uuid"
	TypeJSON    PrimitiveType = "json"
)

// PrimitiveTypes lists every primitive in declaration order
var PrimitiveTypes = []PrimitiveType{
	TypeString, TypeText, TypeNumber, TypeFloat, TypeDecimal,
	TypeBoolean, TypeDate, TypeUUID, TypeJSON,
}

// Valid reports whether t is one of the known primitives
func (t PrimitiveType) Valid() bool {
	for _, p := range PrimitiveTypes {
		if p == t {
			return true
		}
	}

	return false
}

// ColumnDefinition describes one column of a table
type ColumnDefinition struct {
	Name         string        `json:"name"                   yaml:"name"`
	Type         PrimitiveType `json:"type"                   yaml:"type"`
	IsNullable   bool          `json:"isNullable"             yaml:"nullable"`
	IsPrimaryKey bool          `json:"isPrimaryKey,omitempty" yaml:"primaryKey,omitempty"`
	IsUnique     bool          `json:"isUnique,omitempty"     yaml:"unique,omitempty"`
}

// SchemaInfo maps table names to their ordered column lists.
// Order keeps the declaration order of the tables; tables missing from it
// are listed after the ordered ones, sorted by name.
type SchemaInfo struct {
	Tables map[string][]ColumnDefinition `json:"tables"`
	Order  []string                      `json:"-"`
}

// NewSchemaInfo returns an empty SchemaInfo
func NewSchemaInfo() SchemaInfo {
	return SchemaInfo{Tables: make(map[string][]ColumnDefinition)}
}

// AddTable appends a table, replacing its columns if it already exists
func (s *SchemaInfo) AddTable(name string, columns []ColumnDefinition) {
	if s.Tables == nil {
		s.Tables = make(map[string][]ColumnDefinition)
	}

	if _, exists := s.Tables[name]; !exists {
		s.Order = append(s.Order, name)
	}

	s.Tables[name] = columns
}

// RemoveTable deletes a table and its ordering entry
func (s *SchemaInfo) RemoveTable(name string) {
	delete(s.Tables, name)

	for i, table := range s.Order {
		if table == name {
			s.Order = append(s.Order[:i:i], s.Order[i+1:]...)
			break
		}
	}
}

// HasTable reports whether the table exists
func (s SchemaInfo) HasTable(name string) bool {
	_, ok := s.Tables[name]
	return ok
}

// TableNames returns table names in iteration order
func (s SchemaInfo) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	seen := make(map[string]bool, len(s.Tables))

	for _, name := range s.Order {
		if _, ok := s.Tables[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range s.Tables {
		if !seen[name] {
			rest = append(rest, name)
		}
	}

	sort.Strings(rest)

	return append(names, rest...)
}

// Column returns the named column of a table
func (s SchemaInfo) Column(table, column string) (ColumnDefinition, bool) {
	for _, col := range s.Tables[table] {
		if col.Name == column {
			return col, true
		}
	}

	return ColumnDefinition{}, false
}

// Clone returns a deep copy
func (s SchemaInfo) Clone() SchemaInfo {
	clone := NewSchemaInfo()
	for _, name := range s.TableNames() {
		columns := make([]ColumnDefinition, len(s.Tables[name]))
		copy(columns, s.Tables[name])
		clone.AddTable(name, columns)
	}

	return clone
}

// Equal compares table sets and column lists, ignoring table order
func (s SchemaInfo) Equal(other SchemaInfo) bool {
	if len(s.Tables) != len(other.Tables) {
		return false
	}

	for name, columns := range s.Tables {
		otherColumns, ok := other.Tables[name]
		if !ok || len(columns) != len(otherColumns) {
			return false
		}

		for i := range columns {
			if columns[i] != otherColumns[i] {
				return false
			}
		}
	}

	return true
}
