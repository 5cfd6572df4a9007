// Package migration computes migration plans between schema versions and
// compiles them into runnable migrations for the supported schema builders.
package migration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/schema"
)

// StepType identifies the kind of a migration step
type StepType string

const (
	StepCreateTable  StepType = "createTable"
	StepDropTable    StepType = "dropTable"
	StepAddColumn    StepType = "addColumn"
	StepDropColumn   StepType = "dropColumn"
	StepModifyColumn StepType = "modifyColumn"
)

// Step is one structural change. The concrete types below are the only
// ones the compilers understand.
type Step interface {
	Type() StepType
	Table() string
}

// CreateTable creates a table with the given columns
type CreateTable struct {
	TableName string                    `json:"tableName"`
	Columns   []schema.ColumnDefinition `json:"columns"`
}

// DropTable drops a table
type DropTable struct {
	TableName string `json:"tableName"`
}

// AddColumn adds a column to an existing table
type AddColumn struct {
	TableName string                  `json:"tableName"`
	Column    schema.ColumnDefinition `json:"column"`
}

// DropColumn removes a column from an existing table
type DropColumn struct {
	TableName  string `json:"tableName"`
	ColumnName string `json:"columnName"`
}

// ModifyColumn carries the new definition of a changed column. It is not
// applied by the compilers, only reported.
type ModifyColumn struct {
	TableName string                  `json:"tableName"`
	Column    schema.ColumnDefinition `json:"column"`
}

func (CreateTable) Type() StepType  { return StepCreateTable }
func (DropTable) Type() StepType    { return StepDropTable }
func (AddColumn) Type() StepType    { return StepAddColumn }
func (DropColumn) Type() StepType   { return StepDropColumn }
func (ModifyColumn) Type() StepType { return StepModifyColumn }

func (s CreateTable) Table() string  { return s.TableName }
func (s DropTable) Table() string    { return s.TableName }
func (s AddColumn) Table() string    { return s.TableName }
func (s DropColumn) Table() string   { return s.TableName }
func (s ModifyColumn) Table() string { return s.TableName }

// Plan is an ordered list of steps
type Plan []Step

// Filter returns the steps for which keep returns true
func (p Plan) Filter(keep func(Step) bool) Plan {
	out := make(Plan, 0, len(p))
	for _, step := range p {
		if keep(step) {
			out = append(out, step)
		}
	}

	return out
}

// Describe renders one line per step
func (p Plan) Describe() []string {
	lines := make([]string, 0, len(p))
	for _, step := range p {
		lines = append(lines, DescribeStep(step))
	}

	return lines
}

// DescribeStep renders a step as a single human-readable line
func DescribeStep(step Step) string {
	switch s := step.(type) {
	case CreateTable:
		names := make([]string, 0, len(s.Columns))
		for _, c := range s.Columns {
			names = append(names, describeColumn(c))
		}

		return fmt.Sprintf("create table %s (%s)", s.TableName, strings.Join(names, ", "))
	case DropTable:
		return "drop table " + s.TableName
	case AddColumn:
		return fmt.Sprintf("add column %s.%s", s.TableName, describeColumn(s.Column))
	case DropColumn:
		return fmt.Sprintf("drop column %s.%s", s.TableName, s.ColumnName)
	case ModifyColumn:
		return fmt.Sprintf("modify column %s.%s (not applied)", s.TableName, describeColumn(s.Column))
	default:
		return fmt.Sprintf("unknown step %s on %s", step.Type(), step.Table())
	}
}

func describeColumn(c schema.ColumnDefinition) string {
	out := c.Name + " " + string(c.Type)
	if c.IsNullable {
		out += "?"
	}

	if c.IsPrimaryKey {
		out += " pk"
	}

	if c.IsUnique {
		out += " unique"
	}

	return out
}

// MarshalJSON encodes each step with a "type" discriminator
func (p Plan) MarshalJSON() ([]byte, error) {
	encoded := make([]json.RawMessage, 0, len(p))

	for _, step := range p {
		body, err := json.Marshal(step)
		if err != nil {
			return nil, err
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}

		fields["type"], _ = json.Marshal(step.Type())

		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}

		encoded = append(encoded, raw)
	}

	return json.Marshal(encoded)
}

// UnmarshalJSON decodes steps written by MarshalJSON
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	plan := make(Plan, 0, len(raw))

	for _, item := range raw {
		var head struct {
			Type StepType `json:"type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return err
		}

		var step Step
		var err error

		switch head.Type {
		case StepCreateTable:
			var s CreateTable
			err = json.Unmarshal(item, &s)
			step = s
		case StepDropTable:
			var s DropTable
			err = json.Unmarshal(item, &s)
			step = s
		case StepAddColumn:
			var s AddColumn
			err = json.Unmarshal(item, &s)
			step = s
		case StepDropColumn:
			var s DropColumn
			err = json.Unmarshal(item, &s)
			step = s
		case StepModifyColumn:
			var s ModifyColumn
			err = json.Unmarshal(item, &s)
			step = s
		default:
			return errors.Newf(errors.ErrTypeMigration, "unknown migration step type: %s", head.Type)
		}

		if err != nil {
			return err
		}

		plan = append(plan, step)
	}

	*p = plan

	return nil
}
