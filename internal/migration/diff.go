package migration

import (
	"github.com/kyleking/schemaflow/internal/schema"
)

// Compare computes the steps turning prev into next: table creations,
// then table drops, then per table present in both, column additions,
// drops and modifications. Renames show up as a drop plus an add.
func Compare(prev, next schema.SchemaInfo) Plan {
	plan := Plan{}

	nextTables := next.TableNames()
	prevTables := prev.TableNames()

	for _, table := range nextTables {
		if !prev.HasTable(table) {
			plan = append(plan, CreateTable{TableName: table, Columns: next.Tables[table]})
		}
	}

	for _, table := range prevTables {
		if !next.HasTable(table) {
			plan = append(plan, DropTable{TableName: table})
		}
	}

	for _, table := range nextTables {
		if prev.HasTable(table) {
			plan = append(plan, compareColumns(table, prev.Tables[table], next.Tables[table])...)
		}
	}

	return plan
}

func compareColumns(table string, prev, next []schema.ColumnDefinition) Plan {
	prevByName := indexColumns(prev)
	nextByName := indexColumns(next)

	var adds, drops, modifies Plan

	for _, column := range next {
		before, ok := prevByName[column.Name]
		switch {
		case !ok:
			adds = append(adds, AddColumn{TableName: table, Column: column})
		case before != column:
			modifies = append(modifies, ModifyColumn{TableName: table, Column: column})
		}
	}

	for _, column := range prev {
		if _, ok := nextByName[column.Name]; !ok {
			drops = append(drops, DropColumn{TableName: table, ColumnName: column.Name})
		}
	}

	plan := make(Plan, 0, len(adds)+len(drops)+len(modifies))
	plan = append(plan, adds...)
	plan = append(plan, drops...)

	return append(plan, modifies...)
}

func indexColumns(columns []schema.ColumnDefinition) map[string]schema.ColumnDefinition {
	byName := make(map[string]schema.ColumnDefinition, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}

	return byName
}
