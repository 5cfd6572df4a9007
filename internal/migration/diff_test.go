package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
	"github.com/kyleking/schemaflow/internal/testutil"
)

func col(name string, t schema.PrimitiveType, nullable bool) schema.ColumnDefinition {
	return schema.ColumnDefinition{Name: name, Type: t, IsNullable: nullable}
}

func info(tables ...tableDef) schema.SchemaInfo {
	s := schema.NewSchemaInfo()
	for _, table := range tables {
		s.AddTable(table.name, table.columns)
	}

	return s
}

type tableDef struct {
	name    string
	columns []schema.ColumnDefinition
}

func table(name string, columns ...schema.ColumnDefinition) tableDef {
	return tableDef{name: name, columns: columns}
}

func TestCompare(t *testing.T) {
	user := table("User", col("id", schema.TypeUUID, false), col("email", schema.TypeString, false))
	post := table("Post", col("id", schema.TypeUUID, false), col("title", schema.TypeString, false))

	tests := []struct {
		name     string
		prev     schema.SchemaInfo
		next     schema.SchemaInfo
		expected migration.Plan
	}{
		{
			name:     "identical schemas produce no steps",
			prev:     info(user, post),
			next:     info(user, post),
			expected: migration.Plan{},
		},
		{
			name: "empty previous creates every table in order",
			prev: schema.NewSchemaInfo(),
			next: info(user, post),
			expected: migration.Plan{
				migration.CreateTable{TableName: "User", Columns: user.columns},
				migration.CreateTable{TableName: "Post", Columns: post.columns},
			},
		},
		{
			name: "empty next drops every table",
			prev: info(user, post),
			next: schema.NewSchemaInfo(),
			expected: migration.Plan{
				migration.DropTable{TableName: "User"},
				migration.DropTable{TableName: "Post"},
			},
		},
		{
			name:     "zero-column table is still created",
			prev:     schema.NewSchemaInfo(),
			next:     info(table("Empty")),
			expected: migration.Plan{migration.CreateTable{TableName: "Empty"}},
		},
		{
			name: "creates precede drops precede column changes",
			prev: info(
				table("User",
					col("id", schema.TypeUUID, false),
					col("password", schema.TypeString, false),
					col("name", schema.TypeString, false),
				),
				table("Legacy", col("id", schema.TypeNumber, false)),
			),
			next: info(
				table("User",
					col("id", schema.TypeUUID, false),
					col("name", schema.TypeString, true),
					col("passwordHash", schema.TypeString, false),
				),
				post,
			),
			expected: migration.Plan{
				migration.CreateTable{TableName: "Post", Columns: post.columns},
				migration.DropTable{TableName: "Legacy"},
				migration.AddColumn{TableName: "User", Column: col("passwordHash", schema.TypeString, false)},
				migration.DropColumn{TableName: "User", ColumnName: "password"},
				migration.ModifyColumn{TableName: "User", Column: col("name", schema.TypeString, true)},
			},
		},
		{
			name: "type change is a modification",
			prev: info(table("Post", col("views", schema.TypeString, false))),
			next: info(table("Post", col("views", schema.TypeNumber, false))),
			expected: migration.Plan{
				migration.ModifyColumn{TableName: "Post", Column: col("views", schema.TypeNumber, false)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, migration.Compare(tt.prev, tt.next))
		})
	}
}

func TestCompareRenameIsDropPlusAdd(t *testing.T) {
	prev := info(table("User", col("password", schema.TypeString, false)))
	next := info(table("User", col("passwordHash", schema.TypeString, false)))

	plan := migration.Compare(prev, next)

	assert.Equal(t, []migration.StepType{migration.StepAddColumn, migration.StepDropColumn}, stepTypes(plan))
}

func TestCompareDoesNotMutateInputs(t *testing.T) {
	prev := info(table("User", col("id", schema.TypeUUID, false)))
	next := info(table("User", col("id", schema.TypeUUID, false), col("name", schema.TypeString, true)))
	prevCopy, nextCopy := prev.Clone(), next.Clone()

	migration.Compare(prev, next)

	assert.True(t, prev.Equal(prevCopy))
	assert.True(t, next.Equal(nextCopy))
}

func stepTypes(plan migration.Plan) []migration.StepType {
	types := make([]migration.StepType, 0, len(plan))
	for _, step := range plan {
		types = append(types, step.Type())
	}

	return types
}

func TestCompareAppliedReachesNext(t *testing.T) {
	user := table("User", col("id", schema.TypeUUID, false), col("email", schema.TypeString, false))
	userV2 := table("User",
		col("id", schema.TypeUUID, false),
		col("name", schema.TypeString, true),
		col("verified", schema.TypeBoolean, false),
	)
	post := table("Post", col("id", schema.TypeUUID, false), col("body", schema.TypeText, true))
	session := table("Session", col("id", schema.TypeUUID, false), col("expires", schema.TypeDate, false))

	tests := []struct {
		name string
		prev schema.SchemaInfo
		next schema.SchemaInfo
	}{
		{"from empty", schema.NewSchemaInfo(), info(user, post)},
		{"to empty", info(user, post), schema.NewSchemaInfo()},
		{"mixed changes", info(user, post), info(userV2, session)},
		{"unchanged", info(user, session), info(user, session)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore(testutil.WithSchema(tt.prev))

			plan := migration.Compare(tt.prev, tt.next)
			require.NoError(t, migration.NewChainCompiler(nil).Compile(plan).Up(context.Background(), store.Chain()))

			got := store.Schema()
			assert.ElementsMatch(t, tt.next.TableNames(), got.TableNames())

			for _, name := range tt.next.TableNames() {
				assert.ElementsMatch(t, tt.next.Tables[name], got.Tables[name], name)
			}
		})
	}
}
