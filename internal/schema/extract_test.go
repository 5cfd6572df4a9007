package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name string, t PrimitiveType, nullable bool) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: t, IsNullable: nullable}
}

func TestExtractSchemaInfo(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		expected   map[string][]ColumnDefinition
		order      []string
	}{
		{
			name: "single table with various column types",
			descriptor: Define(
				Table("User",
					F("id", UUID()),
					F("email", Email()),
					F("passwordHash", String()),
					F("name", Optional(String())),
					F("isActive", Boolean()),
					F("createdAt", Date()),
				),
			),
			expected: map[string][]ColumnDefinition{
				"User": {
					col("id", TypeUUID, false),
					col("email", TypeString, false),
					col("passwordHash", TypeString, false),
					col("name", TypeString, true),
					col("isActive", TypeBoolean, false),
					col("createdAt", TypeDate, false),
				},
			},
			order: []string{"User"},
		},
		{
			name: "multiple tables keep declaration order",
			descriptor: Define(
				Table("User", F("id", UUID()), F("name", Optional(String()))),
				Table("Post",
					F("id", UUID()),
					F("title", String()),
					F("content", Optional(String())),
					F("published", Optional(Boolean())),
					F("authorId", UUID()),
				),
			),
			expected: map[string][]ColumnDefinition{
				"User": {col("id", TypeUUID, false), col("name", TypeString, true)},
				"Post": {
					col("id", TypeUUID, false),
					col("title", TypeString, false),
					col("content", TypeString, true),
					col("published", TypeBoolean, true),
					col("authorId", TypeUUID, false),
				},
			},
			order: []string{"User", "Post"},
		},
		{
			name:       "empty descriptor",
			descriptor: Define(),
			expected:   map[string][]ColumnDefinition{},
		},
		{
			name: "non-object entities are skipped",
			descriptor: Define(
				Table("User", F("id", UUID()), F("email", Email())),
				Entity{Name: "config", Type: String()},
				Entity{Name: "settings", Type: Number()},
			),
			expected: map[string][]ColumnDefinition{
				"User": {col("id", TypeUUID, false), col("email", TypeString, false)},
			},
			order: []string{"User"},
		},
		{
			name: "unrecognized kinds default to string",
			descriptor: Define(
				Table("Misc",
					F("anything", Any()),
					F("tags", Array(String())),
					F("limits", Record(Number())),
					F("cycle", Enum("monthly", "yearly")),
					F("nested", Object(F("a", String()))),
					F("maybe", Optional(Array(Number()))),
				),
			),
			expected: map[string][]ColumnDefinition{
				"Misc": {
					// any accepts a missing value, so it is nullable without a wrapper
					col("anything", TypeString, true),
					col("tags", TypeString, false),
					col("limits", TypeString, false),
					col("cycle", TypeString, false),
					col("nested", TypeString, false),
					col("maybe", TypeString, true),
				},
			},
			order: []string{"Misc"},
		},
		{
			name: "union nullability follows its arms",
			descriptor: Define(
				Table("U",
					F("strict", Union(String(), Number())),
					F("loose", Union(String(), Any())),
				),
			),
			expected: map[string][]ColumnDefinition{
				"U": {col("strict", TypeString, false), col("loose", TypeString, true)},
			},
			order: []string{"U"},
		},
		{
			name:       "empty object yields a table without columns",
			descriptor: Define(Table("Empty")),
			expected:   map[string][]ColumnDefinition{"Empty": {}},
			order:      []string{"Empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ExtractSchemaInfo(tt.descriptor)

			assert.Equal(t, tt.expected, info.Tables)
			if tt.order != nil {
				assert.Equal(t, tt.order, info.TableNames())
			}
		})
	}
}

func TestExtractSchemaInfoIsIdempotent(t *testing.T) {
	d := Define(
		Table("User", F("id", UUID()), F("name", Optional(String())), F("meta", Any())),
		Table("Post", F("id", UUID()), F("title", String())),
	)

	first := ExtractSchemaInfo(d)
	second := ExtractSchemaInfo(d)

	assert.Equal(t, first, second)
	assert.True(t, first.Equal(second))
}

func TestSchemaInfoOperations(t *testing.T) {
	info := NewSchemaInfo()
	info.AddTable("B", []ColumnDefinition{col("id", TypeUUID, false)})
	info.AddTable("A", nil)
	info.Tables["C"] = nil // added without ordering

	assert.Equal(t, []string{"B", "A", "C"}, info.TableNames())
	assert.True(t, info.HasTable("C"))

	column, ok := info.Column("B", "id")
	require.True(t, ok)
	assert.Equal(t, TypeUUID, column.Type)

	_, ok = info.Column("B", "missing")
	assert.False(t, ok)

	clone := info.Clone()
	clone.Tables["B"][0].IsNullable = true
	assert.False(t, info.Tables["B"][0].IsNullable)

	info.RemoveTable("B")
	assert.Equal(t, []string{"A", "C"}, info.TableNames())
	assert.False(t, info.Equal(clone))
}

func TestPrimitiveTypeValid(t *testing.T) {
	for _, p := range PrimitiveTypes {
		assert.True(t, p.Valid(), p)
	}

	assert.False(t, PrimitiveType("blob").Valid())
}
