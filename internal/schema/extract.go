package schema

// ExtractSchemaInfo converts a descriptor into table column lists.
// Entities that are not objects are skipped. Field and table order follow
// the descriptor.
func ExtractSchemaInfo(d Descriptor) SchemaInfo {
	info := NewSchemaInfo()

	for _, entity := range d {
		if entity.Type.Kind != KindObject {
			continue
		}

		columns := make([]ColumnDefinition, 0, len(entity.Type.Fields))
		for _, field := range entity.Type.Fields {
			columns = append(columns, extractColumn(field))
		}

		info.AddTable(entity.Name, columns)
	}

	return info
}

func extractColumn(field Field) ColumnDefinition {
	t := field.Type
	nullable := false

	// Anything that accepts a missing value is nullable; only an explicit
	// optional wrapper is unwrapped before classification.
	if t.AcceptsAbsent() {
		nullable = true

		if t.Kind == KindOptional && t.Inner != nil {
			t = *t.Inner
		}
	}

	return ColumnDefinition{
		Name:       field.Name,
		Type:       classify(t),
		IsNullable: nullable,
	}
}

// classify maps a field kind to a primitive, falling back to string
func classify(t Type) PrimitiveType {
	switch t.Kind {
	case KindString:
		if t.Format == FormatUUID {
			return TypeUUID
		}

		return TypeString
	case KindNumber:
		return TypeNumber
	case KindDate:
		return TypeDate
	case KindBoolean:
		return TypeBoolean
	default:
		return TypeString
	}
}
