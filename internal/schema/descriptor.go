package schema

// Kind is the closed set of field kinds a descriptor can express
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDate
	KindObject
	KindOptional
	KindArray
	KindAny
	KindEnum
	KindRecord
	KindUnion
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindObject:   "object",
	KindOptional: "optional",
	KindArray:    "array",
	KindAny:      "any",
	KindEnum:     "enum",
	KindRecord:   "record",
	KindUnion:    "union",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// String formats a string kind may carry
const (
	FormatUUID  = "uuid"
	FormatEmail = "email"
	FormatURL   = "url"
)

// Type is a declarative description of a value
type Type struct {
	Kind   Kind
	Format string   // KindString only
	Inner  *Type    // KindOptional, KindArray, KindRecord
	Fields []Field  // KindObject, in declaration order
	Values []string // KindEnum
	Arms   []Type   // KindUnion
}

// Field is a named member of an object type
type Field struct {
	Name string
	Type Type
}

// Entity is one named top-level type of a descriptor
type Entity struct {
	Name string
	Type Type
}

// Descriptor is the ordered set of entities an application persists
type Descriptor []Entity

// Lookup returns the entity with the given name
func (d Descriptor) Lookup(name string) (Entity, bool) {
	for _, entity := range d {
		if entity.Name == name {
			return entity, true
		}
	}

	return Entity{}, false
}

// Define builds a descriptor from entities, mostly for readability at call sites
func Define(entities ...Entity) Descriptor {
	return Descriptor(entities)
}

// Table declares an object entity
func Table(name string, fields ...Field) Entity {
	return Entity{Name: name, Type: Object(fields...)}
}

// F declares an object field
func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

func String() Type {
	return Type{Kind: KindString}
}

func UUID() Type {
	return Type{Kind: KindString, Format: FormatUUID}
}

func Email() Type {
	return Type{Kind: KindString, Format: FormatEmail}
}

func URL() Type {
	return Type{Kind: KindString, Format: FormatURL}
}

func Number() Type {
	return Type{Kind: KindNumber}
}

func Boolean() Type {
	return Type{Kind: KindBoolean}
}

func Date() Type {
	return Type{Kind: KindDate}
}

func Any() Type {
	return Type{Kind: KindAny}
}

// Optional marks t as allowed to be absent
func Optional(t Type) Type {
	return Type{Kind: KindOptional, Inner: &t}
}

func Array(t Type) Type {
	return Type{Kind: KindArray, Inner: &t}
}

// Record is a string-keyed map of t
func Record(t Type) Type {
	return Type{Kind: KindRecord, Inner: &t}
}

func Enum(values ...string) Type {
	return Type{Kind: KindEnum, Values: values}
}

func Union(arms ...Type) Type {
	return Type{Kind: KindUnion, Arms: arms}
}

func Object(fields ...Field) Type {
	return Type{Kind: KindObject, Fields: fields}
}

// Field returns the named field of an object type
func (t Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// AcceptsAbsent reports whether a missing value satisfies t.
// Optional and any accept it, as does a union with such an arm.
func (t Type) AcceptsAbsent() bool {
	switch t.Kind {
	case KindOptional, KindAny:
		return true
	case KindUnion:
		for _, arm := range t.Arms {
			if arm.AcceptsAbsent() {
				return true
			}
		}
	}

	return false
}
