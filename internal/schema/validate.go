package schema

import (
	"net/mail"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/schemaflow/internal/errors"
)

// Validator checks records against the entities of a descriptor
type Validator struct {
	descriptor Descriptor
}

// NewValidator creates a validator for d
func NewValidator(d Descriptor) *Validator {
	return &Validator{descriptor: d}
}

// Validate checks a record against the named entity
func (v *Validator) Validate(entity string, record map[string]any) error {
	e, ok := v.descriptor.Lookup(entity)
	if !ok {
		return errors.Newf(errors.ErrTypeValidation, "unknown entity %q", entity)
	}

	return validateValue(e.Type, record, entity)
}

// ValidatePartial checks only the fields present in record, as for updates
func (v *Validator) ValidatePartial(entity string, record map[string]any) error {
	e, ok := v.descriptor.Lookup(entity)
	if !ok {
		return errors.Newf(errors.ErrTypeValidation, "unknown entity %q", entity)
	}

	if e.Type.Kind != KindObject {
		return validateValue(e.Type, record, entity)
	}

	for name, value := range record {
		field, ok := e.Type.Field(name)
		if !ok {
			return errors.Newf(errors.ErrTypeValidation, "%s: unknown field %q", entity, name)
		}

		if err := validateField(field, value, true, entity+"."+name); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks value against t
func Validate(t Type, value any) error {
	return validateValue(t, value, "value")
}

func validateField(field Field, value any, present bool, path string) error {
	if !present || value == nil {
		if field.Type.AcceptsAbsent() {
			return nil
		}

		return errors.Newf(errors.ErrTypeValidation, "%s is required", path)
	}

	return validateValue(field.Type, value, path)
}

func validateValue(t Type, value any, path string) error {
	invalid := func(expected string) error {
		return errors.Newf(errors.ErrTypeValidation, "%s: expected %s, got %T", path, expected, value)
	}

	switch t.Kind {
	case KindAny:
		return nil
	case KindOptional:
		if value == nil {
			return nil
		}

		return validateValue(*t.Inner, value, path)
	case KindString:
		s, ok := value.(string)
		if !ok {
			return invalid("string")
		}

		return validateFormat(t.Format, s, path)
	case KindNumber:
		switch reflect.ValueOf(value).Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return nil
		}

		return invalid("number")
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return invalid("boolean")
		}

		return nil
	case KindDate:
		switch d := value.(type) {
		case time.Time:
			return nil
		case string:
			if _, err := time.Parse(time.RFC3339, d); err == nil {
				return nil
			}
		}

		return invalid("date")
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return invalid("enum value")
		}

		for _, allowed := range t.Values {
			if s == allowed {
				return nil
			}
		}

		return errors.Newf(errors.ErrTypeValidation, "%s: %q is not one of %v", path, s, t.Values)
	case KindArray:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return invalid("array")
		}

		for i := range rv.Len() {
			if err := validateValue(*t.Inner, rv.Index(i).Interface(), path+"[]"); err != nil {
				return err
			}
		}

		return nil
	case KindRecord:
		m, ok := value.(map[string]any)
		if !ok {
			return invalid("record")
		}

		for key, item := range m {
			if err := validateValue(*t.Inner, item, path+"."+key); err != nil {
				return err
			}
		}

		return nil
	case KindUnion:
		for _, arm := range t.Arms {
			if validateValue(arm, value, path) == nil {
				return nil
			}
		}

		return invalid("one of the union types")
	case KindObject:
		m, ok := value.(map[string]any)
		if !ok {
			return invalid("object")
		}

		for _, field := range t.Fields {
			item, present := m[field.Name]
			if err := validateField(field, item, present, path+"."+field.Name); err != nil {
				return err
			}
		}

		for key := range m {
			if _, known := t.Field(key); !known {
				return errors.Newf(errors.ErrTypeValidation, "%s: unknown field %q", path, key)
			}
		}

		return nil
	}

	return errors.Newf(errors.ErrTypeInternal, "%s: unsupported kind %s", path, t.Kind)
}

func validateFormat(format, s, path string) error {
	switch format {
	case FormatUUID:
		if _, err := uuid.Parse(s); err != nil {
			return errors.Wrapf(err, errors.ErrTypeValidation, "%s: invalid uuid %q", path, s)
		}
	case FormatEmail:
		if _, err := mail.ParseAddress(s); err != nil {
			return errors.Wrapf(err, errors.ErrTypeValidation, "%s: invalid email %q", path, s)
		}
	case FormatURL:
		u, err := url.ParseRequestURI(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf(errors.ErrTypeValidation, "%s: invalid url %q", path, s)
		}
	}

	return nil
}
