package resource

// FieldKind identifies the kind of a field. All per-kind behavior (default
// values, change handling, write eligibility) dispatches on this single
// tagged value rather than on free-form strings.
type FieldKind int

const (
	// KindText is a plain single-line text field
	KindText FieldKind = iota
	// KindTextarea is a multi-line text field
	KindTextarea
	// KindNumber is a numeric field
	KindNumber
	// KindDate is a date field, optionally with a time component
	KindDate
	// KindBoolean is a true/false field
	KindBoolean
	// KindSelect is an enumerated-choice field
	KindSelect
	// KindPassword is a write-only secret field
	KindPassword
	// KindFile is an uploaded-file field; its persisted value is a stored path
	KindFile
	// KindID is the identity field of a record
	KindID
	// KindHasOne references a single record of another resource by id
	KindHasOne
	// KindHasMany references a list of records of another resource by ids
	KindHasMany
	// KindHasOneEmbedded is a nested sub-object with its own field descriptors
	KindHasOneEmbedded
	// KindHasManyEmbedded is a sequence of nested sub-objects
	KindHasManyEmbedded
)

// String returns the client-facing name of the field kind. These names are
// part of the wire contract with the UI and match the metadata the client
// dispatches rendering on.
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindTextarea:
		return "Textarea"
	case KindNumber:
		return "Number"
	case KindDate:
		return "Date"
	case KindBoolean:
		return "Boolean"
	case KindSelect:
		return "Select"
	case KindPassword:
		return "Password"
	case KindFile:
		return "File"
	case KindID:
		return "ID"
	case KindHasOne:
		return "HasOne"
	case KindHasMany:
		return "HasMany"
	case KindHasOneEmbedded:
		return "HasOneEmbedded"
	case KindHasManyEmbedded:
		return "HasManyEmbedded"
	default:
		return "Unknown"
	}
}

// Embedded reports whether the kind nests its own field descriptors.
func (k FieldKind) Embedded() bool {
	return k == KindHasOneEmbedded || k == KindHasManyEmbedded
}

// Relation reports whether the kind references another resource by id.
func (k FieldKind) Relation() bool {
	return k == KindHasOne || k == KindHasMany
}

// SelectOption is one enumerated choice of a Select field.
type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Compute derives a field value from the raw persisted record. It must be a
// pure function of the record's persisted attributes.
type Compute func(record map[string]any) any

// Field describes one attribute of a resource: its kind, display metadata,
// visibility flags, and, depending on the kind, nested fields, relation
// target, or a compute function.
type Field struct {
	// Attribute is the key of this field in a record
	Attribute string
	// Name is the display label shown by the UI
	Name string
	// Kind selects the field's behavior and widget family
	Kind FieldKind
	// Component overrides the UI widget identifier; empty means the
	// kind's default widget
	Component string

	// Computed marks the field as derived at read time; it is never
	// persisted and never accepted on writes
	Computed bool
	// Compute resolves the value of a computed field
	Compute Compute

	// Searchable includes the attribute in free-text query matching
	Searchable bool
	// Required rejects writes that omit the attribute
	Required bool

	// HideOnIndex, HideOnCreation and HideOnUpdate control form/table
	// visibility on the client
	HideOnIndex    bool
	HideOnCreation bool
	HideOnUpdate   bool

	// EnableTime adds a time component to Date fields
	EnableTime bool

	// Options lists the choices of a Select field
	Options []SelectOption

	// Resource names the target resource of a relation field
	Resource string

	// Fields are the nested descriptors of an embedded field
	Fields []Field
}

// DefaultComponent returns the UI widget identifier for the field: the
// explicit Component when set, otherwise the kind's conventional widget.
func (f Field) DefaultComponent() string {
	if f.Component != "" {
		return f.Component
	}
	switch f.Kind {
	case KindTextarea:
		return "form-textarea"
	case KindNumber:
		return "form-number"
	case KindDate:
		return "form-date"
	case KindBoolean:
		return "form-checkbox"
	case KindSelect:
		return "form-select"
	case KindPassword:
		return "form-password"
	case KindFile:
		return "form-file"
	case KindHasOne:
		return "form-has-one"
	case KindHasMany:
		return "form-has-many"
	default:
		return "form-text"
	}
}

// serialize produces the client projection of the field, recursing into
// nested descriptors. Compute functions never cross the wire.
func (f Field) serialize() map[string]any {
	out := map[string]any{
		"attribute":          f.Attribute,
		"name":               f.Name,
		"type":               f.Kind.String(),
		"component":          f.DefaultComponent(),
		"computed":           f.Computed,
		"isSearchable":       f.Searchable,
		"isRequired":         f.Required,
		"hideOnIndexPage":    f.HideOnIndex,
		"hideOnCreationForm": f.HideOnCreation,
		"hideOnUpdateForm":   f.HideOnUpdate,
		"enableTime":         f.EnableTime,
	}
	if f.Resource != "" {
		out["resource"] = f.Resource
	}
	if len(f.Options) > 0 {
		options := make([]map[string]any, 0, len(f.Options))
		for _, option := range f.Options {
			options = append(options, map[string]any{
				"label": option.Label,
				"value": option.Value,
			})
		}
		out["options"] = options
	}
	if len(f.Fields) > 0 {
		nested := make([]map[string]any, 0, len(f.Fields))
		for _, child := range f.Fields {
			nested = append(nested, child.serialize())
		}
		out["fields"] = nested
	}
	return out
}
