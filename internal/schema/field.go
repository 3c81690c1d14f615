// Package schema declares per-entity field descriptors. A field's Type tag, not
// its name, decides how a submitted form value is coerced.
package schema

type FieldType int

const (
	SingleLine FieldType = iota
	MultiLine
	Date
	Int
	Float
	CheckBox
	Reference
	FileField
	Button
	SimpleList
	Counter
	Password
	Rules
)

var fieldTypeNames = map[FieldType]string{
	SingleLine: "single_line",
	MultiLine:  "multi_line",
	Date:       "date",
	Int:        "int",
	Float:      "float",
	CheckBox:   "checkbox",
	Reference:  "reference",
	FileField:  "file",
	Button:     "button",
	SimpleList: "simple_list",
	Counter:    "counter",
	Password:   "password",
	Rules:      "rules",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Field describes one form/table column.
type Field struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Type      FieldType `json:"type"`
	Required  bool      `json:"required,omitempty"`
	FullWidth bool      `json:"full_width,omitempty"`
	Class     string    `json:"class,omitempty"`

	// Reference targets.
	Module        string `json:"module,omitempty"`
	DocumentField string `json:"document_field,omitempty"`

	Options []string `json:"options,omitempty"`
}

// Stored reports whether the CRUD coercion step writes this field from the form.
func (f Field) Stored() bool {
	switch f.Type {
	case Button, FileField, Counter, Password, Rules:
		return false
	}
	return true
}

type Schema struct {
	Fields []Field  `json:"fields"`
	Search []string `json:"search_fields"`
	List   []string `json:"list_fields"`
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsDate reports whether name is a date-typed field. Names the schema does not
// know fall back to containing "_date", which is how stored filter rules
// written against dynamic fields address dates.
func (s Schema) IsDate(name string) bool {
	if f, ok := s.Field(name); ok {
		return f.Type == Date
	}
	return containsDateMarker(name)
}

// claims reports whether a raw form key belongs to a declared field.
func (s Schema) claims(key string) bool {
	for _, f := range s.Fields {
		if key == f.Name {
			return true
		}
		if f.Type == Reference && (key == f.Name+"_hidden" || key == f.Name+"_id") {
			return true
		}
	}
	return false
}
