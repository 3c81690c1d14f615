package schema

import (
	"fmt"
	"strconv"
	"strings"

	"ai-dms-be/internal/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

const (
	CheckBoxOff = "Off"
	csrfField   = "csrf_token"
	filesPrefix = "files_"
)

// Coerce converts one raw form value according to the field's type tag.
func Coerce(f Field, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch f.Type {
	case Date:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, apperr.Validation(f.Name, raw, fmt.Sprintf("Invalid date format for field %s", f.Name))
		}
		return t, nil
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.Validation(f.Name, raw, fmt.Sprintf("Invalid integer format for field %s", f.Name))
		}
		return n, nil
	case Float:
		n, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil {
			return nil, apperr.Validation(f.Name, raw, fmt.Sprintf("Invalid float format for field %s", f.Name))
		}
		return n, nil
	case SimpleList:
		if len(f.Options) > 0 && !contains(f.Options, raw) {
			return nil, apperr.Validation(f.Name, raw, fmt.Sprintf("Invalid option for field %s", f.Name))
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// Apply writes the coerced form values into doc. Nothing is written when an
// error is returned for create; update callers must discard doc on error.
func Apply(s Schema, form map[string]string, mode Mode, doc bson.M) error {
	staged := bson.M{}
	var removed []string

	for _, f := range s.Fields {
		if !f.Stored() {
			continue
		}

		switch f.Type {
		case Reference:
			idKey := f.Name + "_id"
			hidden, hasHidden := form[f.Name+"_hidden"]
			display, hasDisplay := form[f.Name]
			if mode == ModeUpdate && (hasHidden || hasDisplay) && strings.TrimSpace(hidden) == "" {
				removed = append(removed, f.Name, idKey)
				continue
			}
			if strings.TrimSpace(hidden) != "" {
				staged[idKey] = strings.TrimSpace(hidden)
			}
			if strings.TrimSpace(display) != "" {
				staged[f.Name] = display
			}

		case CheckBox:
			v := strings.TrimSpace(form[f.Name])
			if v != "" {
				staged[f.Name] = v
			} else if mode == ModeUpdate {
				staged[f.Name] = CheckBoxOff
			}

		default:
			raw, ok := form[f.Name]
			if !ok {
				continue
			}
			if strings.TrimSpace(raw) == "" {
				if mode == ModeUpdate {
					removed = append(removed, f.Name)
				}
				continue
			}
			v, err := Coerce(f, raw)
			if err != nil {
				return err
			}
			staged[f.Name] = v
		}
	}

	for _, f := range s.Fields {
		if !f.Required || !f.Stored() {
			continue
		}
		_, inStaged := staged[f.Name]
		_, inDoc := doc[f.Name]
		if !inStaged && (!inDoc || containsString(removed, f.Name)) {
			return apperr.Validation(f.Name, "", fmt.Sprintf("%s is required", f.Label))
		}
	}

	for _, key := range removed {
		delete(doc, key)
	}
	for k, v := range staged {
		doc[k] = v
	}
	return nil
}

// Extras collects submitted keys no declared field claims. Dynamic entity
// types keep them in their side-table.
func Extras(s Schema, form map[string]string) map[string]string {
	extra := map[string]string{}
	for k, v := range form {
		if k == csrfField || strings.HasPrefix(k, filesPrefix) || s.claims(k) {
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		extra[k] = v
	}
	return extra
}

// StripTransport removes framework fields that never reach coercion.
func StripTransport(form map[string]string) map[string]string {
	clean := make(map[string]string, len(form))
	for k, v := range form {
		if k == csrfField || strings.HasPrefix(k, filesPrefix) {
			continue
		}
		clean[k] = v
	}
	return clean
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	return contains(list, v)
}
