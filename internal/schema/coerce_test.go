package schema

import (
	"testing"
	"time"

	"ai-dms-be/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var recordSchema = Schema{
	Fields: []Field{
		{Name: "name", Label: "Name", Type: SingleLine, Required: true},
		{Name: "comment", Label: "Comment", Type: MultiLine},
		{Name: "event_date", Label: "Event date", Type: Date},
		{Name: "update_date_note", Label: "Note", Type: SingleLine},
		{Name: "age_int", Label: "Age", Type: Int},
		{Name: "salary_float", Label: "Salary", Type: Float},
		{Name: "active", Label: "Active", Type: CheckBox},
		{Name: "user", Label: "User", Type: Reference, Module: "user", DocumentField: "email"},
		{Name: "files", Label: "Files", Type: FileField},
	},
	Search: []string{"name", "comment"},
}

func TestApplyCreate(t *testing.T) {
	doc := bson.M{}
	err := Apply(recordSchema, map[string]string{
		"name":             "Alice",
		"comment":          "",
		"event_date":       "24.12.2024",
		"update_date_note": "not a date",
		"age_int":          "42",
		"salary_float":     "1234,5",
		"active":           "On",
		"user":             "bob@example.com",
		"user_hidden":      "65a000000000000000000001",
	}, ModeCreate, doc)
	require.NoError(t, err)

	assert.Equal(t, "Alice", doc["name"])
	assert.NotContains(t, doc, "comment", "empty values are absent on create")
	assert.Equal(t, time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC), doc["event_date"])
	assert.Equal(t, "not a date", doc["update_date_note"], "type tag decides coercion, not the name")
	assert.Equal(t, int64(42), doc["age_int"])
	assert.Equal(t, 1234.5, doc["salary_float"])
	assert.Equal(t, "On", doc["active"])
	assert.Equal(t, "65a000000000000000000001", doc["user_id"])
	assert.Equal(t, "bob@example.com", doc["user"])
	assert.NotContains(t, doc, "user_hidden")
}

func TestApplyRejectsMalformedValues(t *testing.T) {
	tt := []struct {
		name  string
		field string
		value string
	}{
		{"bad date", "event_date", "2024-12-24"},
		{"impossible date", "event_date", "31.02.2024"},
		{"bad int", "age_int", "forty"},
		{"bad float", "salary_float", "1.2.3"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			doc := bson.M{}
			err := Apply(recordSchema, map[string]string{"name": "x", tc.field: tc.value}, ModeCreate, doc)

			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tc.field, appErr.Field)
			assert.Equal(t, tc.value, appErr.Value)
			assert.Empty(t, doc, "no partial write on failure")
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	doc := bson.M{
		"name":      "Alice",
		"comment":   "old",
		"active":    "On",
		"user":      "bob@example.com",
		"user_id":   "65a000000000000000000001",
		"age_int":   int64(3),
		"untouched": "keep",
	}

	err := Apply(recordSchema, map[string]string{
		"name":        "Alice B.",
		"comment":     "",
		"user":        "",
		"user_hidden": "",
	}, ModeUpdate, doc)
	require.NoError(t, err)

	assert.Equal(t, "Alice B.", doc["name"])
	assert.NotContains(t, doc, "comment")
	assert.Equal(t, CheckBoxOff, doc["active"], "absent checkbox means unchecked")
	assert.NotContains(t, doc, "user")
	assert.NotContains(t, doc, "user_id")
	assert.Equal(t, int64(3), doc["age_int"], "keys not submitted are left alone")
	assert.Equal(t, "keep", doc["untouched"])
}

func TestApplyRequired(t *testing.T) {
	err := Apply(recordSchema, map[string]string{"comment": "x"}, ModeCreate, bson.M{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	doc := bson.M{"name": "Alice"}
	err = Apply(recordSchema, map[string]string{"name": ""}, ModeUpdate, doc)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "Alice", doc["name"])
}

func TestExtras(t *testing.T) {
	extra := Extras(recordSchema, map[string]string{
		"name":        "Alice",
		"user_hidden": "1",
		"csrf_token":  "t",
		"files_files": "f",
		"color":       "blue",
		"empty":       "",
	})
	assert.Equal(t, map[string]string{"color": "blue"}, extra)
}
