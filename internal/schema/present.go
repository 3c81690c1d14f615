package schema

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hiddenKeys = map[string]bool{"password": true}

// Present turns a stored document into a JSON-friendly value map: the id
// becomes "id", date fields render as DD.MM.YYYY and secrets are dropped.
func Present(s Schema, doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if hiddenKeys[k] {
			continue
		}
		if k == "_id" {
			out["id"] = idString(v)
			continue
		}
		if s.IsDate(k) {
			if t, ok := asTime(v); ok {
				out[k] = FormatDate(t)
				continue
			}
		}
		out[k] = plain(v)
	}
	return out
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time().UTC(), true
	}
	return time.Time{}, false
}

func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bson.M:
		m := make(map[string]interface{}, len(val))
		for k, inner := range val {
			m[k] = plain(inner)
		}
		return m
	case map[string]interface{}:
		return plain(bson.M(val))
	case bson.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		list := make([]interface{}, len(val))
		for i, inner := range val {
			list[i] = plain(inner)
		}
		return list
	case []interface{}:
		return plain(bson.A(val))
	default:
		return v
	}
}
