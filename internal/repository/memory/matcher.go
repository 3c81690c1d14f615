package memory

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match evaluates a MongoDB-style condition tree against doc. Supported:
// $and, $or, $regex/$options, $eq, $ne, $gt, $gte, $lt, $lte, $in, $exists
// and plain equality. Dotted paths descend into sub-documents and arrays.
func Match(doc bson.M, cond bson.M) (bool, error) {
	for key, expected := range cond {
		var ok bool
		var err error
		switch key {
		case "$and":
			ok, err = matchAll(doc, expected)
		case "$or":
			ok, err = matchAny(doc, expected)
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("unsupported top-level operator %s", key)
			}
			ok, err = matchField(lookup(doc, key), expected)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func clauses(v interface{}) ([]bson.M, error) {
	var out []bson.M
	switch list := v.(type) {
	case bson.A:
		for _, c := range list {
			m, ok := asMap(c)
			if !ok {
				return nil, fmt.Errorf("clause %v is not a document", c)
			}
			out = append(out, m)
		}
	case []bson.M:
		out = list
	case []interface{}:
		return clauses(bson.A(list))
	default:
		return nil, fmt.Errorf("expected a list of clauses, got %T", v)
	}
	return out, nil
}

func matchAll(doc bson.M, v interface{}) (bool, error) {
	list, err := clauses(v)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		ok, err := Match(doc, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAny(doc bson.M, v interface{}) (bool, error) {
	list, err := clauses(v)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		ok, err := Match(doc, c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// lookup returns every value reachable by a dotted path. Arrays fan out.
func lookup(doc interface{}, path string) []interface{} {
	head, rest, nested := strings.Cut(path, ".")
	var values []interface{}

	switch node := doc.(type) {
	case bson.A:
		for _, el := range node {
			values = append(values, lookup(el, path)...)
		}
		return values
	default:
		m, ok := asMap(node)
		if !ok {
			return nil
		}
		v, found := m[head]
		if !found {
			return nil
		}
		if !nested {
			return []interface{}{v}
		}
		return lookup(v, rest)
	}
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func isOperatorDoc(v interface{}) (bson.M, bool) {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchField(values []interface{}, expected interface{}) (bool, error) {
	ops, isOps := isOperatorDoc(expected)
	if !isOps {
		return anyEqual(values, expected), nil
	}

	for op, arg := range ops {
		var ok bool
		switch op {
		case "$options":
			continue
		case "$regex":
			pattern, _ := arg.(string)
			if opts, _ := ops["$options"].(string); strings.Contains(opts, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return false, fmt.Errorf("invalid $regex: %w", err)
			}
			ok = anyScalar(values, func(v interface{}) bool {
				s, isString := v.(string)
				return isString && re.MatchString(s)
			})
		case "$eq":
			ok = anyEqual(values, arg)
		case "$ne":
			ok = !anyEqual(values, arg)
		case "$in":
			list, _ := arg.(bson.A)
			if raw, isSlice := arg.([]interface{}); isSlice {
				list = raw
			}
			for _, candidate := range list {
				if anyEqual(values, candidate) {
					ok = true
					break
				}
			}
		case "$exists":
			want, _ := arg.(bool)
			ok = (len(values) > 0) == want
		case "$gt", "$gte", "$lt", "$lte":
			ok = anyScalar(values, func(v interface{}) bool {
				c, comparable := compare(v, arg)
				if !comparable {
					return false
				}
				switch op {
				case "$gt":
					return c > 0
				case "$gte":
					return c >= 0
				case "$lt":
					return c < 0
				default:
					return c <= 0
				}
			})
		default:
			return false, fmt.Errorf("unsupported operator %s", op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// anyScalar applies fn to each value, descending one level into arrays.
func anyScalar(values []interface{}, fn func(interface{}) bool) bool {
	for _, v := range values {
		if arr, ok := v.(bson.A); ok {
			for _, el := range arr {
				if fn(el) {
					return true
				}
			}
			continue
		}
		if fn(v) {
			return true
		}
	}
	return false
}

func anyEqual(values []interface{}, expected interface{}) bool {
	if expected == nil && len(values) == 0 {
		return true
	}
	for _, v := range values {
		if equal(v, expected) {
			return true
		}
	}
	return anyScalar(values, func(v interface{}) bool { return equal(v, expected) })
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case primitive.DateTime:
		return n.Time().UTC()
	case time.Time:
		return n.UTC()
	case map[string]interface{}:
		return bson.M(n)
	case []interface{}:
		return bson.A(n)
	}
	return v
}

// compare orders two scalars of the same family: numbers, strings, times, ObjectIDs.
func compare(a, b interface{}) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Hex(), y.Hex()), true
	case bool:
		y, ok := b.(bool)
		if !ok || x != y {
			return 0, false
		}
		return 0, true
	}
	return 0, false
}
