package implementation

import "go.mongodb.org/mongo-driver/bson/primitive"

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		if id.IsZero() {
			return ""
		}
		return id.Hex()
	case string:
		return id
	}
	return ""
}
