package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base is embedded by every stored document.
type Base struct {
	Id         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt  time.Time          `bson:"created_at,omitempty" json:"created_at"`
	CreatedBy  string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	ModifiedAt time.Time          `bson:"modified_at,omitempty" json:"modified_at"`
	ModifiedBy string             `bson:"modified_by,omitempty" json:"modified_by,omitempty"`
}

func (b Base) IdHex() string {
	if b.Id.IsZero() {
		return ""
	}
	return b.Id.Hex()
}

// Stamp sets CreatedAt on first save and ModifiedAt on every save.
func (b *Base) Stamp(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.ModifiedAt = now
}
