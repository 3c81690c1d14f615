package entity

type File struct {
	Base       `bson:",inline"`
	Name       string `bson:"name" json:"name"`
	Path       string `bson:"path" json:"path"`
	Category   string `bson:"category,omitempty" json:"category,omitempty"`
	FileType   string `bson:"file_type" json:"file_type"`
	OwnerId    string `bson:"owner_id" json:"owner_id"`
	DocumentId string `bson:"document_id,omitempty" json:"document_id,omitempty"`
	ElementId  string `bson:"element_id,omitempty" json:"element_id,omitempty"`
}

// StorageKey is where the blob lives relative to the storage root.
func (f *File) StorageKey() string {
	return f.Path + "/" + f.IdHex() + "." + f.FileType
}

func (f *File) IsImage() bool {
	switch f.FileType {
	case "png", "jpg", "jpeg", "gif":
		return true
	}
	return false
}
