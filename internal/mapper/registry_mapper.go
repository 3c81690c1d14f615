package mapper

import (
	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/registry"
)

type RegistryMapper struct{}

func NewRegistryMapper() *RegistryMapper {
	return &RegistryMapper{}
}

// ToEntryResponse leaves the schema out unless withSchema is set; menus only
// need the routing fields.
func (m *RegistryMapper) ToEntryResponse(d *registry.Descriptor, withSchema bool) *dto.RegistryEntryResponse {
	res := &dto.RegistryEntryResponse{
		Name:          d.Name,
		Plural:        d.Plural,
		Title:         d.Title,
		DocumentURL:   d.DocumentURL,
		CollectionURL: d.CollectionURL,
		Menu:          d.Menu,
		Dynamic:       d.Dynamic,
	}
	if withSchema {
		s := d.Schema
		res.Schema = &s
	}
	return res
}

func (m *RegistryMapper) ToEntryResponses(ds []*registry.Descriptor) []*dto.RegistryEntryResponse {
	out := make([]*dto.RegistryEntryResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, m.ToEntryResponse(d, false))
	}
	return out
}
