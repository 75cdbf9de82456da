package rpc

import (
	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
)

// attributeDTO is the wire shape of one abac.Attribute.
type attributeDTO struct {
	NamespaceID uuid.UUID `json:"namespace_id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
}

func compositeDTO(c abac.Composite) []attributeDTO {
	out := make([]attributeDTO, len(c))
	for i, a := range c {
		out[i] = attributeDTO{NamespaceID: a.NamespaceID, Key: a.Key, Value: a.Value}
	}
	return out
}

func compositeFromDTO(dto []attributeDTO) abac.Composite {
	attrs := make([]abac.Attribute, len(dto))
	for i, d := range dto {
		attrs[i] = abac.Attribute{NamespaceID: d.NamespaceID, Key: d.Key, Value: d.Value}
	}
	return abac.NewComposite(attrs...)
}
