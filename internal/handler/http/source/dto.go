package source

import "catchup-feed/internal/domain/entity"

// DTO is the wire representation of an entity.Source.
type DTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Enabled       bool   `json:"enabled"`
	IsStakeholder bool   `json:"is_stakeholder"`
}

func toDTO(s *entity.Source) DTO {
	return DTO{
		ID:            s.ID,
		Name:          s.Name,
		Enabled:       s.Enabled,
		IsStakeholder: s.IsStakeholder,
	}
}
