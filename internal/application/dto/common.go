package dto

import "github.com/intrepidux/facturacion-ecf/internal/domain"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// ErrorResponse cuerpo de error HTTP. Messages lleva el detalle código/valor
// devuelto por la DGII cuando el error proviene de la autoridad fiscal.
type ErrorResponse struct {
	Code     string                    `json:"code"`
	Message  string                    `json:"message"`
	Messages []domain.AuthorityMessage `json:"mensajes,omitempty"`
}
