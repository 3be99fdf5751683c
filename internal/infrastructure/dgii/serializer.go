package dgii

import (
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
)

// Serializer convierte el árbol del e-CF a los bytes exactos que se firman.
// Tras el marshal se reindenta con etree: el servicio de firma calcula el
// digest sobre estos bytes, así que la representación debe ser estable.
type Serializer struct{}

// NewSerializer crea el serializador.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Serialize serializa cualquier raíz (ECF o RFCE) y la deja lista para firmar.
func (s *Serializer) Serialize(root any) ([]byte, error) {
	raw, err := xml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("dgii: serializar e-CF: %w", err)
	}
	return s.pretty(raw)
}

// pretty reparsea y reindenta el XML. También valida de paso que el
// documento esté bien formado antes de mandarlo al firmador.
func (s *Serializer) pretty(raw []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("dgii: XML mal formado: %w", err)
	}
	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dgii: reindentar XML: %w", err)
	}
	return out, nil
}
