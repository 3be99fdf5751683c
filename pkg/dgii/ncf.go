package dgii

import (
	"fmt"
	"unicode"
)

// NormalizeRNC elimina puntos, guiones y espacios de un RNC o cédula.
// "1-31-24674-9" -> "131246749".
func NormalizeRNC(taxID string) string {
	var out []byte
	for _, r := range taxID {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// ValidateRNC verifica que el identificador tenga largo de RNC (9) o cédula (11).
func ValidateRNC(taxID string) error {
	digits := NormalizeRNC(taxID)
	if len(digits) != 9 && len(digits) != 11 {
		return fmt.Errorf("dgii: RNC o cédula debe tener 9 u 11 dígitos, se encontraron %d", len(digits))
	}
	return nil
}

// ParseENCF descompone un e-NCF "E310000000005" en tipo ("31") y secuencia.
// Acepta también la serie B de comprobantes no electrónicos ("B0100000001").
func ParseENCF(encf string) (tipo, secuencia string, err error) {
	switch {
	case len(encf) == 13 && encf[0] == 'E':
		tipo, secuencia = encf[1:3], encf[3:]
	case len(encf) == 11 && encf[0] == 'B':
		tipo, secuencia = encf[1:3], encf[3:]
	default:
		return "", "", fmt.Errorf("dgii: e-NCF con formato inválido: %q", encf)
	}
	for _, r := range tipo + secuencia {
		if !unicode.IsDigit(r) {
			return "", "", fmt.Errorf("dgii: e-NCF con caracteres no numéricos: %q", encf)
		}
	}
	return tipo, secuencia, nil
}
