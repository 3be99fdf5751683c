package ecf

import (
	"time"

	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
	infradgii "github.com/intrepidux/facturacion-ecf/internal/infrastructure/dgii"
)

// Deps dependencias del orquestador de envío. Los puertos de salida
// (Signer, Authority, TokenProvider) se inyectan como interfaces para que
// los tests no toquen la red.
type Deps struct {
	Documents  repository.DocumentRepository
	XMLRecords repository.XMLRecordRepository
	Payments   repository.PaymentRepository

	Assembler  *infradgii.Assembler
	Serializer *infradgii.Serializer
	Signer     infradgii.Signer
	Authority  infradgii.Authority
	Tokens     infradgii.TokenProvider
}

// Config parámetros del ciclo de envío.
type Config struct {
	// RNC del emisor cuando el documento no trae uno; el archivo XML y las
	// consultas de TrackID usan "{rnc}{encf}".
	IssuerRNC string
	// Espera entre la recepción del TrackID y la primera consulta de estado.
	PollDelay time.Duration
	// Tamaño del pool para los barridos (pendientes y contingencia).
	SweepWorkers int
}

func (c Config) withDefaults() Config {
	if c.PollDelay == 0 {
		c.PollDelay = time.Second
	}
	if c.SweepWorkers == 0 {
		c.SweepWorkers = 4
	}
	return c
}
