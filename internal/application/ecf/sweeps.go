package ecf

import (
	"context"
	"sync"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// CheckPending repasa los documentos entregados cuyo veredicto aún no llegó
// (en proceso) y los que nunca salieron por fallo de conexión, y consulta su
// estado en la DGII. Un documento sin TrackID local lo recupera primero por
// (RNC, e-NCF). Pensado para correr como tarea programada.
func (o *Orchestrator) CheckPending(ctx context.Context, companyID string) error {
	docs, err := o.deps.Documents.ListByStatus(ctx, companyID,
		entity.StatusDeliveredPending, entity.StatusNotSent)
	if err != nil {
		return err
	}
	o.log.Info().Int("documentos", len(docs)).Msg("barrido de e-CF pendientes")

	o.forEach(ctx, docs, func(ctx context.Context, doc *entity.FiscalDocument) {
		if err := o.CheckStatus(ctx, doc.ID); err != nil {
			o.log.Warn().Err(err).Str("encf", doc.ENCF).Msg("consulta de pendiente falló")
		}
	})
	return nil
}

// ResendContingency reintenta los documentos que quedaron en contingencia
// porque el servicio de recepción estaba caído. El reenvío reutiliza el XML
// ya firmado y conserva el TrackID si existía.
func (o *Orchestrator) ResendContingency(ctx context.Context, companyID string) error {
	docs, err := o.deps.Documents.ListByStatus(ctx, companyID, entity.StatusContingency)
	if err != nil {
		return err
	}
	o.log.Info().Int("documentos", len(docs)).Msg("reenvío de e-CF en contingencia")

	o.forEach(ctx, docs, func(ctx context.Context, doc *entity.FiscalDocument) {
		if err := o.Submit(ctx, doc.ID); err != nil {
			o.log.Warn().Err(err).Str("encf", doc.ENCF).Msg("reenvío de contingencia falló")
		}
	})
	return nil
}

// forEach procesa documentos con un pool acotado de workers.
func (o *Orchestrator) forEach(ctx context.Context, docs []*entity.FiscalDocument, fn func(context.Context, *entity.FiscalDocument)) {
	jobs := make(chan *entity.FiscalDocument)
	var wg sync.WaitGroup

	for i := 0; i < o.cfg.SweepWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				fn(ctx, doc)
			}
		}()
	}

	for _, doc := range docs {
		select {
		case jobs <- doc:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}
