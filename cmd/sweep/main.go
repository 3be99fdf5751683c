// sweep recorre los comprobantes que quedaron a medio camino y los empuja:
// consulta el resultado de los "delivered_pending" y "not_sent", y reenvía
// los que cayeron en contingencia. Pensado para correr bajo cron.
//
// Uso: sweep [company_id ...]
// Sin argumentos barre todas las compañías con documentos pendientes.
package main

import (
	"context"
	"os"
	"time"

	appecf "github.com/intrepidux/facturacion-ecf/internal/application/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	infradgii "github.com/intrepidux/facturacion-ecf/internal/infrastructure/dgii"
	"github.com/intrepidux/facturacion-ecf/internal/infrastructure/postgres"
	"github.com/intrepidux/facturacion-ecf/pkg/config"
	"github.com/intrepidux/facturacion-ecf/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	documentRepo := postgres.NewDocumentRepository(pool)
	recordRepo := postgres.NewXMLRecordRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	signer := infradgii.NewHTTPSigner(cfg.DGII.SignerURL, cfg.DGII.CertPath, cfg.DGII.CertPassword)
	orchestrator := appecf.NewOrchestrator(appecf.Deps{
		Documents:  documentRepo,
		XMLRecords: recordRepo,
		Payments:   paymentRepo,
		Assembler:  infradgii.NewAssembler(),
		Serializer: infradgii.NewSerializer(),
		Signer:     signer,
		Authority:  infradgii.NewReceptionClient(cfg.DGII.Environment),
		Tokens:     infradgii.NewTokenManager(cfg.DGII.Environment, signer),
	}, appecf.Config{
		IssuerRNC: cfg.DGII.RNC,
	}, log)

	companies := os.Args[1:]
	if len(companies) == 0 {
		companies, err = documentRepo.CompaniesWithStatus(ctx,
			entity.StatusDeliveredPending, entity.StatusNotSent, entity.StatusContingency)
		if err != nil {
			log.Fatal().Err(err).Msg("listar compañías con pendientes")
		}
	}
	if len(companies) == 0 {
		log.Info().Msg("sin documentos pendientes")
		return
	}

	for _, companyID := range companies {
		clog := log.With().Str("company_id", companyID).Logger()
		if err := orchestrator.CheckPending(ctx, companyID); err != nil {
			clog.Error().Err(err).Msg("consulta de pendientes")
		}
		if err := orchestrator.ResendContingency(ctx, companyID); err != nil {
			clog.Error().Err(err).Msg("reenvío de contingencia")
		}
	}

	log.Info().Int("companies", len(companies)).Msg("barrido completado")
}
