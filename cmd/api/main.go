package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appecf "github.com/intrepidux/facturacion-ecf/internal/application/ecf"
	appwebpos "github.com/intrepidux/facturacion-ecf/internal/application/webpos"
	infradgii "github.com/intrepidux/facturacion-ecf/internal/infrastructure/dgii"
	infrapdf "github.com/intrepidux/facturacion-ecf/internal/infrastructure/pdf"
	"github.com/intrepidux/facturacion-ecf/internal/infrastructure/postgres"
	infrawebpos "github.com/intrepidux/facturacion-ecf/internal/infrastructure/webpos"
	httpRouter "github.com/intrepidux/facturacion-ecf/internal/interfaces/http"
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
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("dgii_env", cfg.DGII.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	documentRepo := postgres.NewDocumentRepository(pool)
	recordRepo := postgres.NewXMLRecordRepository(pool)
	credentialRepo := postgres.NewCredentialRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Ciclo de envío directo a la DGII: ensamblado → firma externa →
	// recepción → consulta de resultado.
	signer := infradgii.NewHTTPSigner(cfg.DGII.SignerURL, cfg.DGII.CertPath, cfg.DGII.CertPassword)
	authority := infradgii.NewReceptionClient(cfg.DGII.Environment)
	tokens := infradgii.NewTokenManager(cfg.DGII.Environment, signer)

	orchestrator := appecf.NewOrchestrator(appecf.Deps{
		Documents:  documentRepo,
		XMLRecords: recordRepo,
		Payments:   paymentRepo,
		Assembler:  infradgii.NewAssembler(),
		Serializer: infradgii.NewSerializer(),
		Signer:     signer,
		Authority:  authority,
		Tokens:     tokens,
	}, appecf.Config{
		IssuerRNC: cfg.DGII.RNC,
	}, log)

	// Vía alternativa por el intermediario WebPOS (JSON-RPC).
	webposClient := infrawebpos.NewClient(cfg.WebPOS.URLBase)
	webposUC := appwebpos.NewUsecase(documentRepo, recordRepo, credentialRepo, webposClient, log)

	// Representación impresa con el timbre (QR) de la DGII.
	pdfGen := infrapdf.NewStampPDFGenerator(cfg.DGII.Environment)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator: orchestrator,
		Documents:    documentRepo,
		Credentials:  credentialRepo,
		WebPOS:       webposUC,
		TxRunner:     txRunner,
		PDFGen:       pdfGen,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
