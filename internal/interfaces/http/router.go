package http

import (
	"github.com/gofiber/fiber/v2"

	appecf "github.com/intrepidux/facturacion-ecf/internal/application/ecf"
	appwebpos "github.com/intrepidux/facturacion-ecf/internal/application/webpos"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
	"github.com/intrepidux/facturacion-ecf/internal/infrastructure/pdf"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator *appecf.Orchestrator
	Documents    repository.DocumentRepository
	Credentials  repository.CredentialRepository
	WebPOS       *appwebpos.Usecase
	TxRunner     TxRunner
	PDFGen       *pdf.StampPDFGenerator
	JWTSecret    string
}

// Router registra las rutas de la API. Todas las rutas de negocio son
// protegidas: los tokens se emiten fuera de banda por el administrador.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos (e-CF). Lectura para cualquier rol; las mutaciones
	// exigen admin u operador.
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.Orchestrator, deps.Documents, deps.TxRunner, deps.PDFGen)
	mutate := RequireRole(RoleAdmin, RoleOperador)
	documents.Post("/", mutate, documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Get("/:id/pdf", documentHandler.PDF)
	documents.Post("/:id/submit", mutate, documentHandler.Submit)
	documents.Post("/:id/status", mutate, documentHandler.CheckStatus)

	// Vía alternativa por el intermediario WebPOS.
	webposHandler := NewWebPOSHandler(deps.WebPOS, deps.Documents)
	documents.Post("/:id/webpos/send", mutate, webposHandler.Send)
	documents.Post("/:id/webpos/verify", mutate, webposHandler.Verify)

	// Credenciales del intermediario (solo admin).
	credentials := protected.Group("/credentials", RequireRole(RoleAdmin))
	credentialHandler := NewCredentialHandler(deps.Credentials)
	credentials.Post("/", credentialHandler.Create)
	credentials.Get("/", credentialHandler.List)
	credentials.Post("/:id/activate", credentialHandler.Activate)
}
