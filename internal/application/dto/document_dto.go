package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// PartyRequest emisor o comprador del comprobante.
type PartyRequest struct {
	RNC            string `json:"rnc"`
	Name           string `json:"name" validate:"required"`
	CommercialName string `json:"commercial_name"`
	Address        string `json:"address"`
	Municipality   string `json:"municipality"`
	Province       string `json:"province"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	IsForeign      bool   `json:"is_foreign"`
}

// LineRequest una línea de detalle.
type LineRequest struct {
	Description string          `json:"description" validate:"required"`
	IsService   bool            `json:"is_service"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	ITBISRate   decimal.Decimal `json:"itbis_rate"`
	ITBISAmount decimal.Decimal `json:"itbis_amount"`
	Exempt      bool            `json:"exempt"`

	AdditionalTaxes []AdditionalTaxRequest `json:"additional_taxes,omitempty"`
}

// AdditionalTaxRequest impuesto adicional de línea (ISC, propina legal...).
type AdditionalTaxRequest struct {
	Code    string          `json:"code" validate:"required"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
	PerUnit bool            `json:"per_unit"`
}

// TaxLineRequest apunte de impuesto a nivel documento (libro mayor).
type TaxLineRequest struct {
	Kind   string          `json:"kind" validate:"required"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentFormRequest una entrada de la tabla de formas de pago.
type PaymentFormRequest struct {
	Form   string          `json:"form" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateDocumentRequest alta de un comprobante listo para enviar.
type CreateDocumentRequest struct {
	ENCF             string `json:"encf" validate:"required"`
	FiscalTypePrefix string `json:"fiscal_type_prefix"`
	ShortCode        string `json:"short_code"`
	MoveKind         string `json:"move_kind" validate:"required"`
	DebitOrigin      bool   `json:"debit_origin"`

	IssueDate   time.Time  `json:"issue_date" validate:"required"`
	DueDate     *time.Time `json:"due_date"`
	SequenceDue *time.Time `json:"sequence_due"`

	Currency          string          `json:"currency"`
	AmountTotal       decimal.Decimal `json:"amount_total"`
	AmountTotalSigned decimal.Decimal `json:"amount_total_signed"`

	Issuer PartyRequest  `json:"issuer" validate:"required"`
	Buyer  *PartyRequest `json:"buyer"`

	Lines        []LineRequest        `json:"lines" validate:"required,min=1"`
	TaxLines     []TaxLineRequest     `json:"tax_lines"`
	PaymentForms []PaymentFormRequest `json:"payment_forms"`

	OriginENCF       string     `json:"origin_encf"`
	OriginIssueDate  *time.Time `json:"origin_issue_date"`
	ModificationCode string     `json:"modification_code"`

	// Comercio exterior (tipo 46).
	ContainerNumber string     `json:"container_number"`
	ReferenceNumber string     `json:"reference_number"`
	ShipmentDate    *time.Time `json:"shipment_date"`
}

// ToEntity proyecta la petición a la entidad de dominio.
func (r CreateDocumentRequest) ToEntity(companyID string) *entity.FiscalDocument {
	doc := &entity.FiscalDocument{
		CompanyID:         companyID,
		ENCF:              r.ENCF,
		FiscalTypePrefix:  r.FiscalTypePrefix,
		ShortCode:         r.ShortCode,
		MoveKind:          r.MoveKind,
		DebitOrigin:       r.DebitOrigin,
		IssueDate:         r.IssueDate,
		DueDate:           r.DueDate,
		SequenceDue:       r.SequenceDue,
		Currency:          r.Currency,
		AmountTotal:       r.AmountTotal,
		AmountTotalSigned: r.AmountTotalSigned,
		Issuer:            toParty(r.Issuer),
		OriginENCF:        r.OriginENCF,
		OriginIssueDate:   r.OriginIssueDate,
		ModificationCode:  r.ModificationCode,
		ContainerNumber:   r.ContainerNumber,
		ReferenceNumber:   r.ReferenceNumber,
		ShipmentDate:      r.ShipmentDate,
		Status:            entity.StatusToSend,
	}
	if doc.Currency == "" {
		doc.Currency = "DOP"
	}
	if doc.AmountTotalSigned.IsZero() {
		doc.AmountTotalSigned = doc.AmountTotal
	}
	if r.Buyer != nil {
		b := toParty(*r.Buyer)
		doc.Buyer = &b
	}
	for _, l := range r.Lines {
		line := entity.DocumentLine{
			Description: l.Description,
			IsService:   l.IsService,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
			ITBISRate:   l.ITBISRate,
			ITBISAmount: l.ITBISAmount,
			Exempt:      l.Exempt,
		}
		for _, at := range l.AdditionalTaxes {
			line.AdditionalTaxes = append(line.AdditionalTaxes, entity.AdditionalTax{
				Code: at.Code, Rate: at.Rate, Amount: at.Amount, PerUnit: at.PerUnit,
			})
		}
		doc.Lines = append(doc.Lines, line)
	}
	for _, tl := range r.TaxLines {
		doc.TaxLines = append(doc.TaxLines, entity.TaxLine{Kind: tl.Kind, Rate: tl.Rate, Amount: tl.Amount})
	}
	for _, pf := range r.PaymentForms {
		doc.PaymentForms = append(doc.PaymentForms, entity.PaymentForm{Form: pf.Form, Amount: pf.Amount})
	}
	return doc
}

func toParty(p PartyRequest) entity.Party {
	return entity.Party{
		RNC:            p.RNC,
		Name:           p.Name,
		CommercialName: p.CommercialName,
		Address:        p.Address,
		Municipality:   p.Municipality,
		Province:       p.Province,
		Email:          p.Email,
		Phone:          p.Phone,
		IsForeign:      p.IsForeign,
	}
}

// ── Responses ─────────────────────────────────────────────────────────────────

// DocumentResponse estado resumido del comprobante.
type DocumentResponse struct {
	ID           string          `json:"id"`
	ENCF         string          `json:"encf"`
	Status       string          `json:"status"`
	TrackID      string          `json:"track_id,omitempty"`
	SecurityCode string          `json:"security_code,omitempty"`
	SignedAt     *time.Time      `json:"signed_at,omitempty"`
	CUFE         string          `json:"cufe,omitempty"`
	AmountTotal  decimal.Decimal `json:"amount_total"`
	IssueDate    time.Time       `json:"issue_date"`
}

// DocumentResponseFrom proyecta la entidad a la respuesta.
func DocumentResponseFrom(doc *entity.FiscalDocument) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID,
		ENCF:         doc.ENCF,
		Status:       doc.Status,
		TrackID:      doc.TrackID,
		SecurityCode: doc.SecurityCode,
		CUFE:         doc.CUFE,
		AmountTotal:  doc.AmountTotal,
		IssueDate:    doc.IssueDate,
	}
	if !doc.SignedAt.IsZero() {
		t := doc.SignedAt
		resp.SignedAt = &t
	}
	return resp
}

// ── Credenciales WebPOS ───────────────────────────────────────────────────────

// CreateCredentialRequest alta de una credencial del intermediario.
type CreateCredentialRequest struct {
	Name          string `json:"name" validate:"required"`
	CompanyLicCod string `json:"company_lic_cod" validate:"required"`
	BranchCod     string `json:"branch_cod"`
	POSCod        string `json:"pos_cod"`
	APK           string `json:"apk" validate:"required"`
	URLBase       string `json:"url_base" validate:"required"`
}

// CredentialResponse credencial sin el APK (nunca se devuelve el secreto).
type CredentialResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CompanyLicCod string `json:"company_lic_cod"`
	BranchCod     string `json:"branch_cod,omitempty"`
	POSCod        string `json:"pos_cod,omitempty"`
	URLBase       string `json:"url_base"`
	Active        bool   `json:"active"`
}

// CredentialResponseFrom proyecta la entidad a la respuesta.
func CredentialResponseFrom(c *entity.WebPOSCredential) CredentialResponse {
	return CredentialResponse{
		ID:            c.ID,
		Name:          c.Name,
		CompanyLicCod: c.CompanyLicCod,
		BranchCod:     c.BranchCod,
		POSCod:        c.POSCod,
		URLBase:       c.URLBase,
		Active:        c.Active,
	}
}
