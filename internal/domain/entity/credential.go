package entity

import "time"

// WebPOSCredential credencial de acceso al API intermediario WebPOS.
// Solo puede haber una credencial activa por compañía.
type WebPOSCredential struct {
	ID            string
	CompanyID     string
	Name          string
	CompanyLicCod string
	BranchCod     string
	POSCod        string
	APK           string
	URLBase       string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
