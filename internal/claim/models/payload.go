package models

import (
	"encoding/json"
	"fmt"

	"hometrust/internal/artifact"
	dErrors "hometrust/pkg/domain-errors"
)

// Artifact limits per role in the claim bundle. Sizes are bytes.
const (
	maxDocumentSize    = 1 << 20
	maxSelfieSize      = 1 << 20
	maxCertificateSize = 5 << 20
)

var (
	documentMimes    = map[string]bool{"image/jpeg": true, "image/png": true, "application/pdf": true}
	selfieMimes      = map[string]bool{"image/jpeg": true, "image/png": true}
	certificateMimes = map[string]bool{"application/pdf": true, "image/jpeg": true, "image/png": true}
)

// Payload is the kind-specific artifact bundle of a claim. Each kind carries a
// fixed shape rather than an open list, so a claim can never persist with a
// missing selfie or a stray extra file.
type Payload interface {
	Kind() ClaimKind
	// Validate checks artifact presence, size, and mime against the
	// kind-specific limits.
	Validate() error
	// Refs lists the bundled artifact references in a stable order.
	Refs() []artifact.Ref
}

// NationalIDPayload is the bundle for national-id claims.
type NationalIDPayload struct {
	Document artifact.Ref `json:"document"`
	Selfie   artifact.Ref `json:"selfie"`
}

func (p NationalIDPayload) Kind() ClaimKind { return KindNationalID }

func (p NationalIDPayload) Validate() error {
	if err := checkArtifact("document", p.Document, maxDocumentSize, documentMimes); err != nil {
		return err
	}
	return checkArtifact("selfie", p.Selfie, maxSelfieSize, selfieMimes)
}

func (p NationalIDPayload) Refs() []artifact.Ref { return []artifact.Ref{p.Document, p.Selfie} }

// DriverLicensePayload is the bundle for driver-license claims. Same shape and
// limits as national-id; kept as a distinct type so the kind tag cannot drift
// from the payload.
type DriverLicensePayload struct {
	Document artifact.Ref `json:"document"`
	Selfie   artifact.Ref `json:"selfie"`
}

func (p DriverLicensePayload) Kind() ClaimKind { return KindDriverLicense }

func (p DriverLicensePayload) Validate() error {
	if err := checkArtifact("document", p.Document, maxDocumentSize, documentMimes); err != nil {
		return err
	}
	return checkArtifact("selfie", p.Selfie, maxSelfieSize, selfieMimes)
}

func (p DriverLicensePayload) Refs() []artifact.Ref { return []artifact.Ref{p.Document, p.Selfie} }

// CompanyRegistrationPayload is the bundle for company-registration claims.
type CompanyRegistrationPayload struct {
	Certificate artifact.Ref `json:"certificate"`
}

func (p CompanyRegistrationPayload) Kind() ClaimKind { return KindCompanyRegistration }

func (p CompanyRegistrationPayload) Validate() error {
	return checkArtifact("certificate", p.Certificate, maxCertificateSize, certificateMimes)
}

func (p CompanyRegistrationPayload) Refs() []artifact.Ref { return []artifact.Ref{p.Certificate} }

func checkArtifact(name string, ref artifact.Ref, maxSize int64, mimes map[string]bool) error {
	if ref.IsZero() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s artifact is required", name))
	}
	if ref.Size <= 0 || ref.Size > maxSize {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds the %d byte limit", name, maxSize))
	}
	if !mimes[ref.Mime] {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s has unsupported type %q", name, ref.Mime))
	}
	return nil
}

// UnmarshalPayload decodes a stored payload document for the given kind.
func UnmarshalPayload(kind ClaimKind, data []byte) (Payload, error) {
	switch kind {
	case KindNationalID:
		var p NationalIDPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindDriverLicense:
		var p DriverLicensePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindCompanyRegistration:
		var p CompanyRegistrationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown claim kind %q", kind))
	}
}
