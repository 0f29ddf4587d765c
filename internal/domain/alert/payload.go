package alert

import (
	"regexp"
	"time"

	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Payload carries the disclosure data attached to an alert.  The known fields
// are typed so the regulatory serializer's access is statically checked;
// anything the detection pipeline wants to pass through untouched goes into
// Extra.
type Payload struct {
	// Person identifies the filing subject.  Required before a notice
	// containing this alert can be generated; optional at creation time
	// because detections may arrive before enrichment.
	Person *Person `json:"person,omitempty"`

	// BeneficialOwner is the optional dueño beneficiario block.
	BeneficialOwner *Person `json:"beneficial_owner,omitempty"`

	// Operation is the operation-detail block (date, vehicles, payments).
	Operation *Operation `json:"operation,omitempty"`

	// Extra is an opaque pass-through bag.  The serializer never reads it.
	Extra common.Metadata `json:"extra,omitempty"`
}

// PersonKind selects one of the three mutually exclusive identity shapes.
type PersonKind string

const (
	PersonIndividual  PersonKind = "persona_fisica"
	PersonLegalEntity PersonKind = "persona_moral"
	PersonTrust       PersonKind = "fideicomiso"
)

// Person is the filing subject or beneficial owner.  Exactly one of
// Individual, LegalEntity, or Trust must be set, matching Kind.
type Person struct {
	Kind        PersonKind   `json:"kind"`
	Individual  *Individual  `json:"individual,omitempty"`
	LegalEntity *LegalEntity `json:"legal_entity,omitempty"`
	Trust       *Trust       `json:"trust,omitempty"`

	// Address is required for the filing subject, absent on beneficial
	// owners.
	Address *Address `json:"address,omitempty"`
}

// Individual is the persona física identity block.
type Individual struct {
	FirstName        string     `json:"first_name"`
	PaternalSurname  string     `json:"paternal_surname"`
	MaternalSurname  string     `json:"maternal_surname,omitempty"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	RFC              string     `json:"rfc,omitempty"`
	CURP             string     `json:"curp,omitempty"`
	CountryCode      string     `json:"country_code,omitempty"`
	EconomicActivity string     `json:"economic_activity,omitempty"`
}

// LegalEntity is the persona moral identity block.
type LegalEntity struct {
	BusinessName      string     `json:"business_name"`
	IncorporationDate *time.Time `json:"incorporation_date,omitempty"`
	RFC               string     `json:"rfc,omitempty"`
	CommercialLine    string     `json:"commercial_line,omitempty"`
}

// Trust is the fideicomiso identity block.
type Trust struct {
	TrustName string `json:"trust_name"`
	RFC       string `json:"rfc,omitempty"`
	TrustID   string `json:"trust_id,omitempty"`
	Trustee   string `json:"trustee,omitempty"`
}

// AddressKind selects the domestic or foreign address shape.
type AddressKind string

const (
	AddressDomestic AddressKind = "nacional"
	AddressForeign  AddressKind = "extranjero"
)

// Address is the embedded address block with two mutually exclusive shapes.
// Country, State, and City are only meaningful for foreign addresses.
type Address struct {
	Kind           AddressKind `json:"kind"`
	Street         string      `json:"street"`
	ExteriorNumber string      `json:"exterior_number"`
	InteriorNumber string      `json:"interior_number,omitempty"`
	Neighborhood   string      `json:"neighborhood,omitempty"`
	PostalCode     string      `json:"postal_code"`
	CountryCode    string      `json:"country_code,omitempty"`
	State          string      `json:"state,omitempty"`
	City           string      `json:"city,omitempty"`
}

// Operation is the operation-detail block of an alert.
type Operation struct {
	Date       time.Time `json:"date"`
	PostalCode string    `json:"postal_code"`
	// TypeCode is the authority's operation-type catalog code.
	TypeCode string    `json:"type_code"`
	Vehicles []Vehicle `json:"vehicles"`
	Payments []Payment `json:"payments"`
}

// VehicleKind selects the land, marine, or air description shape.
type VehicleKind string

const (
	VehicleLand   VehicleKind = "terrestre"
	VehicleMarine VehicleKind = "maritimo"
	VehicleAir    VehicleKind = "aereo"
)

// Vehicle describes one vehicle involved in the operation.  Land vehicles use
// VIN and Plates; marine and air vehicles use SerialNumber, FlagCountry, and
// Registration.
type Vehicle struct {
	Kind      VehicleKind `json:"kind"`
	BrandCode string      `json:"brand_code"`
	Model     string      `json:"model,omitempty"`
	Year      int         `json:"year"`

	VIN        string `json:"vin,omitempty"`
	RepuveCode string `json:"repuve_code,omitempty"`
	Plates     string `json:"plates,omitempty"`

	SerialNumber string `json:"serial_number,omitempty"`
	FlagCountry  string `json:"flag_country,omitempty"`
	Registration string `json:"registration,omitempty"`
}

// Payment is one settlement record in the operation's payment sub-block.
// Amount is a decimal string with at most two fraction digits, rendered
// verbatim into the regulatory document.
type Payment struct {
	Date           time.Time `json:"date"`
	FormCode       string    `json:"form_code"`
	InstrumentCode string    `json:"instrument_code"`
	CurrencyCode   string    `json:"currency_code"`
	Amount         string    `json:"amount"`
}

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Validate checks the payload is complete enough to render a regulatory
// record.  It is called at notice generation time, not at alert creation,
// because detections may arrive before enrichment.
func (p *Payload) Validate() error {
	if p.Person == nil {
		return errors.New(errors.ErrCodeRenderMissingData, "payload missing person block")
	}
	if err := p.Person.validate(true); err != nil {
		return err
	}
	if p.BeneficialOwner != nil {
		if err := p.BeneficialOwner.validate(false); err != nil {
			return err
		}
	}
	if p.Operation == nil {
		return errors.New(errors.ErrCodeRenderMissingData, "payload missing operation block")
	}
	return p.Operation.validate()
}

func (p *Person) validate(addressRequired bool) error {
	switch p.Kind {
	case PersonIndividual:
		if p.Individual == nil || p.Individual.FirstName == "" || p.Individual.PaternalSurname == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "persona fisica requires first name and paternal surname")
		}
	case PersonLegalEntity:
		if p.LegalEntity == nil || p.LegalEntity.BusinessName == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "persona moral requires business name")
		}
	case PersonTrust:
		if p.Trust == nil || p.Trust.TrustName == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "fideicomiso requires trust name")
		}
	default:
		return errors.New(errors.ErrCodeRenderMissingData, "unknown person kind "+string(p.Kind))
	}
	if addressRequired {
		if p.Address == nil {
			return errors.New(errors.ErrCodeRenderMissingData, "person requires an address block")
		}
		return p.Address.validate()
	}
	return nil
}

func (a *Address) validate() error {
	switch a.Kind {
	case AddressDomestic:
		if a.Street == "" || a.PostalCode == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "domestic address requires street and postal code")
		}
	case AddressForeign:
		if a.CountryCode == "" || a.City == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "foreign address requires country and city")
		}
	default:
		return errors.New(errors.ErrCodeRenderMissingData, "unknown address kind "+string(a.Kind))
	}
	return nil
}

func (o *Operation) validate() error {
	if o.Date.IsZero() {
		return errors.New(errors.ErrCodeRenderMissingData, "operation date is required")
	}
	if o.TypeCode == "" {
		return errors.New(errors.ErrCodeRenderMissingData, "operation type code is required")
	}
	if len(o.Vehicles) == 0 {
		return errors.New(errors.ErrCodeRenderMissingData, "operation requires at least one vehicle")
	}
	for _, v := range o.Vehicles {
		switch v.Kind {
		case VehicleLand:
			if v.VIN == "" {
				return errors.New(errors.ErrCodeRenderMissingData, "land vehicle requires a VIN")
			}
		case VehicleMarine, VehicleAir:
			if v.SerialNumber == "" {
				return errors.New(errors.ErrCodeRenderMissingData, "marine/air vehicle requires a serial number")
			}
		default:
			return errors.New(errors.ErrCodeRenderMissingData, "unknown vehicle kind "+string(v.Kind))
		}
		if v.BrandCode == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "vehicle requires a brand code")
		}
	}
	for _, pay := range o.Payments {
		if pay.CurrencyCode == "" || pay.FormCode == "" {
			return errors.New(errors.ErrCodeRenderMissingData, "payment requires currency and form codes")
		}
		if !amountPattern.MatchString(pay.Amount) {
			return errors.New(errors.ErrCodeRenderMissingData, "payment amount must be a plain decimal").
				WithDetail("amount=" + pay.Amount)
		}
	}
	return nil
}
