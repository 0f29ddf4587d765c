package reporting

import (
	"fmt"
	"strings"

	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/pkg/errors"
)

// xmlDeclaration opens every rendered document.
const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// namespace is the authority's schema namespace for the vehicle-trade
// vulnerable activity.
const namespace = "http://www.uif.shcp.gob.mx/recepcion/veh"

// escape replaces the five XML metacharacters with their entities.  Every
// text node goes through here before insertion; nothing else may write raw
// content into the document.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writer accumulates the document.  Elements are written in schema order by
// explicit calls; there is no map iteration anywhere in the render path, so
// output is deterministic by construction.
type writer struct {
	b strings.Builder
}

func (w *writer) open(tag string) {
	w.b.WriteString("<")
	w.b.WriteString(tag)
	w.b.WriteString(">")
}

func (w *writer) openNS(tag, ns string) {
	fmt.Fprintf(&w.b, `<%s xmlns="%s">`, tag, ns)
}

func (w *writer) close(tag string) {
	w.b.WriteString("</")
	w.b.WriteString(tag)
	w.b.WriteString(">")
}

// elem writes <tag>escaped-text</tag>.
func (w *writer) elem(tag, text string) {
	w.open(tag)
	w.b.WriteString(escape(text))
	w.close(tag)
}

// optElem writes the element only when text is non-empty.  The schema marks
// these fields minOccurs=0; an empty element is a schema violation.
func (w *writer) optElem(tag, text string) {
	if text == "" {
		return
	}
	w.elem(tag, text)
}

func (w *writer) bytes() []byte {
	return []byte(w.b.String())
}

// RenderNotice renders the notice-level document: one header plus every
// per-alert record, wrapped in the authority's archive element.
func RenderNotice(h Header, records []Record) ([]byte, error) {
	if err := validateHeader(h); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeRenderMissingData, "notice document requires at least one record")
	}

	w := &writer{}
	w.b.WriteString(xmlDeclaration)
	w.openNS("archivo", namespace)
	w.open("informe")
	w.elem("mes_reportado", h.ReportedMonth)
	writeObligor(w, h)
	for i := range records {
		if err := writeRecord(w, &records[i]); err != nil {
			return nil, err
		}
	}
	w.close("informe")
	w.close("archivo")
	return w.bytes(), nil
}

// RenderSingle renders one record in the standalone wrapper used by the
// individual-alert file-generation flow.  The inner structure is identical
// to the notice document; only the outer element differs.
func RenderSingle(h Header, record Record) ([]byte, error) {
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	w := &writer{}
	w.b.WriteString(xmlDeclaration)
	w.openNS("aviso_individual", namespace)
	w.elem("mes_reportado", h.ReportedMonth)
	writeObligor(w, h)
	if err := writeRecord(w, &record); err != nil {
		return nil, err
	}
	w.close("aviso_individual")
	return w.bytes(), nil
}

func validateHeader(h Header) error {
	if h.ReportedMonth == "" {
		return errors.New(errors.ErrCodeRenderMissingData, "header missing reported month")
	}
	if h.ObligorID == "" {
		return errors.New(errors.ErrCodeRenderMissingData, "header missing obligor id")
	}
	if h.ActivityCode == "" {
		return errors.New(errors.ErrCodeRenderMissingData, "header missing activity code")
	}
	return nil
}

func writeObligor(w *writer, h Header) {
	w.open("sujeto_obligado")
	w.elem("clave_sujeto_obligado", h.ObligorID)
	w.elem("clave_actividad", h.ActivityCode)
	w.close("sujeto_obligado")
}

func writeRecord(w *writer, r *Record) error {
	if r.Reference == "" {
		return errors.New(errors.ErrCodeRenderMissingData, "record missing reference")
	}
	if r.Person == nil {
		return errors.New(errors.ErrCodeRenderMissingData, "record missing person block").
			WithDetail("reference=" + r.Reference)
	}
	if r.Operation == nil {
		return errors.New(errors.ErrCodeRenderMissingData, "record missing operation block").
			WithDetail("reference=" + r.Reference)
	}

	w.open("aviso")
	w.elem("referencia_aviso", r.Reference)
	w.elem("prioridad", fmt.Sprintf("%d", r.Priority))

	w.open("alerta")
	w.elem("tipo_alerta", r.AlertTypeCode)
	w.optElem("descripcion_alerta", r.AlertDescription)
	w.close("alerta")

	w.open("persona_aviso")
	if err := writePersonKind(w, r.Person, r.Reference); err != nil {
		return err
	}
	if r.Person.Address != nil {
		if err := writeAddress(w, r.Person.Address, r.Reference); err != nil {
			return err
		}
	}
	w.close("persona_aviso")

	if r.BeneficialOwner != nil {
		w.open("dueno_beneficiario")
		if err := writePersonKind(w, r.BeneficialOwner, r.Reference); err != nil {
			return err
		}
		w.close("dueno_beneficiario")
	}

	if err := writeOperation(w, r.Operation, r.Reference); err != nil {
		return err
	}

	w.close("aviso")
	return nil
}

// writePersonKind writes the three-way identity branch.  Exactly one shape is
// emitted; a person with no matching block is unrenderable.
func writePersonKind(w *writer, p *alert.Person, ref string) error {
	w.open("tipo_persona")
	switch p.Kind {
	case alert.PersonIndividual:
		if p.Individual == nil {
			return missingBranch(ref, "persona_fisica")
		}
		ind := p.Individual
		w.open("persona_fisica")
		w.elem("nombre", ind.FirstName)
		w.elem("apellido_paterno", ind.PaternalSurname)
		w.optElem("apellido_materno", ind.MaternalSurname)
		if ind.BirthDate != nil {
			w.elem("fecha_nacimiento", dayDate(*ind.BirthDate))
		}
		w.optElem("rfc", ind.RFC)
		w.optElem("curp", ind.CURP)
		w.optElem("pais_nacionalidad", ind.CountryCode)
		w.optElem("actividad_economica", ind.EconomicActivity)
		w.close("persona_fisica")
	case alert.PersonLegalEntity:
		if p.LegalEntity == nil {
			return missingBranch(ref, "persona_moral")
		}
		le := p.LegalEntity
		w.open("persona_moral")
		w.elem("denominacion_razon", le.BusinessName)
		if le.IncorporationDate != nil {
			w.elem("fecha_constitucion", dayDate(*le.IncorporationDate))
		}
		w.optElem("rfc", le.RFC)
		w.optElem("giro_mercantil", le.CommercialLine)
		w.close("persona_moral")
	case alert.PersonTrust:
		if p.Trust == nil {
			return missingBranch(ref, "fideicomiso")
		}
		tr := p.Trust
		w.open("fideicomiso")
		w.elem("denominacion_razon", tr.TrustName)
		w.optElem("rfc", tr.RFC)
		w.optElem("identificador_fideicomiso", tr.TrustID)
		w.optElem("nombre_fiduciario", tr.Trustee)
		w.close("fideicomiso")
	default:
		return errors.New(errors.ErrCodeRenderMissingData, "unknown person kind "+string(p.Kind)).
			WithDetail("reference=" + ref)
	}
	w.close("tipo_persona")
	return nil
}

// writeAddress writes the two-way domestic/foreign address branch.
func writeAddress(w *writer, a *alert.Address, ref string) error {
	w.open("tipo_domicilio")
	switch a.Kind {
	case alert.AddressDomestic:
		w.open("nacional")
		w.elem("colonia", a.Neighborhood)
		w.elem("calle", a.Street)
		w.elem("numero_exterior", a.ExteriorNumber)
		w.optElem("numero_interior", a.InteriorNumber)
		w.elem("codigo_postal", a.PostalCode)
		w.close("nacional")
	case alert.AddressForeign:
		w.open("extranjero")
		w.elem("pais", a.CountryCode)
		w.elem("estado_provincia", a.State)
		w.elem("ciudad_poblacion", a.City)
		w.optElem("colonia", a.Neighborhood)
		w.elem("calle", a.Street)
		w.optElem("numero_exterior", a.ExteriorNumber)
		w.optElem("codigo_postal", a.PostalCode)
		w.close("extranjero")
	default:
		return errors.New(errors.ErrCodeRenderMissingData, "unknown address kind "+string(a.Kind)).
			WithDetail("reference=" + ref)
	}
	w.close("tipo_domicilio")
	return nil
}

func writeOperation(w *writer, op *alert.Operation, ref string) error {
	w.open("detalle_operaciones")
	w.open("datos_operacion")
	w.elem("fecha_operacion", dayDate(op.Date))
	w.elem("codigo_postal", op.PostalCode)
	w.elem("tipo_operacion", op.TypeCode)

	for i := range op.Vehicles {
		if err := writeVehicle(w, &op.Vehicles[i], ref); err != nil {
			return err
		}
	}
	for i := range op.Payments {
		p := &op.Payments[i]
		w.open("datos_liquidacion")
		w.elem("fecha_pago", dayDate(p.Date))
		w.elem("forma_pago", p.FormCode)
		w.optElem("instrumento_monetario", p.InstrumentCode)
		w.elem("moneda", p.CurrencyCode)
		w.elem("monto_operacion", p.Amount)
		w.close("datos_liquidacion")
	}

	w.close("datos_operacion")
	w.close("detalle_operaciones")
	return nil
}

// writeVehicle writes the three-way land/marine/air vehicle branch.  Land
// vehicles carry VIN and plates; marine and air ones carry serial number,
// flag, and registration.
func writeVehicle(w *writer, v *alert.Vehicle, ref string) error {
	w.open("datos_vehiculo")
	switch v.Kind {
	case alert.VehicleLand:
		w.open("datos_vehiculo_terrestre")
		w.elem("marca", v.BrandCode)
		w.optElem("modelo", v.Model)
		w.elem("anio", fmt.Sprintf("%d", v.Year))
		w.elem("vin", v.VIN)
		w.optElem("repuve", v.RepuveCode)
		w.optElem("placas", v.Plates)
		w.close("datos_vehiculo_terrestre")
	case alert.VehicleMarine:
		w.open("datos_vehiculo_maritimo")
		w.elem("marca", v.BrandCode)
		w.optElem("modelo", v.Model)
		w.elem("anio", fmt.Sprintf("%d", v.Year))
		w.elem("numero_serie", v.SerialNumber)
		w.elem("bandera", v.FlagCountry)
		w.elem("matricula", v.Registration)
		w.close("datos_vehiculo_maritimo")
	case alert.VehicleAir:
		w.open("datos_vehiculo_aereo")
		w.elem("marca", v.BrandCode)
		w.optElem("modelo", v.Model)
		w.elem("anio", fmt.Sprintf("%d", v.Year))
		w.elem("numero_serie", v.SerialNumber)
		w.elem("bandera", v.FlagCountry)
		w.elem("matricula", v.Registration)
		w.close("datos_vehiculo_aereo")
	default:
		return errors.New(errors.ErrCodeRenderMissingData, "unknown vehicle kind "+string(v.Kind)).
			WithDetail("reference=" + ref)
	}
	w.close("datos_vehiculo")
	return nil
}

func missingBranch(ref, branch string) error {
	return errors.New(errors.ErrCodeRenderMissingData, "person kind set without matching "+branch+" block").
		WithDetail("reference=" + ref)
}
