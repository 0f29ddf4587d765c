package reporting

import (
	"context"
	"fmt"

	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// defaultAlertTypeCode is the authority's generic suspicious-operation alert
// type.  The rule name travels in the description element.
const defaultAlertTypeCode = "100"

// ObligorConfig identifies the reporting entity in every document header.
type ObligorConfig struct {
	ObligorID    string `mapstructure:"obligor_id"`
	ActivityCode string `mapstructure:"activity_code"`
}

// Assembler turns member alerts into renderable records.  It validates each
// payload and checks every catalog reference before anything is rendered, so
// a generation failure never leaves a half-written document behind.
type Assembler struct {
	obligor  ObligorConfig
	catalogs catalog.Resolver
	rules    rule.Repository
}

// NewAssembler builds an assembler over the catalog resolver and rule
// registry.
func NewAssembler(obligor ObligorConfig, catalogs catalog.Resolver, rules rule.Repository) *Assembler {
	return &Assembler{obligor: obligor, catalogs: catalogs, rules: rules}
}

// Header builds the document header for a period label.
func (as *Assembler) Header(reportedMonth string) Header {
	return Header{
		ReportedMonth: reportedMonth,
		ObligorID:     as.obligor.ObligorID,
		ActivityCode:  as.obligor.ActivityCode,
	}
}

// Assemble validates and converts the alerts, in the order given, into
// records.  Any payload gap surfaces as ErrCodeRenderMissingData and any
// unknown catalog code as ErrCodeCatalogMissingRef, both naming the alert.
func (as *Assembler) Assemble(ctx context.Context, orgID common.OrgID, alerts []*alert.Alert) ([]Record, error) {
	refs := newCodeSet()
	for _, a := range alerts {
		if err := a.Payload.Validate(); err != nil {
			return nil, wrapAlert(err, a.ID)
		}
		refs.collect(&a.Payload)
	}
	if err := refs.verify(ctx, as.catalogs); err != nil {
		return nil, err
	}

	names, err := as.ruleNames(ctx, orgID, alerts)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(alerts))
	for _, a := range alerts {
		records = append(records, Record{
			Reference:        string(a.ID),
			Priority:         PriorityForSeverity(a.Severity),
			AlertTypeCode:    defaultAlertTypeCode,
			AlertDescription: names[a.RuleID],
			Person:           a.Payload.Person,
			BeneficialOwner:  a.Payload.BeneficialOwner,
			Operation:        a.Payload.Operation,
		})
	}
	return records, nil
}

// ruleNames loads the name of every distinct rule referenced by the alerts.
// A missing rule row is tolerated; the description element is optional.
func (as *Assembler) ruleNames(ctx context.Context, orgID common.OrgID, alerts []*alert.Alert) (map[common.ID]string, error) {
	names := make(map[common.ID]string)
	for _, a := range alerts {
		if _, seen := names[a.RuleID]; seen {
			continue
		}
		r, err := as.rules.FindByID(ctx, orgID, a.RuleID)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeRuleNotFound) {
				names[a.RuleID] = ""
				continue
			}
			return nil, err
		}
		names[a.RuleID] = r.Name
	}
	return names, nil
}

// codeSet accumulates the distinct catalog codes a batch of payloads
// references, per catalog.
type codeSet struct {
	byCatalog map[catalog.Key]map[string]struct{}
}

func newCodeSet() *codeSet {
	return &codeSet{byCatalog: make(map[catalog.Key]map[string]struct{})}
}

func (cs *codeSet) add(key catalog.Key, code string) {
	if code == "" {
		return
	}
	set, ok := cs.byCatalog[key]
	if !ok {
		set = make(map[string]struct{})
		cs.byCatalog[key] = set
	}
	set[code] = struct{}{}
}

func (cs *codeSet) collect(p *alert.Payload) {
	cs.collectPerson(p.Person)
	cs.collectPerson(p.BeneficialOwner)
	if p.Operation == nil {
		return
	}
	cs.add(catalog.KeyOperationType, p.Operation.TypeCode)
	for i := range p.Operation.Vehicles {
		v := &p.Operation.Vehicles[i]
		cs.add(catalog.KeyVehicleBrand, v.BrandCode)
		cs.add(catalog.KeyCountry, v.FlagCountry)
	}
	for i := range p.Operation.Payments {
		pay := &p.Operation.Payments[i]
		cs.add(catalog.KeyPaymentForm, pay.FormCode)
		cs.add(catalog.KeyPaymentInstrument, pay.InstrumentCode)
		cs.add(catalog.KeyCurrency, pay.CurrencyCode)
	}
}

func (cs *codeSet) collectPerson(p *alert.Person) {
	if p == nil {
		return
	}
	if p.Individual != nil {
		cs.add(catalog.KeyCountry, p.Individual.CountryCode)
	}
	if p.Address != nil && p.Address.Kind == alert.AddressForeign {
		cs.add(catalog.KeyCountry, p.Address.CountryCode)
	}
}

// verify resolves every collected code and fails on the first catalog miss.
func (cs *codeSet) verify(ctx context.Context, resolver catalog.Resolver) error {
	for key, set := range cs.byCatalog {
		codes := make([]string, 0, len(set))
		for code := range set {
			codes = append(codes, code)
		}
		resolved, err := resolver.ResolveByCode(ctx, key, codes)
		if err != nil {
			return err
		}
		for _, code := range codes {
			if _, ok := resolved[code]; !ok {
				return errors.New(errors.ErrCodeCatalogMissingRef,
					fmt.Sprintf("code %q not found in catalog %s", code, key))
			}
		}
	}
	return nil
}

func wrapAlert(err error, id common.ID) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.WithDetail("alert=" + string(id))
	}
	return err
}
