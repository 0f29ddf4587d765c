package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigiamx/satavisos/pkg/errors"
)

func completePayload() Payload {
	return Payload{
		Person: &Person{
			Kind: PersonIndividual,
			Individual: &Individual{
				FirstName:       "Ana",
				PaternalSurname: "Torres",
			},
			Address: &Address{
				Kind:       AddressDomestic,
				Street:     "Reforma",
				PostalCode: "06600",
			},
		},
		Operation: &Operation{
			Date:     time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
			TypeCode: "501",
			Vehicles: []Vehicle{{
				Kind:      VehicleLand,
				BrandCode: "042",
				Year:      2021,
				VIN:       "VIN123",
			}},
			Payments: []Payment{{
				Date:         time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
				FormCode:     "1",
				CurrencyCode: "MXN",
				Amount:       "120000.50",
			}},
		},
	}
}

func requireMissingData(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderMissingData))
}

func TestValidateCompletePayload(t *testing.T) {
	p := completePayload()
	require.NoError(t, p.Validate())
}

func TestValidateMissingBlocks(t *testing.T) {
	p := completePayload()
	p.Person = nil
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Operation = nil
	requireMissingData(t, p.Validate())
}

func TestValidatePersonShapes(t *testing.T) {
	p := completePayload()
	p.Person.Individual.FirstName = ""
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Person = &Person{Kind: PersonLegalEntity, Address: p.Person.Address}
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Person = &Person{
		Kind:        PersonLegalEntity,
		LegalEntity: &LegalEntity{BusinessName: "Autos SA"},
		Address:     completePayload().Person.Address,
	}
	require.NoError(t, p.Validate())

	p = completePayload()
	p.Person.Kind = PersonKind("sindicato")
	requireMissingData(t, p.Validate())
}

func TestValidateAddressRules(t *testing.T) {
	p := completePayload()
	p.Person.Address = nil
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Person.Address = &Address{Kind: AddressForeign, CountryCode: "US"}
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Person.Address = &Address{Kind: AddressForeign, CountryCode: "US", City: "Austin"}
	require.NoError(t, p.Validate())
}

func TestValidateBeneficialOwnerNeedsNoAddress(t *testing.T) {
	p := completePayload()
	p.BeneficialOwner = &Person{
		Kind:  PersonTrust,
		Trust: &Trust{TrustName: "F/99"},
	}
	require.NoError(t, p.Validate())

	p.BeneficialOwner.Trust = nil
	requireMissingData(t, p.Validate())
}

func TestValidateVehicles(t *testing.T) {
	p := completePayload()
	p.Operation.Vehicles = nil
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Operation.Vehicles[0].VIN = ""
	requireMissingData(t, p.Validate())

	p = completePayload()
	p.Operation.Vehicles[0] = Vehicle{Kind: VehicleMarine, BrandCode: "900", Year: 2019, SerialNumber: "H-1"}
	require.NoError(t, p.Validate())

	p.Operation.Vehicles[0].SerialNumber = ""
	requireMissingData(t, p.Validate())
}

func TestValidatePaymentAmounts(t *testing.T) {
	valid := []string{"0", "100", "100.5", "100.55"}
	for _, amount := range valid {
		p := completePayload()
		p.Operation.Payments[0].Amount = amount
		assert.NoError(t, p.Validate(), "amount %q", amount)
	}

	invalid := []string{"", "100.555", "-5", "1,000", "1e3", "$100"}
	for _, amount := range invalid {
		p := completePayload()
		p.Operation.Payments[0].Amount = amount
		requireMissingData(t, p.Validate())
	}
}
