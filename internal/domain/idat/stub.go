package idat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// StubClientName is the registry name of the demo client.
const StubClientName = "stub"

// StubClient serves a fixed set of demo subjects keyed by EHR id "0".."14".
type StubClient struct {
	logger   zerolog.Logger
	patients map[string]*Idat
}

func NewStubClient(logger zerolog.Logger) *StubClient {
	return &StubClient{logger: logger, patients: demoPatients()}
}

func (c *StubClient) FetchIdat(ctx context.Context, ehrID string) (*Idat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := c.patients[ehrID]
	if !ok {
		return nil, fmt.Errorf("%w: ehr id %s", ErrIdatNotFound, ehrID)
	}
	c.logger.Debug().Str("ehr_id", ehrID).Msg("returning demo IDAT")
	copied := *p
	return &copied, nil
}

func demoPatients() map[string]*Idat {
	rows := [][]string{
		{"Bodomar", "Backer", "12.03.1910", "M", "Mühlenbergstraße 121", "25840", "Friedrichstadt an der Eider", "DE", "A068266155"},
		{"Ehrenreich", "Knott", "18.07.1996", "M", "Auf der Holl 11", "25557", "Oldenbüttel", "DE", "A043847459"},
		{"Dagomar", "Schewe", "06.06.1906", "M", "In der Buchwiese 157", "74226", "Nordheim", "DE", "A004177703"},
		{"Golo", "Spanier", "13.02.1979", "M", "Burgstraße 181", "67157", "Wachenheim an der Weinstraße", "DE", "A080265441"},
		{"Heide", "Bäder", "10.10.1905", "F", "Alte Turmstraße 29", "57399", "Kirchhundem", "DE", "A023205020"},
		{"Juri", "Kober", "14.03.1908", "M", "Seilbahnweg 147", "38518", "Gifhorn", "DE", "A078179335"},
		{"Peggy", "Lorz", "18.09.1943", "F", "Regensburger Straße 193", "88433", "Schemmerhofen", "DE", "A083154051"},
		{"Ruppert", "Nopper", "12.05.1985", "M", "An den Hülsen 180", "23911", "Buchholz", "DE", "A001511377"},
		{"Sissy", "Diener", "04.09.1985", "F", "Markenweg 130", "46149", "Oberhausen", "DE", "A064297871"},
		{"Chantalle", "Hacke", "08.03.1979", "F", "Gaterstraße 56", "60323", "Frankfurt am Main", "DE", "A078625203"},
		{"Alissa", "Nadler", "04.11.1904", "F", "Roxeler Straße 74", "34439", "Willebadessen", "DE", "A099794475"},
		{"Emmeran", "Engel", "16.03.1977", "M", "Lange Hecke 189", "85435", "Erding", "DE", "A037040696"},
		{"Reimund", "Owens", "20.07.1902", "M", "Glück-Auf-Straße 57", "96135", "Stegaurach", "DE", "A035007141"},
		{"Rolf", "Storm", "22.03.1970", "M", "Papenburger Straße 123", "88416", "Steinhausen an der Rottum", "DE", "A023693897"},
		{"Alice", "Klingelhöfer", "01.04.1988", "F", "Wichernstraße 34", "25926", "Karlum", "DE", "A029733037"},
	}

	out := make(map[string]*Idat, len(rows))
	for i, r := range rows {
		id := fmt.Sprintf("%d", i)
		out[id] = &Idat{
			MedicID:         "medicId-" + id,
			FirstName:       r[0],
			LastName:        r[1],
			Birthday:        r[2],
			Sex:             r[3],
			Street:          r[4],
			ZipCode:         r[5],
			City:            r[6],
			Country:         r[7],
			InsuranceNumber: r[8],
		}
	}
	return out
}
