// internal/adapters/output/fixtures_test.go
package output

import (
	"time"

	"phishtrace/internal/core/domain"
)

// sampleRecord es un run terminado: una cadena de dos saltos y tres claves.
func sampleRecord() *domain.OutputRecord {
	rec := domain.NewOutputRecord([]string{"203.0.113.5"}, []string{"http://a.example/x"})
	rec.RunID = "run-0001"
	rec.StartedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec.FinishedAt = rec.StartedAt.Add(1500 * time.Millisecond)

	chain := domain.NewChain(rec.Seeds[0])
	_ = chain.Advance()
	chain.Append(&domain.FulfillmentNode{
		URL: "http://a.example/x", Host: "a.example", Status: domain.NodeRedirect, Requested: true,
		StatusCode: 302, Location: "http://b.example/y", Via: domain.ViaLocation, RemoteAddr: "192.0.2.10:80",
	})
	chain.Append(&domain.FulfillmentNode{
		URL: "http://b.example/y", Host: "b.example", Status: domain.NodeFinalPage, Requested: true,
		StatusCode: 200, Page: &domain.PageMeta{ContentType: "text/html", Title: "Verify"}, RemoteAddr: "192.0.2.11:80",
	})
	_ = chain.Terminate(domain.ChainFinalPage, nil)
	rec.Chains = []*domain.Chain{chain}

	rec.Attribution = map[string]*domain.AttributionRecord{
		"203.0.113.5": {
			Key: "203.0.113.5", Type: domain.KeyIP, Registry: "https://registry-a.test/", QueriedAs: "203.0.113.5",
			Registration: &domain.Registration{Organization: "Documentation Hosting", AbuseEmail: "abuse@registry-a.test"},
		},
		"a.example": {
			Key: "a.example", Type: domain.KeyDomain, Registry: "https://registry-b.test/", QueriedAs: "a.example",
			Registration: &domain.Registration{Registrar: "Example Registrar"}, Cached: true,
		},
		"b.example": {
			Key: "b.example", Type: domain.KeyDomain, Registry: "https://registry-b.test/",
			Failure: domain.FailureOf(domain.KindTimeout, "lookup did not complete"),
		},
	}
	rec.AddWarning("run deadline of %s expired", "2m0s")
	return &rec
}
