// internal/testutil/fixtures.go
package testutil

import (
	"encoding/json"
)

// Fixture data para tests. Solo rangos y dominios de documentación (RFC 5737, 3849, 2606).

// FixtureSenders contiene IPs de envío de prueba.
var FixtureSenders = []string{
	"203.0.113.5",
	"198.51.100.7",
	"2001:db8::25",
}

// FixtureInvalidSenders contiene literales que no son IPs.
var FixtureInvalidSenders = []string{
	"",
	"203.0.113",
	"not-an-ip",
	"203.0.113.256",
}

// FixtureURLs contiene URLs semilla de prueba.
var FixtureURLs = []string{
	"http://a.example/x",
	"https://login.example.com/verify",
	"http://b.example/y",
}

// FixtureRecordJSON es un record de entrada con formas de string y de objeto.
const FixtureRecordJSON = `{
  "senders": ["203.0.113.5", {"ip": "198.51.100.7", "header": "Received[2]"}],
  "urls": ["http://a.example/x", {"url": "https://c.example/login", "position": "body:3"}]
}`

// FixtureRecordYAML es el mismo record en YAML.
const FixtureRecordYAML = `senders:
  - 203.0.113.5
  - ip: 198.51.100.7
    header: Received[2]
urls:
  - http://a.example/x
  - url: https://c.example/login
    position: body:3
`

// BootstrapService es una entrada del documento de bootstrap de IANA:
// un grupo de rangos servidos por las mismas URLs.
type BootstrapService struct {
	Ranges []string
	URLs   []string
}

// BootstrapJSON construye un documento con la forma de dns.json / ipv4.json / ipv6.json.
func BootstrapJSON(services ...BootstrapService) []byte {
	doc := map[string]any{
		"description": "RDAP bootstrap file for tests",
		"publication": "2024-01-01T00:00:00Z",
		"version":     "1.0",
	}
	list := make([][][]string, 0, len(services))
	for _, s := range services {
		list = append(list, [][]string{s.Ranges, s.URLs})
	}
	doc["services"] = list

	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}
