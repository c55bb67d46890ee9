package posti

// Production endpoints and the identity Posti's login flow expects.
// The User-Agent matters: the identity provider rejects unknown agents.
const (
	DefaultAuthServiceBaseURL = "https://auth-service.posti.fi/api/v1"
	DefaultUASBaseURL         = "https://todentaminen.posti.fi/uas"
	DefaultGraphAPIURL        = "https://oma.posti.fi/graphql/v2"

	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.5249.62 Safari/537.36"
	redirectURI = "https://oma.posti.fi/fi"
	locale      = "fi"
	entityID    = "5b05bc63-9195-4687-9ac0-df872a6f936e"
	authMethod  = "posti.ldapcustomeragent.1"
)

// QueryGetShipments is the one query document this client sends: the full
// shipment listing with parties, events and phase. No variables.
const QueryGetShipments = `
{
  "operationName": "GetShipments",
  "variables": {},
  "query": "query GetShipments {\n  shipment {\n    ...ShipmentFields\n  }\n}\n\nfragment ShipmentFields on shipment {\n  shipmentNumber\n  parties {\n    name\n    role\n  }\n  departure {\n    city\n  }\n  destination {\n    city\n  }\n  trackingNumbers\n  events {\n    eventDescription {\n      lang\n      value\n    }\n    eventLocation {\n      city\n      country\n    }\n    timestamp\n  }\n  shipmentPhase\n  savedDateTime\n}\n"
}
`
