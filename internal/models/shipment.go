package models

import "time"

// Normalized shipment statuses. 0 is the only terminal value; everything
// else counts as "in progress" for bucketing.
const (
	StatusDelivered        = 0
	StatusWaiting          = 1
	StatusReceived         = 2
	StatusInTransport      = 3
	StatusInDelivery       = 4
	StatusReadyForPickup   = 5
	StatusReturnedToSender = 6
	StatusUnknown          = 7
)

// Party roles as Posti reports them.
const (
	RoleConsignor = "CONSIGNOR"
	RoleConsignee = "CONSIGNEE"
	RoleDelivery  = "DELIVERY"
)

// RawShipment is one shipment record as returned by the Posti GraphQL API.
// The shape is owned by Posti; we only decode the fields the pipeline needs.
type RawShipment struct {
	ShipmentNumber  string          `json:"shipmentNumber"`
	Parties         []Party         `json:"parties"`
	Departure       Location        `json:"departure"`
	Destination     Location        `json:"destination"`
	TrackingNumbers []string        `json:"trackingNumbers"`
	Events          []ShipmentEvent `json:"events"`
	ShipmentPhase   string          `json:"shipmentPhase"`
	SavedDateTime   string          `json:"savedDateTime"`
}

// Party name is a list upstream; display joins the parts with ", ".
type Party struct {
	Name []string `json:"name"`
	Role string   `json:"role"`
}

type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type ShipmentEvent struct {
	Descriptions []EventDescription `json:"eventDescription"`
	Location     Location           `json:"eventLocation"`
	Timestamp    string             `json:"timestamp"`
}

type EventDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Package is the normalized display record produced from one RawShipment.
type Package struct {
	Origin             *string `json:"origin"`
	OriginCity         string  `json:"origin_city"`
	Destination        *string `json:"destination"`
	DestinationCity    string  `json:"destination_city"`
	ShipmentNumber     string  `json:"shipment_number"`
	ShipmentDate       string  `json:"shipment_date"`
	Status             int     `json:"status"`
	RawStatus          string  `json:"raw_status"`
	LatestEvent        *string `json:"latest_event"`
	LatestEventCity    string  `json:"latest_event_city"`
	LatestEventCountry string  `json:"latest_event_country"`
	LatestEventDate    string  `json:"latest_event_date"`
	Source             string  `json:"source"`
}

// HistoryEntry is one observed shipment state, kept for auditing.
type HistoryEntry struct {
	ID                 uint64    `json:"id"`
	Account            string    `json:"account"`
	ShipmentNumber     string    `json:"shipment_number"`
	Status             int       `json:"status"`
	StatusRaw          string    `json:"status_raw"`
	LatestEvent        string    `json:"latest_event"`
	LatestEventCity    string    `json:"latest_event_city"`
	LatestEventCountry string    `json:"latest_event_country"`
	LatestEventDate    string    `json:"latest_event_date"`
	CreatedAt          time.Time `json:"created_at"`
}

// Snapshot is the persisted result of one poll cycle for one account.
type Snapshot struct {
	Account          string    `json:"account"`
	Freshness        *string   `json:"freshness"`
	Packages         []Package `json:"packages"`
	UndeliveredCount int       `json:"undelivered_count"`
	DeliveredCount   int       `json:"delivered_count"`
	FetchedAt        time.Time `json:"fetched_at"`
}
