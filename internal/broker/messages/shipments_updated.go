package messages

import (
	"time"

	"github.com/BearBump/PostiBox/internal/models"
)

// ShipmentsUpdated carries the full aggregated result of one poll cycle
// for one account. Consumers apply it as a whole snapshot.
type ShipmentsUpdated struct {
	Account   string    `json:"account"`
	FetchedAt time.Time `json:"fetched_at"`

	Freshness        *string          `json:"freshness,omitempty"`
	Packages         []models.Package `json:"packages"`
	UndeliveredCount int              `json:"undelivered_count"`
	DeliveredCount   int              `json:"delivered_count"`

	Error *string `json:"error,omitempty"`
}
