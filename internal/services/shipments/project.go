package shipments

import (
	"strings"

	"github.com/BearBump/PostiBox/internal/models"
)

const sourceTag = "Posti"

// Project builds the normalized display record for one raw shipment.
// Destination resolution order is fixed: DELIVERY wins over CONSIGNEE;
// origin always comes from CONSIGNOR. The latest-event description is the
// first entry matching the requested language, with no fallback language.
func Project(raw models.RawShipment, status int, latest models.ShipmentEvent, language string) models.Package {
	destination := partyName(raw.Parties, models.RoleDelivery)
	if destination == nil {
		destination = partyName(raw.Parties, models.RoleConsignee)
	}

	return models.Package{
		Origin:             partyName(raw.Parties, models.RoleConsignor),
		OriginCity:         raw.Departure.City,
		Destination:        destination,
		DestinationCity:    raw.Destination.City,
		ShipmentNumber:     displayNumber(raw),
		ShipmentDate:       raw.SavedDateTime,
		Status:             status,
		RawStatus:          raw.ShipmentPhase,
		LatestEvent:        localizedDescription(latest, language),
		LatestEventCity:    latest.Location.City,
		LatestEventCountry: latest.Location.Country,
		LatestEventDate:    latest.Timestamp,
		Source:             sourceTag,
	}
}

func partyName(parties []models.Party, role string) *string {
	for _, p := range parties {
		if p.Role == role {
			name := strings.Join(p.Name, ", ")
			return &name
		}
	}
	return nil
}

func displayNumber(raw models.RawShipment) string {
	if len(raw.TrackingNumbers) > 0 {
		return raw.TrackingNumbers[0]
	}
	return raw.ShipmentNumber
}

func localizedDescription(ev models.ShipmentEvent, language string) *string {
	for _, d := range ev.Descriptions {
		if d.Lang == language {
			v := d.Value
			return &v
		}
	}
	return nil
}
