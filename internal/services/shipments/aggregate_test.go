package shipments

import (
	"fmt"
	"testing"
	"time"

	"github.com/BearBump/PostiBox/internal/models"
	"github.com/stretchr/testify/require"
)

var aggregateNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)

func testPolicy() Policy {
	return Policy{
		Language:              "en",
		PrioritizeUndelivered: true,
		MaxShipments:          5,
		StaleDayLimit:         15,
		CompletedDaysShown:    3,
		Now:                   func() time.Time { return aggregateNow },
	}
}

func shipmentAged(number, phase string, eventTime, saved string) models.RawShipment {
	return models.RawShipment{
		ShipmentNumber:  number,
		TrackingNumbers: []string{number},
		Departure:       models.Location{City: "Helsinki"},
		Destination:     models.Location{City: "Tampere"},
		Events: []models.ShipmentEvent{
			{
				Descriptions: []models.EventDescription{{Lang: "en", Value: "event"}},
				Location:     models.Location{City: "Tampere", Country: "FI"},
				Timestamp:    eventTime,
			},
		},
		ShipmentPhase: phase,
		SavedDateTime: saved,
	}
}

func daysAgo(days int) string {
	return aggregateNow.AddDate(0, 0, -days).Format("2006-01-02T15:04:05") + "Z"
}

func TestAggregate_EmptyInput(t *testing.T) {
	pkgs, freshness, err := Aggregate(nil, testPolicy())
	require.NoError(t, err)
	require.Empty(t, pkgs)
	require.Nil(t, freshness)
}

func TestAggregate_InTransportWithinStaleLimit(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("A", "IN_TRANSPORT", daysAgo(2), "2026-08-25T10:00:00Z"),
	}
	pkgs, freshness, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.Equal(t, models.StatusInTransport, pkgs[0].Status)
	require.NotNil(t, freshness)
	require.Equal(t, "2026-08-25T10:00:00Z", *freshness)
}

func TestAggregate_StaleUndeliveredDropped(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("FRESH", "IN_TRANSPORT", daysAgo(15), "s1"),
		shipmentAged("STALE", "IN_TRANSPORT", daysAgo(16), "s2"),
	}
	pkgs, _, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	// The stale one disappears entirely; it is not demoted to delivered.
	require.Len(t, pkgs, 1)
	require.Equal(t, "FRESH", pkgs[0].ShipmentNumber)
}

func TestAggregate_DeliveredWindow(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("SHOWN", "DELIVERED", daysAgo(3), "s1"),
		shipmentAged("EXPIRED", "DELIVERED", daysAgo(4), "s2"),
	}
	pkgs, _, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.Equal(t, "SHOWN", pkgs[0].ShipmentNumber)
	require.Equal(t, models.StatusDelivered, pkgs[0].Status)
}

func TestAggregate_PrioritizeUndelivered(t *testing.T) {
	// The delivered shipment has the most recent event, yet undelivered
	// entries still come first.
	raws := []models.RawShipment{
		shipmentAged("DONE", "DELIVERED", daysAgo(0), "s1"),
		shipmentAged("MOVING", "IN_TRANSPORT", daysAgo(2), "s2"),
		shipmentAged("PICKUP", "READY_FOR_PICKUP", daysAgo(1), "s3"),
	}
	pkgs, _, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	require.Equal(t, "PICKUP", pkgs[0].ShipmentNumber)
	require.Equal(t, "MOVING", pkgs[1].ShipmentNumber)
	require.Equal(t, "DONE", pkgs[2].ShipmentNumber)
}

func TestAggregate_ChronologicalWhenNotPrioritized(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("DONE", "DELIVERED", daysAgo(0), "s1"),
		shipmentAged("MOVING", "IN_TRANSPORT", daysAgo(2), "s2"),
		shipmentAged("PICKUP", "READY_FOR_PICKUP", daysAgo(1), "s3"),
	}
	p := testPolicy()
	p.PrioritizeUndelivered = false
	pkgs, _, err := Aggregate(raws, p)
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	require.Equal(t, "DONE", pkgs[0].ShipmentNumber)
	require.Equal(t, "PICKUP", pkgs[1].ShipmentNumber)
	require.Equal(t, "MOVING", pkgs[2].ShipmentNumber)
}

func TestAggregate_TruncatesToMaxShipments(t *testing.T) {
	var raws []models.RawShipment
	for i := 0; i < 8; i++ {
		raws = append(raws, shipmentAged(fmt.Sprintf("N%d", i), "IN_TRANSPORT", daysAgo(i), "s"))
	}
	p := testPolicy()
	p.MaxShipments = 3
	pkgs, _, err := Aggregate(raws, p)
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	// Truncation keeps the most recent entries.
	require.Equal(t, "N0", pkgs[0].ShipmentNumber)
	require.Equal(t, "N1", pkgs[1].ShipmentNumber)
	require.Equal(t, "N2", pkgs[2].ShipmentNumber)
}

func TestAggregate_FreshnessIncludesFilteredShipments(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("KEPT", "IN_TRANSPORT", daysAgo(1), "2026-08-20T00:00:00Z"),
		// Dropped by the stale limit, but its savedDateTime is the greatest.
		shipmentAged("DROPPED", "IN_TRANSPORT", daysAgo(30), "2026-08-27T09:30:00Z"),
	}
	pkgs, freshness, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.NotNil(t, freshness)
	require.Equal(t, "2026-08-27T09:30:00Z", *freshness)
}

func TestAggregate_SortsBucketsByLatestEventDesc(t *testing.T) {
	raws := []models.RawShipment{
		shipmentAged("OLD", "IN_TRANSPORT", daysAgo(5), "s"),
		shipmentAged("NEW", "IN_TRANSPORT", daysAgo(1), "s"),
		shipmentAged("MID", "IN_TRANSPORT", daysAgo(3), "s"),
	}
	pkgs, _, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Equal(t, "NEW", pkgs[0].ShipmentNumber)
	require.Equal(t, "MID", pkgs[1].ShipmentNumber)
	require.Equal(t, "OLD", pkgs[2].ShipmentNumber)
}

func TestAggregate_EmptyEventsIsMalformed(t *testing.T) {
	raw := shipmentAged("A", "IN_TRANSPORT", daysAgo(1), "s")
	raw.Events = nil
	_, _, err := Aggregate([]models.RawShipment{raw}, testPolicy())
	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "A", malformed.ShipmentNumber)
}

func TestAggregate_BadTimestampIsMalformed(t *testing.T) {
	raw := shipmentAged("A", "IN_TRANSPORT", "yesterday", "s")
	_, _, err := Aggregate([]models.RawShipment{raw}, testPolicy())
	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
}

func TestAggregate_FutureEventIncluded(t *testing.T) {
	// A clock-skewed event in the future has a negative age and passes the
	// stale check.
	raws := []models.RawShipment{
		shipmentAged("FUTURE", "IN_TRANSPORT", daysAgo(-1), "s"),
	}
	pkgs, _, err := Aggregate(raws, testPolicy())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
}
