package shipments

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BearBump/PostiBox/internal/models"
)

// MalformedDataError means a shipment record lacks required structure
// (empty event list, unparsable event timestamp). One malformed record
// aborts the whole aggregation; the caller decides whether to keep showing
// its previous result.
type MalformedDataError struct {
	ShipmentNumber string
	Reason         string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed shipment %s: %s", e.ShipmentNumber, e.Reason)
}

// Policy holds the per-account display parameters for one aggregation run.
// Now is injectable for tests; nil means time.Now.
type Policy struct {
	Language              string
	PrioritizeUndelivered bool
	MaxShipments          int
	StaleDayLimit         int
	CompletedDaysShown    int
	Now                   func() time.Time
}

// Event timestamps arrive as fixed-width ISO-8601 with a trailing UTC
// marker; ages are computed against naive local time, matching how the
// display has always behaved.
const (
	eventTimeLayout         = "2006-01-02T15:04:05"
	eventTimeLayoutFraction = "2006-01-02T15:04:05.999999999"
)

// Aggregate classifies, filters, sorts and truncates a batch of raw
// shipments into the bounded display list. The second result is the
// freshness timestamp: the lexicographically greatest savedDateTime across
// every input shipment, including ones the filters drop; nil when the
// input is empty.
func Aggregate(raws []models.RawShipment, p Policy) ([]models.Package, *string, error) {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	var freshness *string
	var undelivered, delivered []models.Package

	for _, raw := range raws {
		if freshness == nil || raw.SavedDateTime > *freshness {
			saved := raw.SavedDateTime
			freshness = &saved
		}

		if len(raw.Events) == 0 {
			return nil, nil, &MalformedDataError{ShipmentNumber: raw.ShipmentNumber, Reason: "no events"}
		}
		latest := raw.Events[len(raw.Events)-1]

		eventTime, err := parseEventTime(latest.Timestamp)
		if err != nil {
			return nil, nil, &MalformedDataError{ShipmentNumber: raw.ShipmentNumber, Reason: err.Error()}
		}
		ageDays := int(math.Floor(now.Sub(eventTime).Hours() / 24))

		status := Classify(raw.ShipmentPhase)
		switch {
		case status != models.StatusDelivered && ageDays <= p.StaleDayLimit:
			undelivered = append(undelivered, Project(raw, status, latest, p.Language))
		case status == models.StatusDelivered && ageDays <= p.CompletedDaysShown:
			delivered = append(delivered, Project(raw, status, latest, p.Language))
		}
		// Everything else is intentionally dropped: stale undelivered
		// shipments and delivered ones past their display window.
	}

	sortByLatestEventDesc(undelivered)
	sortByLatestEventDesc(delivered)

	packages := make([]models.Package, 0, len(undelivered)+len(delivered))
	packages = append(packages, undelivered...)
	packages = append(packages, delivered...)

	if !p.PrioritizeUndelivered {
		sortByLatestEventDesc(packages)
	}

	if p.MaxShipments > 0 && len(packages) > p.MaxShipments {
		packages = packages[:p.MaxShipments]
	}
	return packages, freshness, nil
}

func sortByLatestEventDesc(pkgs []models.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].LatestEventDate > pkgs[j].LatestEventDate
	})
}

func parseEventTime(ts string) (time.Time, error) {
	s := strings.TrimSuffix(ts, "Z")
	t, err := time.ParseInLocation(eventTimeLayout, s, time.Local)
	if err == nil {
		return t, nil
	}
	t, err = time.ParseInLocation(eventTimeLayoutFraction, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad event timestamp %q", ts)
	}
	return t, nil
}
