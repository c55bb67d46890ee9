package shipments

import "github.com/BearBump/PostiBox/internal/models"

// Classify maps a raw Posti shipment phase to a normalized status.
// Unrecognized phases map to StatusUnknown.
func Classify(rawPhase string) int {
	switch rawPhase {
	case "DELIVERED":
		return models.StatusDelivered
	case "WAITING":
		return models.StatusWaiting
	case "RECEIVED":
		return models.StatusReceived
	case "IN_TRANSPORT":
		return models.StatusInTransport
	case "IN_DELIVERY":
		return models.StatusInDelivery
	case "READY_FOR_PICKUP":
		return models.StatusReadyForPickup
	case "RETURNED_TO_SENDER":
		return models.StatusReturnedToSender
	default:
		return models.StatusUnknown
	}
}
