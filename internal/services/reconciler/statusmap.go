package reconciler

import "github.com/BearBump/ShipBridge/internal/models"

// phases lists the Shiprocket status codes folded into each internal
// delivery phase. Lookup walks the slice in order and stops at the first hit.
var phases = []struct {
	phase string
	codes []int
}{
	{models.DeliveryConfirmed, []int{1, 2, 3, 4, 5, 11, 27, 52}},
	{models.DeliveryPickedUp, []int{19, 42, 15, 20, 13}},
	{models.DeliveryOnTheWay, []int{6, 17, 18, 21, 22, 38, 39, 48, 49, 50, 51, 54, 55, 56, 57, 59, 68, 71, 72}},
	{models.DeliveryDelivered, []int{7, 23, 26, 43}},
	{models.DeliveryCancelled, []int{8, 16, 9, 14, 10, 40, 41, 46, 45, 12, 24, 25, 44, 47, 75, 76, 77, 78}},
}

// PhaseFor returns the delivery phase for a status code; ok is false for
// unmapped codes.
func PhaseFor(code int) (string, bool) {
	for _, p := range phases {
		for _, c := range p.codes {
			if c == code {
				return p.phase, true
			}
		}
	}
	return "", false
}

// PaidOnDelivery reports the codes that imply cash was collected.
func PaidOnDelivery(code int) bool {
	return code == 7 || code == 23
}
