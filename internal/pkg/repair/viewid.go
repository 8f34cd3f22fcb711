package repair

import (
	"fmt"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
)

// ComputeViewID derives the optimistic-concurrency fingerprint for a bundle:
// the highest ordered event id across every subscription in the bundle,
// concatenated with the bundle's last system update timestamp. Any committed
// mutation moves at least one of the two parts.
func ComputeViewID(lastSysUpdate time.Time, eventSets ...[]models.SubscriptionEvent) string {
	var lastOrdered int64 = -1
	for _, events := range eventSets {
		for _, ev := range events {
			if int64(ev.ID) > lastOrdered {
				lastOrdered = int64(ev.ID)
			}
		}
	}
	return fmt.Sprintf("%d-%d", lastOrdered, lastSysUpdate.UnixMilli())
}
