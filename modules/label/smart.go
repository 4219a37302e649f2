package label

import (
	"fmt"
	"strconv"

	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/types"
)

// Origin is where the item's herbs were harvested.
type Origin struct {
	Collector   string            `json:"collector"`
	HerbName    string            `json:"herbName"`
	Location    types.GeoLocation `json:"location"`
	Coordinates string            `json:"coordinates"`
	MapURL      string            `json:"mapUrl"`
}

type TimelineEntry struct {
	BlockID string `json:"blockId"`
	Kind    string `json:"kind"`
	Date    string `json:"date"`
}

// SmartLabel is the consumer-facing view of one item.
type SmartLabel struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	IsProduct bool            `json:"isProduct"`
	Verified  bool            `json:"verified"`
	Origin    *Origin         `json:"origin,omitempty"`
	Timeline  []TimelineEntry `json:"timeline"`
}

func MapURL(loc types.GeoLocation) string {
	lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(loc.Lon, 'f', -1, 64)
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=15/%s/%s", lat, lon, lat, lon)
}

// Build assembles a label from an item and its trace, which must already be
// sorted by timestamp. The origin is the earliest collection in the trace.
func Build(item state.Item, trace []types.Block, verified bool) *SmartLabel {
	l := &SmartLabel{
		ItemID:    item.ItemID(),
		Name:      item.ItemName(),
		IsProduct: item.IsProduct(),
		Verified:  verified,
		Timeline:  []TimelineEntry{},
	}
	for _, b := range trace {
		if b.IsGenesis() {
			continue
		}
		if c, ok := b.Transaction.Collection(); ok && l.Origin == nil {
			l.Origin = &Origin{
				Collector:   c.Collector,
				HerbName:    c.HerbName,
				Location:    c.Location,
				Coordinates: fmt.Sprintf("%.5f, %.5f", c.Location.Lat, c.Location.Lon),
				MapURL:      MapURL(c.Location),
			}
		}
		l.Timeline = append(l.Timeline, TimelineEntry{
			BlockID: b.ID,
			Kind:    b.Kind().String(),
			Date:    b.Time().UTC().Format("2006-01-02"),
		})
	}
	return l
}
