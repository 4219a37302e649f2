// Package txfactory validates raw caller input and shapes it into
// transactions ready for the chain. It never touches the chain itself.
package txfactory

import (
	"math"
	"strings"
	"time"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/params"
)

// CollectionInput is the raw form of a herb collection. A nil Location means
// the position could not be resolved.
type CollectionInput struct {
	HerbName  string             `json:"herbName"`
	Quantity  float64            `json:"quantity"`
	Collector string             `json:"collector"`
	Location  *types.GeoLocation `json:"location"`
}

type ProcessingInput struct {
	BatchID        string  `json:"batchId"`
	Processor      string  `json:"processor"`
	ProcessType    string  `json:"processType"`
	OutputQuantity float64 `json:"outputQuantity"`
}

type FormulationInput struct {
	ProductName   string   `json:"productName"`
	Manufacturer  string   `json:"manufacturer"`
	InputBatchIDs []string `json:"inputBatchIds"`
}

type Factory struct {
	now func() time.Time
}

// New returns a factory stamping dates from now; nil means time.Now.
func New(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

func (f *Factory) stamp() string {
	return f.now().UTC().Format(params.DateLayout)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func requireText(c *collector, field, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		c.add(field, "required")
	}
	return v
}

func requirePositive(c *collector, field string, v float64) {
	switch {
	case !finite(v):
		c.add(field, "must be a finite number")
	case v <= 0:
		c.add(field, "must be greater than 0")
	}
}

// Collection validates a new herb batch registration.
func (f *Factory) Collection(in CollectionInput) (types.Transaction, error) {
	c := &collector{kind: types.KindCollection}
	herb := requireText(c, "herbName", in.HerbName)
	who := requireText(c, "collector", in.Collector)
	requirePositive(c, "quantity", in.Quantity)

	var loc types.GeoLocation
	switch {
	case in.Location == nil:
		c.add("location", "not resolved")
	case !finite(in.Location.Lat) || !finite(in.Location.Lon):
		c.add("location", "coordinates must be finite numbers")
	case math.Abs(in.Location.Lat) > 90 || math.Abs(in.Location.Lon) > 180:
		c.add("location", "coordinates out of range")
	default:
		loc = *in.Location
	}

	if err := c.err(); err != nil {
		return types.Transaction{}, err
	}
	return types.NewCollectionTx(types.CollectionData{
		HerbName:       herb,
		Quantity:       in.Quantity,
		Collector:      who,
		Location:       loc,
		CollectionDate: f.stamp(),
	}), nil
}

// Processing validates a processing step. Whether BatchID exists is checked
// against the projection by the caller, not here.
func (f *Factory) Processing(in ProcessingInput) (types.Transaction, error) {
	c := &collector{kind: types.KindProcessing}
	batch := requireText(c, "batchId", in.BatchID)
	who := requireText(c, "processor", in.Processor)
	kind := requireText(c, "processType", in.ProcessType)
	requirePositive(c, "outputQuantity", in.OutputQuantity)

	if err := c.err(); err != nil {
		return types.Transaction{}, err
	}
	return types.NewProcessingTx(types.ProcessingData{
		BatchID:        batch,
		Processor:      who,
		ProcessType:    kind,
		OutputQuantity: in.OutputQuantity,
		ProcessDate:    f.stamp(),
	}), nil
}

// Formulation validates a product made from one or more batches. Batch ids
// form a set: blanks and duplicates are rejected, order is kept.
func (f *Factory) Formulation(in FormulationInput) (types.Transaction, error) {
	c := &collector{kind: types.KindFormulation}
	name := requireText(c, "productName", in.ProductName)
	maker := requireText(c, "manufacturer", in.Manufacturer)

	ids := make([]string, 0, len(in.InputBatchIDs))
	seen := make(map[string]bool, len(in.InputBatchIDs))
	if len(in.InputBatchIDs) == 0 {
		c.add("inputBatchIds", "at least one batch is required")
	}
	for _, id := range in.InputBatchIDs {
		id = strings.TrimSpace(id)
		switch {
		case id == "":
			c.add("inputBatchIds", "blank batch id")
		case seen[id]:
			c.add("inputBatchIds", "duplicate batch id "+id)
		default:
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := c.err(); err != nil {
		return types.Transaction{}, err
	}
	return types.NewFormulationTx(types.FormulationData{
		ProductName:     name,
		Manufacturer:    maker,
		FormulationDate: f.stamp(),
		InputBatchIDs:   ids,
	}), nil
}
