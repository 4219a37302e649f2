package label

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/params"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Detail is the per-block summary shown in a provenance trace.
type Detail struct {
	BlockID string  `json:"blockId"`
	Kind    string  `json:"kind"`
	Fields  []Field `json:"fields"`
	Time    string  `json:"time"`
}

func kg(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64) + " kg"
}

// Describe renders one block's transaction for display.
func Describe(b types.Block) Detail {
	d := Detail{
		BlockID: b.ID,
		Kind:    b.Kind().String(),
		Time:    b.Time().UTC().Format(params.DateLayout),
	}

	switch b.Kind() {
	case types.KindGenesis:
		g, _ := b.Transaction.Genesis()
		d.Fields = []Field{{"Message", g.Message}}
	case types.KindCollection:
		c, _ := b.Transaction.Collection()
		d.Fields = []Field{
			{"Herb", c.HerbName},
			{"Quantity", kg(c.Quantity)},
			{"Collector", c.Collector},
			{"Location", fmt.Sprintf("%.4f, %.4f", c.Location.Lat, c.Location.Lon)},
		}
	case types.KindProcessing:
		p, _ := b.Transaction.Processing()
		d.Fields = []Field{
			{"Processor", p.Processor},
			{"Process", p.ProcessType},
			{"Output", kg(p.OutputQuantity)},
		}
	case types.KindFormulation:
		f, _ := b.Transaction.Formulation()
		d.Fields = []Field{
			{"Product", f.ProductName},
			{"Manufacturer", f.Manufacturer},
			{"Input batches", strings.Join(f.InputBatchIDs, ", ")},
		}
	default:
		d.Fields = []Field{{"Error", "unknown transaction kind"}}
	}
	return d
}

func DescribeAll(blocks []types.Block) []Detail {
	out := make([]Detail, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, Describe(b))
	}
	return out
}
