package types

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// Canonical form: RLP list [kind, payload], payload being a fixed-order
// list per kind. Floats travel as their IEEE-754 bit patterns, so a number
// can never be confused with a string of digits.

type txEnvelope struct {
	Kind    uint8
	Payload rlp.RawValue
}

type genesisRLP struct {
	Message string
}

type collectionRLP struct {
	HerbName       string
	Quantity       uint64
	Collector      string
	Lat            uint64
	Lon            uint64
	CollectionDate string
}

type processingRLP struct {
	BatchID        string
	Processor      string
	ProcessType    string
	OutputQuantity uint64
	ProcessDate    string
}

type formulationRLP struct {
	ProductName     string
	Manufacturer    string
	FormulationDate string
	InputBatchIDs   []string
}

func floatBits(field string, f float64) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNonFinite, field)
	}
	return math.Float64bits(f), nil
}

func (tx Transaction) payloadRLP() (interface{}, error) {
	switch d := tx.data.(type) {
	case GenesisData:
		return genesisRLP{Message: d.Message}, nil
	case CollectionData:
		q, err := floatBits("quantity", d.Quantity)
		if err != nil {
			return nil, err
		}
		lat, err := floatBits("location.lat", d.Location.Lat)
		if err != nil {
			return nil, err
		}
		lon, err := floatBits("location.lon", d.Location.Lon)
		if err != nil {
			return nil, err
		}
		return collectionRLP{
			HerbName:       d.HerbName,
			Quantity:       q,
			Collector:      d.Collector,
			Lat:            lat,
			Lon:            lon,
			CollectionDate: d.CollectionDate,
		}, nil
	case ProcessingData:
		out, err := floatBits("outputQuantity", d.OutputQuantity)
		if err != nil {
			return nil, err
		}
		return processingRLP{
			BatchID:        d.BatchID,
			Processor:      d.Processor,
			ProcessType:    d.ProcessType,
			OutputQuantity: out,
			ProcessDate:    d.ProcessDate,
		}, nil
	case FormulationData:
		ids := d.InputBatchIDs
		if ids == nil {
			ids = []string{}
		}
		return formulationRLP{
			ProductName:     d.ProductName,
			Manufacturer:    d.Manufacturer,
			FormulationDate: d.FormulationDate,
			InputBatchIDs:   ids,
		}, nil
	case nil:
		return nil, ErrEmptyTransaction
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, d)
	}
}

// EncodeRLP implements rlp.Encoder.
func (tx Transaction) EncodeRLP(w io.Writer) error {
	p, err := tx.payloadRLP()
	if err != nil {
		return err
	}
	raw, err := rlp.EncodeToBytes(p)
	if err != nil {
		return err
	}
	return rlp.Encode(w, txEnvelope{Kind: uint8(tx.Kind()), Payload: raw})
}

// DecodeRLP implements rlp.Decoder.
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	var env txEnvelope
	if err := s.Decode(&env); err != nil {
		return err
	}

	switch Kind(env.Kind) {
	case KindGenesis:
		var p genesisRLP
		if err := rlp.DecodeBytes(env.Payload, &p); err != nil {
			return err
		}
		*tx = NewGenesisTx(p.Message)
	case KindCollection:
		var p collectionRLP
		if err := rlp.DecodeBytes(env.Payload, &p); err != nil {
			return err
		}
		*tx = NewCollectionTx(CollectionData{
			HerbName:  p.HerbName,
			Quantity:  math.Float64frombits(p.Quantity),
			Collector: p.Collector,
			Location: GeoLocation{
				Lat: math.Float64frombits(p.Lat),
				Lon: math.Float64frombits(p.Lon),
			},
			CollectionDate: p.CollectionDate,
		})
	case KindProcessing:
		var p processingRLP
		if err := rlp.DecodeBytes(env.Payload, &p); err != nil {
			return err
		}
		*tx = NewProcessingTx(ProcessingData{
			BatchID:        p.BatchID,
			Processor:      p.Processor,
			ProcessType:    p.ProcessType,
			OutputQuantity: math.Float64frombits(p.OutputQuantity),
			ProcessDate:    p.ProcessDate,
		})
	case KindFormulation:
		var p formulationRLP
		if err := rlp.DecodeBytes(env.Payload, &p); err != nil {
			return err
		}
		*tx = NewFormulationTx(FormulationData{
			ProductName:     p.ProductName,
			Manufacturer:    p.Manufacturer,
			FormulationDate: p.FormulationDate,
			InputBatchIDs:   p.InputBatchIDs,
		})
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, env.Kind)
	}
	return nil
}

// Canonical returns the deterministic string form that goes into the block hash.
func (tx Transaction) Canonical() (string, error) {
	b, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
