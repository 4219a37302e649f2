package types

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Kind tags the four transaction variants.
type Kind uint8

const (
	KindGenesis Kind = iota + 1
	KindCollection
	KindProcessing
	KindFormulation
)

var kindNames = map[Kind]string{
	KindGenesis:     "GENESIS",
	KindCollection:  "COLLECTION",
	KindProcessing:  "PROCESSING",
	KindFormulation: "FORMULATION",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a wire name such as "COLLECTION" back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ------------------------------------------------------------
// Payloads
// ------------------------------------------------------------

type GeoLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Payload is implemented only by the four payload structs of this package.
type Payload interface {
	Kind() Kind
	payload()
}

type GenesisData struct {
	Message string `json:"message"`
}

type CollectionData struct {
	HerbName       string      `json:"herbName"`
	Quantity       float64     `json:"quantity"` // kg
	Collector      string      `json:"collector"`
	Location       GeoLocation `json:"location"`
	CollectionDate string      `json:"collectionDate"`
}

// ProcessingData mutates the batch named by BatchID.
type ProcessingData struct {
	BatchID        string  `json:"batchId,omitempty"`
	Processor      string  `json:"processor"`
	ProcessType    string  `json:"processType"` // e.g. "Dried", "Powdered"
	OutputQuantity float64 `json:"outputQuantity"`
	ProcessDate    string  `json:"processDate"`
}

type FormulationData struct {
	ProductName     string   `json:"productName"`
	Manufacturer    string   `json:"manufacturer"`
	FormulationDate string   `json:"formulationDate"`
	InputBatchIDs   []string `json:"inputBatchIds"`
}

func (GenesisData) Kind() Kind     { return KindGenesis }
func (CollectionData) Kind() Kind  { return KindCollection }
func (ProcessingData) Kind() Kind  { return KindProcessing }
func (FormulationData) Kind() Kind { return KindFormulation }

func (GenesisData) payload()     {}
func (CollectionData) payload()  {}
func (ProcessingData) payload()  {}
func (FormulationData) payload() {}

// ------------------------------------------------------------
// Transaction
// ------------------------------------------------------------

// Transaction wraps exactly one payload. It has no identity of its own and
// is immutable: constructors and accessors copy the payload.
type Transaction struct {
	data Payload
}

func NewGenesisTx(message string) Transaction {
	return Transaction{data: GenesisData{Message: message}}
}

func NewCollectionTx(d CollectionData) Transaction {
	return Transaction{data: d}
}

func NewProcessingTx(d ProcessingData) Transaction {
	return Transaction{data: d}
}

func NewFormulationTx(d FormulationData) Transaction {
	d.InputBatchIDs = slices.Clone(d.InputBatchIDs)
	return Transaction{data: d}
}

// Kind returns the variant tag, or 0 for the zero Transaction.
func (tx Transaction) Kind() Kind {
	if tx.data == nil {
		return 0
	}
	return tx.data.Kind()
}

func (tx Transaction) IsZero() bool {
	return tx.data == nil
}

// Payload returns a copy of the wrapped payload.
func (tx Transaction) Payload() Payload {
	if f, ok := tx.data.(FormulationData); ok {
		f.InputBatchIDs = slices.Clone(f.InputBatchIDs)
		return f
	}
	return tx.data
}

func (tx Transaction) Genesis() (GenesisData, bool) {
	d, ok := tx.data.(GenesisData)
	return d, ok
}

func (tx Transaction) Collection() (CollectionData, bool) {
	d, ok := tx.data.(CollectionData)
	return d, ok
}

func (tx Transaction) Processing() (ProcessingData, bool) {
	d, ok := tx.data.(ProcessingData)
	return d, ok
}

func (tx Transaction) Formulation() (FormulationData, bool) {
	d, ok := tx.data.(FormulationData)
	if ok {
		d.InputBatchIDs = slices.Clone(d.InputBatchIDs)
	}
	return d, ok
}

// ------------------------------------------------------------
// JSON
// ------------------------------------------------------------

type txJSON struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	if tx.data == nil {
		return nil, ErrEmptyTransaction
	}
	data, err := json.Marshal(tx.data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(txJSON{Type: tx.Kind().String(), Data: data})
}

func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var env txJSON
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	kind, err := ParseKind(env.Type)
	if err != nil {
		return err
	}

	switch kind {
	case KindGenesis:
		var d GenesisData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return err
		}
		*tx = NewGenesisTx(d.Message)
	case KindCollection:
		var d CollectionData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return err
		}
		*tx = NewCollectionTx(d)
	case KindProcessing:
		var d ProcessingData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return err
		}
		*tx = NewProcessingTx(d)
	case KindFormulation:
		var d FormulationData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return err
		}
		*tx = NewFormulationTx(d)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return nil
}
