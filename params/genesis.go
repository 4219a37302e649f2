package params

// ------------------------------------------------------------
// GENESIS
// ------------------------------------------------------------

// GenesisMessage is carried by the genesis transaction of every chain.
const GenesisMessage = "Genesis Block"

// ------------------------------------------------------------
// BLOCK IDS
// ------------------------------------------------------------
//
// A block id is a prefix of its hash. 8 hex chars is 32 bits: the chance of
// some collision passes 1% around 9,300 blocks. Collisions are detected at
// commit time, never silently accepted.

const (
	DefaultIDLength = 8
	MinIDLength     = 8
	MaxIDLength     = 64
)

// ------------------------------------------------------------
// ITEM MARKER (QR payload)
// ------------------------------------------------------------

// ItemMarkerType is the fixed discriminator of a scanned item payload.
const ItemMarkerType = "item-marker"

// InitialBatchStatus is the status of a freshly collected batch.
const InitialBatchStatus = "Collected"

// DateLayout is the timestamp format stamped into transaction payloads.
const DateLayout = "2006-01-02T15:04:05.000Z"
