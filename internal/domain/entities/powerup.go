package entities

// PowerUpType is the kind of effect a power-up has on a quiz.
type PowerUpType int

const (
	FreezeTime PowerUpType = iota + 1
	FiftyFifty
	ReverseTime
)

// PowerUpTypes lists all power-up types.
var PowerUpTypes = []PowerUpType{FreezeTime, FiftyFifty, ReverseTime}

// InventoryKey returns the inventory field that counts this power-up.
// Unknown types map to an empty key.
func (t PowerUpType) InventoryKey() string {
	switch t {
	case FreezeTime:
		return "freeze_time"
	case FiftyFifty:
		return "fifty_fifty"
	case ReverseTime:
		return "reverse_time"
	default:
		return ""
	}
}

func (t PowerUpType) String() string {
	switch t {
	case FreezeTime:
		return "FREEZE_TIME"
	case FiftyFifty:
		return "FIFTY_FIFTY"
	case ReverseTime:
		return "REVERSE_TIME"
	default:
		return "UNKNOWN"
	}
}

// ParsePowerUpType maps an inventory key back to its type.
func ParsePowerUpType(key string) (PowerUpType, bool) {
	for _, t := range PowerUpTypes {
		if t.InventoryKey() == key {
			return t, true
		}
	}
	return 0, false
}

// PowerUp is a catalog entry that can be bought in the shop.
type PowerUp struct {
	ID          string
	Name        string
	Description string
	Price       int
	Type        PowerUpType
}

// Inventory maps a power-up inventory key to the number of units the user owns.
type Inventory map[string]int

// Count returns the number of units owned for the given type.
func (inv Inventory) Count(t PowerUpType) int {
	return inv[t.InventoryKey()]
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}
