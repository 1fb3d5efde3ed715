package ovc

import (
	"fmt"
	"math"
)

// Kind represents the declared type of an arithmetic destination.
// Only the fixed-width integer kinds are modeled.
type Kind int

// Supported kinds.
const (
	KindInvalid = Kind(iota)
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
)

var kinds = [...]string{
	Int8:   "int8",
	Int16:  "int16",
	Int32:  "int32",
	Int64:  "int64",
	Uint8:  "uint8",
	Uint16: "uint16",
	Uint32: "uint32",
	Uint64: "uint64",
}

// Short tags accepted by ParseKind in addition to the Go names.
var kindTags = map[string]Kind{
	"i8":  Int8,
	"i16": Int16,
	"i32": Int32,
	"i64": Int64,
	"u8":  Uint8,
	"u16": Uint16,
	"u32": Uint32,
	"u64": Uint64,
}

// ParseKind returns the kind for a type name. Accepts Go names ("int32") and
// short tags ("i32"). Any other name returns an *UnsupportedTypeError.
func ParseKind(s string) (Kind, error) {
	for k, name := range kinds {
		if name != "" && name == s {
			return Kind(k), nil
		}
	}
	if k, ok := kindTags[s]; ok {
		return k, nil
	}
	return KindInvalid, &UnsupportedTypeError{Type: s}
}

// String returns the Go name of the kind.
func (k Kind) String() string {
	if k.Valid() {
		return kinds[k]
	}
	return fmt.Sprintf("Kind<%d>", k)
}

// Valid returns true if k is one of the eight supported kinds.
func (k Kind) Valid() bool {
	return k >= Int8 && k <= Uint64
}

// Signed returns true for the signed kinds.
func (k Kind) Signed() bool {
	return k >= Int8 && k <= Int64
}

// Width returns the bit width of the kind. Returns zero for invalid kinds.
func (k Kind) Width() uint {
	switch k {
	case Int8, Uint8:
		return Width8
	case Int16, Uint16:
		return Width16
	case Int32, Uint32:
		return Width32
	case Int64, Uint64:
		return Width64
	default:
		return 0
	}
}

// Min returns the smallest representable value. Zero for unsigned kinds.
func (k Kind) Min() int64 {
	if !k.Signed() {
		return 0
	}
	return MinInt(k.Width())
}

// Max returns the largest representable value.
func (k Kind) Max() uint64 {
	if k.Signed() {
		return uint64(MaxInt(k.Width()))
	}
	return bitmask(k.Width())
}

// MinInt returns the two's-complement minimum for a standard width.
func MinInt(width uint) int64 {
	switch width {
	case Width8:
		return math.MinInt8
	case Width16:
		return math.MinInt16
	case Width32:
		return math.MinInt32
	case Width64:
		return math.MinInt64
	default:
		panic(fmt.Sprintf("min: non-standard width: %d", width))
	}
}

// MaxInt returns the two's-complement maximum for a standard width.
func MaxInt(width uint) int64 {
	switch width {
	case Width8:
		return math.MaxInt8
	case Width16:
		return math.MaxInt16
	case Width32:
		return math.MaxInt32
	case Width64:
		return math.MaxInt64
	default:
		panic(fmt.Sprintf("max: non-standard width: %d", width))
	}
}
