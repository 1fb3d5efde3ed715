package sample

// Sum adds two bytes.
func Sum(x, y uint8) uint8 { return x + y }

// Clamp adds two bytes known to be small.
func Clamp(x, y uint8) uint8 {
	if x < 100 && y < 100 {
		return x + y
	}
	return 0
}

// Half halves x.
func Half(x int32) int32 { return x / 2 }

// Flags sets the low bit of x.
func Flags(x uint32) uint32 { return x | 1 }
