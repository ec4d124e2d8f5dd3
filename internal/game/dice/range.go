package dice

import "fmt"

// Between returns a uniformly drawn integer in the inclusive range [min, max].
//
// Precondition: min <= max; src must be non-nil.
// Postcondition: min <= result <= max; when min == max no draw is made.
func Between(src Source, min, max int) int {
	if min > max {
		panic(fmt.Sprintf("dice: Between called with min %d > max %d", min, max))
	}
	if min == max {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Percent returns a uniformly drawn float in [0, 100).
func Percent(src Source) float64 {
	return src.Float64() * 100
}
