package analytics

import "math/rand/v2"

// Source yields uniform values in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource draws from the goroutine-safe top-level math/rand/v2 generator.
var DefaultSource Source = globalSource{}

// Around returns base plus a uniform offset in [-spread, +spread], clamped to [lo, hi].
func Around(src Source, base, spread, lo, hi float64) float64 {
	if src == nil {
		src = DefaultSource
	}
	v := base + (src.Float64()*2-1)*spread
	return Clamp(v, lo, hi)
}

// AroundInt is Around for counters.
func AroundInt(src Source, base, spread int64) int64 {
	v := Around(src, float64(base), float64(spread), 0, float64(base+spread))
	return int64(v + 0.5)
}
