package scene

import "sort"

// sortedTimes returns the keys of samples in ascending order.
func sortedTimes[T any](samples map[float64]T) []float64 {
	times := make([]float64, 0, len(samples))
	for t := range samples {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// valueAt resolves a time-varying value with held (step) semantics: the
// latest sample at or before t, or the earliest sample when t precedes all
// of them. The default marker reads def, falling back to the earliest sample.
func valueAt[T any](def *T, samples map[float64]T, t TimeCode) (T, bool) {
	var zero T
	times := sortedTimes(samples)
	if t.IsDefault() || len(times) == 0 {
		if def != nil {
			return *def, true
		}
		if len(times) == 0 {
			return zero, false
		}
		return samples[times[0]], true
	}
	i := sort.Search(len(times), func(i int) bool { return times[i] > t.value })
	if i == 0 {
		return samples[times[0]], true
	}
	return samples[times[i-1]], true
}

// timeCodes converts sorted coordinates into time codes.
func timeCodes(times []float64) []TimeCode {
	out := make([]TimeCode, len(times))
	for i, t := range times {
		out[i] = At(t)
	}
	return out
}
