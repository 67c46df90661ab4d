package logroute

// clearOrResetMap empties *m, reallocating instead of clearing in place
// when the map has grown past threshold so the backing storage is given
// back to the allocator.
func clearOrResetMap[V any](m *map[string]V, threshold int) {
	if m == nil {
		return
	}

	if *m == nil {
		*m = make(map[string]V)

		return
	}

	if len(*m) > threshold {
		*m = make(map[string]V)
	} else {
		clear(*m)
	}
}
