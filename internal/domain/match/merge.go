package match

// Merge reconciles the cached matches with a freshly fetched batch.
//
// Cached matches keep their order and every field they had. A fetched match
// whose key is already known only overwrites MutableFields; a mutable field
// missing from the fetched match is removed from the cached one. Unknown keys
// are appended in fetch order. Nothing is ever dropped, and neither input is
// modified.
func Merge(old, incoming []Match) []Match {
	index := make(map[string]int, len(old)+len(incoming))
	out := make([]Match, 0, len(old)+len(incoming))

	for _, m := range old {
		key := m.Key()
		if i, ok := index[key]; ok {
			out[i] = m.Clone()
			continue
		}
		index[key] = len(out)
		out = append(out, m.Clone())
	}

	for _, m := range incoming {
		key := m.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, m.Clone())
			continue
		}

		for _, name := range MutableFields {
			if value, found := m.Get(name); found {
				out[i].Set(name, value)
			} else {
				out[i].Delete(name)
			}
		}
	}

	return out
}
