package common

// OneOf reports whether v equals any of the candidates.
func OneOf[T comparable](v T, candidates ...T) bool {
	for _, c := range candidates {
		if v == c {
			return true
		}
	}
	return false
}
