package rating

// KFactor maps the number of distinct events a participant has sailed to the
// sensitivity of their rating. Newcomers move fast, veterans stay put.
func KFactor(events int) int {
	switch {
	case events < 3:
		return 24
	case events < 5:
		return 20
	case events < 10:
		return 16
	case events < 20:
		return 12
	default:
		return 8
	}
}
