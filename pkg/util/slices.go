package util

// InPlaceFilter keeps the elements of s matching p, reusing the backing array
func InPlaceFilter[T any](s *[]T, p func(T) bool) {
	kept := 0
	for _, element := range *s {
		if p(element) {
			(*s)[kept] = element
			kept++
		}
	}

	// Zero the tail so dropped pointers can be collected
	clear((*s)[kept:])
	*s = (*s)[:kept]
}
