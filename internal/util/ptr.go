package util

// Ptr returns a pointer to a copy of v
func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to a copy of v when ok, nil otherwise. Handy for
// optional JSON fields and nullable columns.
func PtrIf[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
