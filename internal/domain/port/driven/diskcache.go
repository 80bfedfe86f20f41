package driven

// ValueCache defines the driven port for a single locally cached value.
// Load reports found=false for a missing or expired entry rather than an error.
type ValueCache[T any] interface {
	Load() (value T, found bool, err error)
	Store(value T) error
	Remove() error
}
