package ports

// Codec converts States to bytes and back for stores that keep raw bytes.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
