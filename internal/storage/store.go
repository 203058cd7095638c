package storage

// Store is the persistence surface the cart engine writes through. It mirrors
// a browser-local key/value store: synchronous string get/set with no expiry
// and no transactions. Get reports ok=false when the key was never written.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
