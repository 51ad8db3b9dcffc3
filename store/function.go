package store

// Function is a store-provided callback dispatched through a function
// slot (§3: "a function index dispatched through a store-provided
// callback"). isSet distinguishes a write ('w'/'W'-style call) from a read
// ('r'/'R'-style call); buf is the caller's working buffer, read on a
// write and filled on a read. It returns the number of bytes touched.
type Function func(isSet bool, buf []byte) (int, error)
