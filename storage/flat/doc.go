// Package flat provides the fallback Index variant: an in-memory map of
// embedding records with brute-force similarity search and an optional
// snapshot file for durability. It exists so the database stays usable
// when the badger store cannot be opened, and it returns identical
// rankings for identical contents.
package flat
