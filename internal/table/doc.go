// Package table is the key→value table shared by the heap and the cache.
//
// The heap uses it as an identity index (element handle → array position);
// the cache uses it to find resident items by key. It is a thin contract over
// a Go map so both sides agree on Put/Get/Remove/Exists/Count/Enumerate
// semantics, including a real not-found error rather than a zero value.
//
// A Table is not safe for concurrent use.
package table
