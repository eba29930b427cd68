// Package keys allocates surrogate keys.
package keys

// Allocator hands out sequential integer keys. It is the single authority
// for a key space during a run; it is not safe for concurrent use.
type Allocator struct {
	next   int64
	issued int
}

// NewAllocator returns an allocator whose first key is start.
func NewAllocator(start int64) *Allocator {
	if start < 1 {
		start = 1
	}
	return &Allocator{next: start}
}

// Continue returns an allocator that resumes after max, the largest key
// already present in the store.
func Continue(max int64) *Allocator {
	return NewAllocator(max + 1)
}

// Next issues a key.
func (a *Allocator) Next() int64 {
	k := a.next
	a.next++
	a.issued++
	return k
}

// Last returns the most recently issued key, or start-1 if none.
func (a *Allocator) Last() int64 {
	return a.next - 1
}

// Issued returns how many keys have been issued.
func (a *Allocator) Issued() int {
	return a.issued
}
