package compiler

// Allocator hands out node ids for one parse.
// Ids start at 1 so they never collide with the sentinel ids.
type Allocator struct {
	next int
}

// NewAllocator returns an allocator whose first id is 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns a fresh id.
func (a *Allocator) Next() int {
	id := a.next
	a.next++
	return id
}
