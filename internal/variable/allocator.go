package variable

import "fmt"

// Allocator hands out value references for one slave instance. References
// are issued in ascending order, skipping any that were reserved
// explicitly. A reference is only handed out again after Release.
//
// An Allocator is owned by a single model and is not safe for concurrent
// use.
type Allocator struct {
	next uint32
	used map[uint32]struct{}
}

// NewAllocator returns an allocator starting at reference 0.
func NewAllocator() *Allocator {
	return &Allocator{used: make(map[uint32]struct{})}
}

// Next returns the smallest reference not yet issued or reserved that is
// greater than or equal to every reference issued by Next so far.
func (a *Allocator) Next() uint32 {
	for {
		vr := a.next
		a.next++
		if _, taken := a.used[vr]; !taken {
			a.used[vr] = struct{}{}
			return vr
		}
	}
}

// Reserve claims an explicit reference.
func (a *Allocator) Reserve(vr uint32) error {
	if _, taken := a.used[vr]; taken {
		return fmt.Errorf("value reference %d already in use", vr)
	}
	a.used[vr] = struct{}{}
	return nil
}

// Release returns vr to the pool, for a declaration rejected after its
// reference was claimed. The next call to Next may issue it again.
func (a *Allocator) Release(vr uint32) {
	if _, taken := a.used[vr]; !taken {
		return
	}
	delete(a.used, vr)
	if vr < a.next {
		a.next = vr
	}
}

// InUse reports whether vr has been issued or reserved.
func (a *Allocator) InUse(vr uint32) bool {
	_, taken := a.used[vr]
	return taken
}

// Len returns the number of references issued or reserved.
func (a *Allocator) Len() int {
	return len(a.used)
}
