package registry

import "github.com/danpasecinic/thimble/internal/contract"

const (
	initialBuckets = 16
	loadFactor     = 0.75
)

type entry struct {
	hash uint32
	key  contract.Contract
	reg  *Registration
	next *entry
}

// table is a chained hash table keyed by contract hash. It is not safe for
// concurrent use; Scope guards it.
type table struct {
	buckets []*entry
	count   int
}

func newTable() *table {
	return &table{buckets: make([]*entry, initialBuckets)}
}

func (t *table) get(c contract.Contract) (*Registration, bool) {
	h := c.Hash()
	for e := t.buckets[h&uint32(len(t.buckets)-1)]; e != nil; e = e.next {
		if e.hash == h && e.key == c {
			return e.reg, true
		}
	}
	return nil, false
}

// set stores reg and returns the registration it replaced. grew reports
// whether the bucket array was resized.
func (t *table) set(c contract.Contract, reg *Registration) (previous *Registration, grew bool) {
	h := c.Hash()
	idx := h & uint32(len(t.buckets)-1)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && e.key == c {
			previous, e.reg = e.reg, reg
			return previous, false
		}
	}

	if float64(t.count+1) > float64(len(t.buckets))*loadFactor {
		t.grow()
		grew = true
		idx = h & uint32(len(t.buckets)-1)
	}

	t.buckets[idx] = &entry{hash: h, key: c, reg: reg, next: t.buckets[idx]}
	t.count++
	return nil, grew
}

func (t *table) grow() {
	old := t.buckets
	t.buckets = make([]*entry, len(old)*2)
	mask := uint32(len(t.buckets) - 1)

	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := e.hash & mask
			e.next = t.buckets[idx]
			t.buckets[idx] = e
			e = next
		}
	}
}

func (t *table) each(fn func(*Registration)) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.reg)
		}
	}
}
