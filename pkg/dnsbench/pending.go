package dnsbench

// pendingTable maps correlation keys of in-flight queries to the index of their record. It is owned by a single
// worker and never shared.
type pendingTable struct {
	m map[uint32]int
}

func newPendingTable(capacity int) pendingTable {
	return pendingTable{m: make(map[uint32]int, capacity)}
}

func (t *pendingTable) insert(key uint32, idx int) {
	t.m[key] = idx
}

// take removes the key and returns index of its record.
func (t *pendingTable) take(key uint32) (int, bool) {
	idx, ok := t.m[key]
	if ok {
		delete(t.m, key)
	}
	return idx, ok
}

func (t *pendingTable) remove(key uint32) {
	delete(t.m, key)
}

func (t *pendingTable) len() int {
	return len(t.m)
}
