// SPDX-License-Identifier: EPL-2.0

package audmgr

import "slices"

// relations tracks which source plays which buffer, in both directions.
// Guarded by Context.mu.
type relations struct {
	bySource map[uint32]*Buffer
	byBuffer map[*Buffer][]uint32 // sorted source ids
}

func newRelations() relations {
	return relations{
		bySource: make(map[uint32]*Buffer),
		byBuffer: make(map[*Buffer][]uint32),
	}
}

// bind attaches source id to b, detaching it from any previous buffer.
func (r relations) bind(id uint32, b *Buffer) {
	r.unbind(id)
	r.bySource[id] = b

	ids := r.byBuffer[b]
	i, _ := slices.BinarySearch(ids, id)
	r.byBuffer[b] = slices.Insert(ids, i, id)
}

// unbind detaches source id and returns the buffer it was bound to.
func (r relations) unbind(id uint32) *Buffer {
	b, ok := r.bySource[id]
	if !ok {
		return nil
	}
	delete(r.bySource, id)

	ids := r.byBuffer[b]
	if i, found := slices.BinarySearch(ids, id); found {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(r.byBuffer, b)
	} else {
		r.byBuffer[b] = ids
	}
	return b
}

func (r relations) bufferOf(id uint32) *Buffer {
	return r.bySource[id]
}

func (r relations) sourcesOf(b *Buffer) []uint32 {
	return slices.Clone(r.byBuffer[b])
}

func (r relations) refs(b *Buffer) int {
	return len(r.byBuffer[b])
}
