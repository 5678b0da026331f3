package javaio

// handleTable is the decoder's append-only registry of handle-addressable
// entities. Handles are assigned strictly in allocation order starting at
// BaseWireHandle, one per newly introduced class descriptor, string,
// object, array, enum or Class wrapper. A reset discards the table and
// restarts the counter.
type handleTable struct {
	entries []Value
}

func (t *handleTable) assign(v Value) uint32 {
	h := BaseWireHandle + uint32(len(t.entries))
	t.entries = append(t.entries, v)
	return h
}

func (t *handleTable) resolve(h uint32) (Value, bool) {
	i := int64(h) - int64(BaseWireHandle)
	if i < 0 || i >= int64(len(t.entries)) {
		return nil, false
	}
	return t.entries[i], true
}

func (t *handleTable) reset() {
	t.entries = t.entries[:0]
}

// last returns the most recently assigned handle, or zero when nothing
// has been assigned since the last reset.
func (t *handleTable) last() uint32 {
	if len(t.entries) == 0 {
		return 0
	}
	return BaseWireHandle + uint32(len(t.entries)) - 1
}

// encodeRefs is the encoder's mirror of the handle table: it maps already
// emitted entities to their output-stream handles so later occurrences
// become back-references. Objects, arrays, enums and Class wrappers alias
// by identity: two structurally equal but distinct instances encode
// twice. Strings alias by content and class descriptors by identity and
// by name, matching what the original writer produces.
type encodeRefs struct {
	next       uint32
	objects    map[Value]uint32
	classes    map[*ClassDesc]uint32
	classNames map[string]uint32
	strings    map[string]uint32
}

func newEncodeRefs() *encodeRefs {
	r := &encodeRefs{}
	r.reset()
	return r
}

func (r *encodeRefs) assign() uint32 {
	h := r.next
	r.next++
	return h
}

func (r *encodeRefs) reset() {
	r.next = BaseWireHandle
	r.objects = make(map[Value]uint32)
	r.classes = make(map[*ClassDesc]uint32)
	r.classNames = make(map[string]uint32)
	r.strings = make(map[string]uint32)
}

func (r *encodeRefs) findClass(desc *ClassDesc) (uint32, bool) {
	if h, ok := r.classes[desc]; ok {
		return h, true
	}
	if desc.Name == "" {
		return 0, false
	}
	h, ok := r.classNames[desc.Name]
	return h, ok
}

func (r *encodeRefs) registerClass(desc *ClassDesc, h uint32) {
	r.classes[desc] = h
	if desc.Name != "" {
		r.classNames[desc.Name] = h
	}
}
