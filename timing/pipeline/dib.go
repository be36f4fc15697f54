package pipeline

// dib is the decoded-instruction buffer: a direct-mapped table of recently
// decoded instruction addresses. A fetch that hits skips the decode latency,
// since the decoded form is still resident.
type dib struct {
	tags  []uint64
	valid []bool
	mask  uint64
}

func newDIB(size uint32) *dib {
	if size == 0 {
		size = 512
	}
	// Round up to a power of two so the index mask works.
	n := uint32(1)
	for n < size {
		n <<= 1
	}
	return &dib{
		tags:  make([]uint64, n),
		valid: make([]bool, n),
		mask:  uint64(n - 1),
	}
}

func (d *dib) index(ip uint64) uint64 { return (ip >> 2) & d.mask }

// lookup reports whether ip is resident.
func (d *dib) lookup(ip uint64) bool {
	i := d.index(ip)
	return d.valid[i] && d.tags[i] == ip
}

// insert records ip, evicting whatever shared its slot.
func (d *dib) insert(ip uint64) {
	i := d.index(ip)
	d.tags[i] = ip
	d.valid[i] = true
}
