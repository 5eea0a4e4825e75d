package tabix

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/inodb/vibe-hts/bgzf"
)

// Column presets recorded in the index header. The UCSC flag marks begin
// columns that are already 0-based.
const (
	presetGeneric = 0
	presetSAM     = 1
	presetVCF     = 2
	flagUCSC      = 0x10000
)

// config is the column layout the file was indexed with.
type config struct {
	preset int32
	seqCol int32 // 1-based column holding the sequence name
	begCol int32 // 1-based column holding the begin position
	endCol int32 // 1-based column holding the end position, 0 if none
	meta   byte  // comment/header line marker
}

// chunk is a half-open virtual-offset range of the compressed stream.
type chunk struct {
	beg, end bgzf.VirtualOffset
}

// refIndex is the binning and linear index of one sequence.
type refIndex struct {
	bins map[uint32][]chunk
	intv []bgzf.VirtualOffset // lowest record offset per 16 kb window
}

// index is a loaded tabix (.tbi) index.
type index struct {
	conf  config
	names []string
	ids   map[string]int
	refs  []refIndex
}

// loadIndex reads and decodes the BGZF-compressed index at path.
func loadIndex(path string) (*index, error) {
	br, err := bgzf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	defer br.Close()

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	idx, err := decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidIndex, path, err)
	}
	return idx, nil
}

func decodeIndex(data []byte) (*index, error) {
	d := decoder{buf: data}
	if magic := d.bytes(4); string(magic) != "TBI\x01" {
		return nil, fmt.Errorf("bad magic")
	}
	nRef := d.i32()
	idx := &index{
		conf: config{
			preset: d.i32(),
			seqCol: d.i32(),
			begCol: d.i32(),
			endCol: d.i32(),
		},
		ids: make(map[string]int),
	}
	idx.conf.meta = byte(d.i32())
	d.i32() // lines skipped at indexing time, no bearing on region queries
	if nRef < 0 {
		return nil, fmt.Errorf("negative reference count")
	}
	if idx.conf.preset&0xffff == presetSAM {
		return nil, fmt.Errorf("unsupported SAM preset")
	}

	names := d.bytes(int(d.i32()))
	start := 0
	for i, b := range names {
		if b == 0 {
			idx.ids[string(names[start:i])] = len(idx.names)
			idx.names = append(idx.names, string(names[start:i]))
			start = i + 1
		}
	}
	if len(idx.names) != int(nRef) {
		if d.err != nil {
			return nil, d.err
		}
		return nil, fmt.Errorf("name table holds %d names, expected %d", len(idx.names), nRef)
	}

	idx.refs = make([]refIndex, nRef)
	for i := range idx.refs {
		ref := refIndex{bins: make(map[uint32][]chunk)}
		nBin := d.i32()
		for b := int32(0); b < nBin && d.err == nil; b++ {
			bin := d.u32()
			nChunk := d.i32()
			chunks := make([]chunk, 0, max(nChunk, 0))
			for c := int32(0); c < nChunk && d.err == nil; c++ {
				chunks = append(chunks, chunk{
					beg: bgzf.VirtualOffset(d.u64()),
					end: bgzf.VirtualOffset(d.u64()),
				})
			}
			ref.bins[bin] = chunks
		}
		nIntv := d.i32()
		for v := int32(0); v < nIntv && d.err == nil; v++ {
			ref.intv = append(ref.intv, bgzf.VirtualOffset(d.u64()))
		}
		idx.refs[i] = ref
	}
	if d.err != nil {
		return nil, d.err
	}
	return idx, nil
}

// decoder walks a little-endian byte buffer, latching the first overrun.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil || n < 0 || d.off+n > len(d.buf) {
		if d.err == nil {
			d.err = fmt.Errorf("truncated at offset %d", d.off)
		}
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) i32() int32 {
	b := d.bytes(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (d *decoder) u32() uint32 {
	b := d.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// reg2bins returns the bins that may hold records overlapping [beg, end) in
// the 5-level, 16 kb-leaf binning scheme.
func reg2bins(beg, end int64) []uint32 {
	if beg < 0 {
		beg = 0
	}
	if end <= beg {
		return nil
	}
	end--
	bins := []uint32{0}
	levels := []struct {
		shift  uint
		offset uint32
	}{
		{26, 1},
		{23, 9},
		{20, 73},
		{17, 585},
		{14, 4681},
	}
	for _, l := range levels {
		for k := l.offset + uint32(beg>>l.shift); k <= l.offset+uint32(end>>l.shift); k++ {
			bins = append(bins, k)
		}
	}
	return bins
}

// chunks resolves [beg, end) on sequence tid to a sorted, merged list of
// compressed-stream ranges. An out-of-range tid is a fetch failure; an empty
// result is a valid, immediately exhausted query.
func (i *index) chunks(tid int, beg, end int64) ([]chunk, error) {
	if tid < 0 || tid >= len(i.refs) {
		return nil, &FetchError{Tid: tid}
	}
	ref := i.refs[tid]

	var minOff bgzf.VirtualOffset
	if len(ref.intv) > 0 {
		w := beg >> 14
		if w < 0 {
			w = 0
		}
		if w >= int64(len(ref.intv)) {
			w = int64(len(ref.intv)) - 1
		}
		minOff = ref.intv[w]
	}

	var out []chunk
	for _, b := range reg2bins(beg, end) {
		for _, c := range ref.bins[b] {
			if c.end <= minOff {
				continue
			}
			if c.beg < minOff {
				c.beg = minOff
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].beg < out[b].beg })

	merged := out[:0]
	for _, c := range out {
		if n := len(merged); n > 0 && c.beg <= merged[n-1].end {
			if c.end > merged[n-1].end {
				merged[n-1].end = c.end
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged, nil
}
