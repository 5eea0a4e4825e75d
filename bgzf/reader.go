// Package bgzf reads blocked-gzip (BGZF) files. A BGZF file is a series of
// gzip members of at most 64 KiB whose compressed size is recorded in a
// "BC" extra subfield, which makes random access by virtual offset possible
// without inflating the whole stream.
package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// maxBlockSize bounds both the compressed and the uncompressed size of one
// BGZF block.
const maxBlockSize = 0x10000

// ErrNotBGZF is returned when the opened stream is gzip but lacks the BC
// extra subfield, or is not gzip at all.
var ErrNotBGZF = errors.New("bgzf: not a blocked-gzip stream")

// A VirtualOffset addresses a byte in the uncompressed stream: the upper 48
// bits hold the file offset of the containing block, the lower 16 bits the
// offset within the inflated block.
type VirtualOffset uint64

// MakeVirtualOffset combines a block's file offset and an offset within the
// inflated block.
func MakeVirtualOffset(coffset int64, uoffset int) VirtualOffset {
	return VirtualOffset(coffset)<<16 | VirtualOffset(uoffset&0xffff)
}

// File returns the file offset of the block the virtual offset points into.
func (v VirtualOffset) File() int64 { return int64(v >> 16) }

// Block returns the offset within the inflated block.
func (v VirtualOffset) Block() int { return int(v & 0xffff) }

// Reader reads a BGZF stream sequentially or from arbitrary virtual
// offsets. It is not safe for concurrent use: every read mutates the shared
// block buffer.
type Reader struct {
	ra     io.ReaderAt
	size   int64
	closer io.Closer

	gz        gzip.Reader
	block     []byte // inflated current block
	blockAddr int64  // file offset of the current block
	nextAddr  int64  // file offset of the following block
	off       int    // read position within block
}

// Open opens the BGZF file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bgzf: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bgzf: stat %s: %w", path, err)
	}
	r, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps a random-access source of the given total size. The first
// block is decoded immediately to validate the BGZF framing.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{ra: ra, size: size}
	if err := r.loadBlock(0); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("%w: empty stream", ErrNotBGZF)
		}
		return nil, err
	}
	return r, nil
}

// loadBlock inflates the block starting at file offset addr. Returns io.EOF
// when addr is at or beyond the end of the file.
func (r *Reader) loadBlock(addr int64) error {
	if addr >= r.size {
		return io.EOF
	}
	sec := io.NewSectionReader(r.ra, addr, min(int64(maxBlockSize), r.size-addr))
	if err := r.gz.Reset(sec); err != nil {
		if err == gzip.ErrHeader {
			return fmt.Errorf("%w: bad gzip header at offset %d", ErrNotBGZF, addr)
		}
		return fmt.Errorf("bgzf: block header at offset %d: %w", addr, err)
	}
	r.gz.Multistream(false)
	bsize, err := blockSize(r.gz.Header.Extra)
	if err != nil {
		return fmt.Errorf("%w: block at offset %d: %v", ErrNotBGZF, addr, err)
	}
	block, err := io.ReadAll(&r.gz)
	if err != nil {
		return fmt.Errorf("bgzf: inflate block at offset %d: %w", addr, err)
	}
	r.block = block
	r.blockAddr = addr
	r.nextAddr = addr + int64(bsize)
	r.off = 0
	return nil
}

// blockSize extracts the total compressed block size from the BC extra
// subfield.
func blockSize(extra []byte) (int, error) {
	for len(extra) >= 4 {
		si1, si2 := extra[0], extra[1]
		slen := int(binary.LittleEndian.Uint16(extra[2:]))
		if len(extra) < 4+slen {
			break
		}
		if si1 == 'B' && si2 == 'C' && slen == 2 {
			return int(binary.LittleEndian.Uint16(extra[4:])) + 1, nil
		}
		extra = extra[4+slen:]
	}
	return 0, errors.New("missing BC subfield")
}

// Seek positions the reader at the given virtual offset.
func (r *Reader) Seek(v VirtualOffset) error {
	if addr := v.File(); addr != r.blockAddr {
		if err := r.loadBlock(addr); err != nil {
			return err
		}
	}
	off := v.Block()
	if off > len(r.block) {
		return fmt.Errorf("bgzf: virtual offset %#x beyond block end", uint64(v))
	}
	r.off = off
	return nil
}

// Tell returns the virtual offset of the next byte to be read. A position at
// the end of a block is reported as the start of the following block, so
// offsets compare correctly across block boundaries.
func (r *Reader) Tell() VirtualOffset {
	if r.off >= len(r.block) {
		return MakeVirtualOffset(r.nextAddr, 0)
	}
	return MakeVirtualOffset(r.blockAddr, r.off)
}

// Read implements io.Reader over the inflated stream.
func (r *Reader) Read(p []byte) (int, error) {
	for r.off >= len(r.block) {
		if err := r.loadBlock(r.nextAddr); err != nil {
			return 0, err
		}
		// empty blocks (the EOF marker) inflate to zero bytes; keep walking
	}
	n := copy(p, r.block[r.off:])
	r.off += n
	return n, nil
}

// ReadLine fills buf with the next line, excluding the trailing newline and
// any carriage return. Lines may span block boundaries. Returns io.EOF only
// when no bytes remain at all; a final line without a newline is returned
// normally.
func (r *Reader) ReadLine(buf *[]byte) error {
	*buf = (*buf)[:0]
	got := false
	for {
		if r.off >= len(r.block) {
			if err := r.loadBlock(r.nextAddr); err != nil {
				if err == io.EOF && got {
					break
				}
				return err
			}
			continue
		}
		got = true
		if i := bytes.IndexByte(r.block[r.off:], '\n'); i >= 0 {
			*buf = append(*buf, r.block[r.off:r.off+i]...)
			r.off += i + 1
			break
		}
		*buf = append(*buf, r.block[r.off:]...)
		r.off = len(r.block)
	}
	if n := len(*buf); n > 0 && (*buf)[n-1] == '\r' {
		*buf = (*buf)[:n-1]
	}
	return nil
}

// Close releases the underlying file when the reader was opened from a path.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
