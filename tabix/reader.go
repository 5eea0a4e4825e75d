// Package tabix reads BGZF-compressed, tabix-indexed text files and answers
// region queries: given a sequence and a half-open interval, it yields only
// the data lines whose genomic span overlaps the query, in file order.
package tabix

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hts/bgzf"
)

// Reader is a region-query reader over one indexed file.
//
// A Reader is single-threaded: Fetch replaces the active cursor and Read
// mutates a shared line buffer, so concurrent use needs external locking.
// Handing a Reader between goroutines is fine.
type Reader struct {
	header []string

	stream *bgzf.Reader
	idx    *index
	logger *zap.Logger

	cur *cursor

	// active query span
	tid        int
	start, end int64

	scratch []byte
	tmpDir  string // staging dir for remote files, removed on Close
}

// cursor iterates the raw lines of one region query. It is replaced
// atomically by Fetch; the previous cursor is dropped before the new one is
// built.
type cursor struct {
	chunks []chunk
	i      int  // current chunk
	seeked bool // stream is positioned inside chunks[i]
	done   bool
}

// span is the genomic extent of one data line, as decoded under the index's
// column configuration.
type span struct {
	tid      int
	beg, end int64
}

// Open opens a tabix-indexed file from a local path or an http(s):// or
// s3:// URL and loads its sibling .tbi index. Leading lines that start with
// the index's meta character are collected verbatim as header lines.
func Open(path string) (*Reader, error) {
	if u, err := url.Parse(path); err == nil {
		switch u.Scheme {
		case "http", "https", "s3":
			return openRemote(u)
		}
	}
	return openLocal(path, path+".tbi")
}

func openLocal(path, indexPath string) (*Reader, error) {
	idx, err := loadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	stream, err := bgzf.Open(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		stream: stream,
		idx:    idx,
		logger: zap.NewNop(),
	}
	if err := r.collectHeader(); err != nil {
		stream.Close()
		return nil, err
	}
	return r, nil
}

// collectHeader reads meta-character lines off the top of the stream. The
// first non-meta line ends collection; data lines are only ever reached
// again through an indexed fetch.
func (r *Reader) collectHeader() error {
	var line []byte
	for {
		if err := r.stream.ReadLine(&line); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read header lines: %w", err)
		}
		if len(line) > 0 && line[0] == r.idx.conf.meta {
			r.header = append(r.header, string(line))
			continue
		}
		return nil
	}
}

// SetLogger sets the logger for debug diagnostics. The default discards
// everything.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Header returns the verbatim header lines collected at open time.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Seqnames returns all indexed sequence names in index order.
func (r *Reader) Seqnames() []string {
	return append([]string(nil), r.idx.names...)
}

// SeqNameToID resolves a sequence name through the index's name table.
func (r *Reader) SeqNameToID(name string) (int, error) {
	id, ok := r.idx.ids[name]
	if !ok {
		return 0, &SequenceLookupError{Name: name}
	}
	return id, nil
}

// Fetch positions a new query cursor over [start, end) on the sequence with
// the given index id, replacing any previous cursor. Callers are responsible
// for start <= end. The sequence id must come from this reader's index; ids
// from the file's own header lines are not guaranteed consistent with it.
func (r *Reader) Fetch(tid int, start, end int64) error {
	r.cur = nil // drop the previous cursor before building the next
	chunks, err := r.idx.chunks(tid, start, end)
	if err != nil {
		return err
	}
	r.tid, r.start, r.end = tid, start, end
	r.cur = &cursor{chunks: chunks}
	r.logger.Debug("fetch",
		zap.Int("tid", tid),
		zap.Int64("start", start),
		zap.Int64("end", end),
		zap.Int("chunks", len(chunks)))
	return nil
}

// Read returns the next data line overlapping the fetched region. The
// returned slice is valid until the next Read or Fetch call; copy it to
// retain it.
//
// ErrNoIter is returned when no Fetch preceded the call, ErrNoMoreRecord
// when the region is exhausted (the expected end signal, see IsEOF), and
// ErrTruncated when a record cannot be decoded.
func (r *Reader) Read() ([]byte, error) {
	if r.cur == nil {
		return nil, ErrNoIter
	}
	for {
		sp, line, err := r.nextRaw()
		if err != nil {
			return nil, err
		}
		if overlap(r.tid, r.start, r.end, sp.tid, sp.beg, sp.end) {
			return line, nil
		}
	}
}

// nextRaw pulls the next raw line within the cursor's chunks and decodes its
// span. Lines that cannot overlap any further query position terminate the
// cursor early.
func (r *Reader) nextRaw() (span, []byte, error) {
	c := r.cur
	for {
		if c.done || c.i >= len(c.chunks) {
			c.done = true
			return span{}, nil, ErrNoMoreRecord
		}
		ck := c.chunks[c.i]
		if !c.seeked {
			if err := r.stream.Seek(ck.beg); err != nil {
				c.done = true
				return span{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
			}
			c.seeked = true
		}
		if r.stream.Tell() >= ck.end {
			c.i++
			c.seeked = false
			continue
		}
		if err := r.stream.ReadLine(&r.scratch); err != nil {
			if err == io.EOF {
				c.i++
				c.seeked = false
				continue
			}
			c.done = true
			return span{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		if len(r.scratch) == 0 || r.scratch[0] == r.idx.conf.meta {
			continue
		}
		sp, err := r.parseSpan(r.scratch)
		if err != nil {
			c.done = true
			return span{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		// records are position-sorted within a sequence, so once a line on
		// the queried sequence starts at or past the query end nothing
		// further can overlap
		if sp.tid == r.tid && sp.beg >= r.end {
			c.done = true
			return span{}, nil, ErrNoMoreRecord
		}
		return sp, r.scratch, nil
	}
}

// parseSpan decodes (tid, beg, end) from a data line under the index's
// column configuration.
func (r *Reader) parseSpan(line []byte) (span, error) {
	conf := r.idx.conf
	fields := bytes.Split(line, []byte{'\t'})

	col := func(c int32) ([]byte, error) {
		if c < 1 || int(c) > len(fields) {
			return nil, fmt.Errorf("missing column %d", c)
		}
		return fields[c-1], nil
	}

	name, err := col(conf.seqCol)
	if err != nil {
		return span{}, err
	}
	tid, ok := r.idx.ids[string(name)]
	if !ok {
		tid = -1 // not indexed, can never match a query
	}

	begField, err := col(conf.begCol)
	if err != nil {
		return span{}, err
	}
	beg, err := strconv.ParseInt(string(begField), 10, 64)
	if err != nil {
		return span{}, fmt.Errorf("bad begin position: %v", err)
	}
	if conf.preset&flagUCSC == 0 {
		beg-- // column is 1-based
	}

	end := beg + 1
	switch {
	case conf.preset&0xffff == presetVCF:
		ref, err := col(4)
		if err != nil {
			return span{}, err
		}
		end = beg + int64(len(ref))
		if info, err := col(8); err == nil {
			if e, ok := vcfInfoEnd(info); ok {
				end = e
			}
		}
	case conf.endCol > 0 && conf.endCol != conf.begCol:
		endField, err := col(conf.endCol)
		if err != nil {
			return span{}, err
		}
		end, err = strconv.ParseInt(string(endField), 10, 64)
		if err != nil {
			return span{}, fmt.Errorf("bad end position: %v", err)
		}
	}
	return span{tid: tid, beg: beg, end: end}, nil
}

// vcfInfoEnd extracts the END attribute of a VCF INFO field. END is a
// 1-based inclusive coordinate, which equals the half-open end directly.
func vcfInfoEnd(info []byte) (int64, bool) {
	for len(info) > 0 {
		var kv []byte
		if i := bytes.IndexByte(info, ';'); i >= 0 {
			kv, info = info[:i], info[i+1:]
		} else {
			kv, info = info, nil
		}
		if bytes.HasPrefix(kv, []byte("END=")) {
			end, err := strconv.ParseInt(string(kv[4:]), 10, 64)
			if err != nil {
				return 0, false
			}
			return end, true
		}
	}
	return 0, false
}

// overlap reports whether two genomic intervals intersect under half-open
// semantics on the same sequence.
func overlap(tid1 int, beg1, end1 int64, tid2 int, beg2, end2 int64) bool {
	return tid1 == tid2 && beg1 < end2 && beg2 < end1
}

// Records returns an iterator over the remaining lines of the active
// region query. The iterator is not restartable; issue a fresh Fetch to read
// the same region again.
func (r *Reader) Records() *Records {
	return &Records{r: r}
}

// Records iterates the lines of a fetched region, stopping cleanly at
// exhaustion and exposing any other error through Err.
type Records struct {
	r    *Reader
	line []byte
	err  error
	done bool
}

// Next advances to the next overlapping line. It returns false at the end
// of the region or on error; check Err afterwards.
func (it *Records) Next() bool {
	if it.done {
		return false
	}
	line, err := it.r.Read()
	if err != nil {
		it.done = true
		if !errors.Is(err, ErrNoMoreRecord) {
			it.err = err
		}
		return false
	}
	it.line = append(it.line[:0], line...)
	return true
}

// Bytes returns the current line. The slice is owned by the iterator and
// overwritten by the next call to Next.
func (it *Records) Bytes() []byte {
	return it.line
}

// Text returns the current line as a string.
func (it *Records) Text() string {
	return string(it.line)
}

// Err returns the first non-exhaustion error encountered, if any.
func (it *Records) Err() error {
	return it.err
}

// Close releases the reader's resources. The cursor is dropped before the
// stream so no query state outlives the data it points into.
func (r *Reader) Close() error {
	r.cur = nil
	err := r.stream.Close()
	if r.tmpDir != "" {
		if rmErr := os.RemoveAll(r.tmpDir); err == nil {
			err = rmErr
		}
	}
	return err
}
