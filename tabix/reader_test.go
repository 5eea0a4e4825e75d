package tabix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFile(t *testing.T, name string) *Reader {
	t.Helper()
	r, err := Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpen_HeaderAndSeqnames(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	assert.Equal(t, []string{"#foo", "#bar"}, r.Header())
	assert.Equal(t, []string{"chr1", "chr2"}, r.Seqnames())

	id, err := r.SeqNameToID("chr1")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = r.SeqNameToID("chr2")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = r.SeqNameToID("chr3")
	var lookupErr *SequenceLookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "chr3", lookupErr.Name)
}

func TestFetchRead_Overlap(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	chr1, err := r.SeqNameToID("chr1")
	require.NoError(t, err)
	require.NoError(t, r.Fetch(chr1, 1000, 1003))

	line, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "chr1\t1001\t1002", string(line))

	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoMoreRecord)
	assert.True(t, IsEOF(err))
}

func TestFetchRead_NoOverlap(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	tests := []struct {
		name       string
		start, end int64
	}{
		{"region before record", 0, 1001},
		{"region after record", 1002, 1100},
		{"empty region", 1001, 1001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, r.Fetch(0, tt.start, tt.end))
			_, err := r.Read()
			assert.ErrorIs(t, err, ErrNoMoreRecord)
		})
	}
}

func TestRead_BeforeFetch(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	_, err := r.Read()
	assert.ErrorIs(t, err, ErrNoIter)
}

func TestFetch_ResetsAfterExhaustion(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	require.NoError(t, r.Fetch(0, 1000, 1003))
	_, err := r.Read()
	require.NoError(t, err)
	_, err = r.Read()
	require.ErrorIs(t, err, ErrNoMoreRecord)

	// a fresh fetch over another sequence resets the cursor
	chr2, err := r.SeqNameToID("chr2")
	require.NoError(t, err)
	require.NoError(t, r.Fetch(chr2, 0, 2000))

	line, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "chr2\t1000\t1002", string(line))

	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoMoreRecord)

	// and a region with no overlap stays empty
	require.NoError(t, r.Fetch(chr2, 1500, 1600))
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoMoreRecord)
}

func TestRecords_Iterator(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	require.NoError(t, r.Fetch(0, 1000, 1003))

	var lines []string
	it := r.Records()
	for it.Next() {
		lines = append(lines, it.Text())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"chr1\t1001\t1002"}, lines)

	// exhausted, not restartable
	assert.False(t, it.Next())
}

func TestFetch_UnknownTid(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	err := r.Fetch(5, 0, 100)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 5, fetchErr.Tid)

	// the failed fetch must not leave a stale cursor behind
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoIter)
}

func TestRead_TruncatedStream(t *testing.T) {
	// cut the data file after its first few blocks but keep the intact index,
	// so a fetch into the tail resolves to offsets past the end of the file
	data, err := os.ReadFile(filepath.Join("testdata", "big.bed.gz"))
	require.NoError(t, err)
	idx, err := os.ReadFile(filepath.Join("testdata", "big.bed.gz.tbi"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "big.bed.gz")
	require.NoError(t, os.WriteFile(path, data[:2000], 0o644))
	require.NoError(t, os.WriteFile(path+".tbi", idx, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	tid, err := r.SeqNameToID("chr1")
	require.NoError(t, err)

	require.NoError(t, r.Fetch(tid, 19000, 20000))
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrTruncated)
	assert.False(t, IsEOF(err), "a decode fault is not the normal end signal")
}

func TestHeader_ReturnsCopy(t *testing.T) {
	r := openTestFile(t, "test.bed.gz")

	lines := r.Header()
	require.Equal(t, []string{"#foo", "#bar"}, lines)
	lines[0] = "mutated"
	assert.Equal(t, []string{"#foo", "#bar"}, r.Header())
}

func TestOpen_MissingIndex(t *testing.T) {
	_, err := Open(filepath.Join("testdata", "noindex.bed.gz"))
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestOpen_CorruptIndex(t *testing.T) {
	_, err := Open(filepath.Join("testdata", "corrupt.bed.gz"))
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestVCFPreset_Spans(t *testing.T) {
	r := openTestFile(t, "example.vcf.gz")

	require.Len(t, r.Header(), 3)
	assert.Equal(t, "##fileformat=VCFv4.2", r.Header()[0])

	tid, err := r.SeqNameToID("20")
	require.NoError(t, err)

	// span of the first record is [999, 1003) from the REF allele length
	require.NoError(t, r.Fetch(tid, 999, 1000))
	line, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "20\t1000\t.\tACGT\tA\t.\tPASS\t.", string(line))

	require.NoError(t, r.Fetch(tid, 1003, 1005))
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoMoreRecord)

	// the symbolic deletion reaches to INFO END=2200
	require.NoError(t, r.Fetch(tid, 2100, 2150))
	line, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, "20\t2000\t.\tA\t<DEL>\t.\tPASS\tEND=2200", string(line))

	require.NoError(t, r.Fetch(tid, 2200, 2300))
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoMoreRecord)
}

func TestManyBlocks(t *testing.T) {
	r := openTestFile(t, "big.bed.gz")

	tid, err := r.SeqNameToID("chr1")
	require.NoError(t, err)

	require.NoError(t, r.Fetch(tid, 5000, 5051))
	var lines []string
	it := r.Records()
	for it.Next() {
		lines = append(lines, it.Text())
	}
	require.NoError(t, it.Err())
	require.Len(t, lines, 6)
	assert.Equal(t, "chr1\t5000\t5005", lines[0])
	assert.Equal(t, "chr1\t5050\t5055", lines[5])

	// a query across the 16 kb window boundary
	require.NoError(t, r.Fetch(tid, 16380, 16400))
	lines = lines[:0]
	it = r.Records()
	for it.Next() {
		lines = append(lines, it.Text())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"chr1\t16380\t16385", "chr1\t16390\t16395"}, lines)

	// and the full sweep sees every record exactly once
	require.NoError(t, r.Fetch(tid, 0, 100000))
	count := 0
	it = r.Records()
	for it.Next() {
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 2000, count)
}
