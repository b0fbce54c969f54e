package laspp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/laspp/laspp-go/internal/chunktable"
	"github.com/laspp/laspp-go/internal/lasheader"
	"github.com/laspp/laspp-go/internal/lasvlr"
	"github.com/laspp/laspp-go/internal/spatialindex"
	"github.com/laspp/laspp-go/internal/workerpool"
)

// lastoolsUserID / lastoolsSpatialIndexRecordID name the well-known EVLR
// that carries a LAStools-compatible quadtree spatial index alongside the
// point data, as an alternative to a ".lax" sidecar.
const (
	lastoolsUserID             = "LAStools"
	lastoolsSpatialIndexRecord = 0
)

// Reader gives read access to a LAS/LAZ file already fully loaded into
// memory: the header and VLR/EVLR directories are parsed eagerly at Open,
// and chunks are decompressed on demand by ReadChunk/ReadChunks.
//
// LASPP_DISABLE_MMAP governs nothing beyond documentation here — both
// paths load the whole file into memory, since no repository in this
// module's lineage pulls in a memory-mapping library to honor the
// distinction faithfully (see DESIGN.md).
type Reader struct {
	data []byte
	path string

	header     *lasheader.Header
	vlrs       []*lasvlr.VariableLengthRecord
	evlrs      []*lasvlr.ExtendedVariableLengthRecord
	format     Format
	compressed bool

	laz           *lasvlr.SpecialVLRPt1
	table         *chunktable.Table
	chunkDataBase int64 // file offset chunktable.Table.ChunkOffset(i) is relative to

	spatialIndex     *spatialindex.Index
	spatialIndexTried bool
}

// Open reads path fully into memory and parses its header and VLR/EVLR
// directories.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	r.path = path
	return r, nil
}

// OpenBytes parses an in-memory LAS/LAZ byte buffer, for callers that
// already hold the file's contents (tests, or data fetched from storage
// other than a local path).
func OpenBytes(data []byte) (*Reader, error) {
	return newReader(data)
}

func newReader(data []byte) (*Reader, error) {
	header, err := lasheader.Unmarshal(data)
	if err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if len(data) < 105 {
		return nil, &FormatError{Reason: "buffer too small for point format byte"}
	}

	r := &Reader{
		data:       data,
		header:     header,
		compressed: data[104]&CompressedBit != 0,
		format:     Format(header.PointDataFormat),
	}

	if err := r.parseVLRs(); err != nil {
		return nil, err
	}
	if err := r.parseEVLRs(); err != nil {
		return nil, err
	}
	if r.compressed {
		if err := r.parseLAZVLR(); err != nil {
			return nil, err
		}
		if err := r.parseChunkTable(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) parseVLRs() error {
	offset := int64(r.header.HeaderSize)
	for i := uint32(0); i < r.header.NumberOfVLRs; i++ {
		if offset >= int64(len(r.data)) {
			return &FormatError{Reason: "truncated VLR directory", Offset: offset}
		}
		v, n, err := lasvlr.UnmarshalVLR(r.data[offset:], offset)
		if err != nil {
			return &FormatError{Reason: err.Error(), Offset: offset}
		}
		r.vlrs = append(r.vlrs, v)
		offset += int64(n)
	}
	return nil
}

func (r *Reader) parseEVLRs() error {
	if r.header.VersionMinor < 4 || r.header.NumberOfEVLRs == 0 {
		return nil
	}
	offset := int64(r.header.StartOfFirstEVLR)
	for i := uint32(0); i < r.header.NumberOfEVLRs; i++ {
		if offset >= int64(len(r.data)) {
			return &FormatError{Reason: "truncated EVLR directory", Offset: offset}
		}
		v, n, err := lasvlr.UnmarshalEVLR(r.data[offset:], offset)
		if err != nil {
			return &FormatError{Reason: err.Error(), Offset: offset}
		}
		r.evlrs = append(r.evlrs, v)
		offset += int64(n)
	}
	return nil
}

func (r *Reader) parseLAZVLR() error {
	for _, v := range r.vlrs {
		if v.IsLAZVLR() {
			laz, err := lasvlr.UnmarshalSpecialVLRPt1(v.Data)
			if err != nil {
				return &FormatError{Reason: err.Error()}
			}
			r.laz = laz
			return nil
		}
	}
	return &UnsupportedFeatureError{Feature: "LAZ-compressed point format with no LAZ special VLR present"}
}

func (r *Reader) parseChunkTable() error {
	start := int64(r.header.OffsetToPointData)
	if start+8 > int64(len(r.data)) {
		return &FormatError{Reason: "truncated chunk-table offset pointer", Offset: start}
	}
	chunkTableOffset := int64(binary.LittleEndian.Uint64(r.data[start:]))
	r.chunkDataBase = start
	if chunkTableOffset < 0 || chunkTableOffset+chunktable.HeaderSize > int64(len(r.data)) {
		return &UnsupportedFeatureError{Feature: "chunk-table offset of -1 (streamed, not yet finalized) on read"}
	}

	tableHeader, err := chunktable.UnmarshalHeader(r.data[chunkTableOffset:])
	if err != nil {
		return &FormatError{Reason: err.Error(), Offset: chunkTableOffset}
	}

	tableEnd := int64(len(r.data))
	if r.header.VersionMinor >= 4 && r.header.NumberOfEVLRs > 0 {
		tableEnd = int64(r.header.StartOfFirstEVLR)
	}
	body := r.data[chunkTableOffset+chunktable.HeaderSize : tableEnd]
	table, err := chunktable.Decode(body, int(tableHeader.NumberOfChunks))
	if err != nil {
		return &FormatError{Reason: err.Error(), Offset: chunkTableOffset}
	}
	r.table = table
	return nil
}

// Header returns the parsed LAS public header.
func (r *Reader) Header() *lasheader.Header { return r.header }

// VLRHeaders returns every variable-length record read from the file.
func (r *Reader) VLRHeaders() []*lasvlr.VariableLengthRecord { return r.vlrs }

// EVLRHeaders returns every extended variable-length record read from the
// file.
func (r *Reader) EVLRHeaders() []*lasvlr.ExtendedVariableLengthRecord { return r.evlrs }

// NumPoints returns the file's total point count.
func (r *Reader) NumPoints() uint64 { return r.header.PointCount() }

// NumChunks returns the number of chunks in a compressed file, or 1 for an
// uncompressed file (the entire point stream is one notional chunk).
func (r *Reader) NumChunks() int {
	if !r.compressed {
		return 1
	}
	return r.table.NumChunks()
}

// PointsPerChunk returns the constant per-chunk point count, if every chunk
// but possibly the last shares one.
func (r *Reader) PointsPerChunk() (uint32, bool) {
	if !r.compressed {
		return uint32(r.NumPoints()), true
	}
	return r.table.PointsPerChunk()
}

// ReadVLRData returns v's opaque payload.
func (r *Reader) ReadVLRData(v *lasvlr.VariableLengthRecord) []byte { return v.Data }

// ReadEVLRData returns v's opaque payload.
func (r *Reader) ReadEVLRData(v *lasvlr.ExtendedVariableLengthRecord) []byte { return v.Data }

// ReadChunk decompresses chunk i and returns its points.
func (r *Reader) ReadChunk(i int) ([]Point, error) {
	if !r.compressed {
		if i != 0 {
			return nil, &StateError{Operation: "ReadChunk", State: "uncompressed file has exactly one chunk"}
		}
		return r.readUncompressedAll()
	}
	if i < 0 || i >= r.table.NumChunks() {
		return nil, &FormatError{Reason: fmt.Sprintf("chunk index %d out of range [0,%d)", i, r.table.NumChunks())}
	}
	entry := r.table.Entry(i)
	start := r.chunkDataBase + int64(r.table.ChunkOffset(i))
	end := start + int64(entry.CompressedSize)
	if end > int64(len(r.data)) {
		return nil, &FormatError{Reason: "chunk payload exceeds file bounds", Offset: start}
	}
	return DecodeChunk(r.format, r.data[start:end], int(entry.PointCount))
}

func (r *Reader) readUncompressedAll() ([]Point, error) {
	recLen, err := r.format.RecordLength()
	if err != nil {
		return nil, err
	}
	n := int(r.NumPoints())
	start := int64(r.header.OffsetToPointData)
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		off := start + int64(i*recLen)
		if off+int64(recLen) > int64(len(r.data)) {
			return nil, &FormatError{Reason: "truncated point data", Offset: off}
		}
		points[i] = unmarshalPointRaw(r.data[off:off+int64(recLen)], r.format)
	}
	return points, nil
}

// ReadChunks decompresses chunks [start, end) and returns their points
// concatenated in chunk order, dispatching the work across the worker
// pool. Output placement is by chunk index, not completion order.
func (r *Reader) ReadChunks(start, end int) ([]Point, error) {
	if !r.compressed {
		if start != 0 || end != 1 {
			return nil, &StateError{Operation: "ReadChunks", State: "uncompressed file has exactly one chunk"}
		}
		return r.readUncompressedAll()
	}
	if start < 0 || end > r.table.NumChunks() || start > end {
		return nil, &FormatError{Reason: fmt.Sprintf("chunk range [%d,%d) out of bounds", start, end)}
	}
	jobs := make([]workerpool.Job, end-start)
	for idx := start; idx < end; idx++ {
		i := idx
		jobs[i-start] = func() (any, error) { return r.ReadChunk(i) }
	}
	results, errs := workerpool.Run(jobs)
	var all []Point
	for i, errv := range errs {
		if errv != nil {
			return nil, errv
		}
		all = append(all, results[i].([]Point)...)
	}
	return all, nil
}

// ChunksOverlapping returns the indices of chunks whose bounding boxes
// intersect b, using the spatial index if one is present (falling back to
// "every chunk" when none is available).
func (r *Reader) ChunksOverlapping(b spatialindex.Bounds) ([]int, error) {
	idx, err := r.LASToolsSpatialIndex()
	if err != nil {
		return nil, err
	}
	if idx == nil {
		indices := make([]int, r.NumChunks())
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	entries := idx.ChunksOverlapping(b)
	indices := make([]int, len(entries))
	for i, e := range entries {
		indices[i] = e.ChunkIndex
	}
	return indices, nil
}

// HasLASToolsSpatialIndex reports whether a spatial index is available,
// either as an EVLR or a ".lax" sidecar sharing the file's stem.
func (r *Reader) HasLASToolsSpatialIndex() bool {
	idx, _ := r.LASToolsSpatialIndex()
	return idx != nil
}

// LASToolsSpatialIndex resolves and parses the file's spatial index, first
// checking for a LAStools EVLR and falling back to a ".lax" sidecar file
// sharing the same path stem. Returns (nil, nil) if neither is present.
func (r *Reader) LASToolsSpatialIndex() (*spatialindex.Index, error) {
	if r.spatialIndexTried {
		return r.spatialIndex, nil
	}
	r.spatialIndexTried = true

	for _, v := range r.evlrs {
		if v.UserID == lastoolsUserID && v.RecordID == lastoolsSpatialIndexRecord {
			idx, err := spatialindex.ReadLAX(bytes.NewReader(v.Data))
			if err != nil {
				return nil, &FormatError{Reason: err.Error()}
			}
			r.spatialIndex = idx
			return idx, nil
		}
	}

	lowerPath := strings.ToLower(r.path)
	if r.path != "" && (strings.HasSuffix(lowerPath, ".las") || strings.HasSuffix(lowerPath, ".laz")) {
		laxPath := r.path[:len(r.path)-4] + ".lax"
		f, err := os.Open(laxPath)
		if err == nil {
			defer f.Close()
			idx, err := spatialindex.ReadLAX(f)
			if err != nil {
				return nil, &FormatError{Reason: err.Error()}
			}
			r.spatialIndex = idx
			return idx, nil
		}
	}
	return nil, nil
}

// MathWKT returns the OGC Math Transform WKT VLR's payload, if present.
func (r *Reader) MathWKT() (string, bool) {
	return r.projectionVLRString(2111)
}

// CoordinateWKT returns the OGC Coordinate System WKT VLR's payload, if
// present.
func (r *Reader) CoordinateWKT() (string, bool) {
	return r.projectionVLRString(2112)
}

// GeoKeys returns the raw GeoKeyDirectoryTag VLR payload, if present.
func (r *Reader) GeoKeys() ([]byte, bool) {
	for _, v := range r.vlrs {
		if v.UserID == "LASF_Projection" && v.RecordID == 34735 {
			return v.Data, true
		}
	}
	return nil, false
}

func (r *Reader) projectionVLRString(recordID uint16) (string, bool) {
	for _, v := range r.vlrs {
		if v.UserID == "LASF_Projection" && v.RecordID == recordID {
			return strings.TrimRight(string(v.Data), "\x00"), true
		}
	}
	return "", false
}
