package laspp

import (
	"io"
	"math"

	"github.com/laspp/laspp-go/internal/chunktable"
	"github.com/laspp/laspp-go/internal/lasheader"
	"github.com/laspp/laspp-go/internal/lasvlr"
	"github.com/laspp/laspp-go/internal/spatialindex"
)

// DefaultChunkSize is the point count laspp-go targets per chunk when the
// caller doesn't request one, matching the common LAZ default.
const DefaultChunkSize = 50000

// WriterOptions configures a Writer. Zero values pick sensible defaults:
// scale factors of 0.001, no offset, DefaultChunkSize, and an uncompressed
// point stream.
type WriterOptions struct {
	ScaleX, ScaleY, ScaleZ float64
	OffsetX, OffsetY, OffsetZ float64
	SystemIdentifier   string
	GeneratingSoftware string
	ChunkSize          uint32
	Compressed         bool
	VersionMinor       uint8 // 2, 3, or 4; defaults to 4
}

// DefaultWriterOptions returns the options a Writer uses for any field left
// zero-valued by the caller.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		ScaleX: 0.001, ScaleY: 0.001, ScaleZ: 0.001,
		SystemIdentifier:   "laspp-go",
		GeneratingSoftware: "laspp-go",
		ChunkSize:          DefaultChunkSize,
		VersionMinor:       4,
	}
}

func mergeOptions(opts WriterOptions) WriterOptions {
	def := DefaultWriterOptions()
	if opts.ScaleX == 0 {
		opts.ScaleX = def.ScaleX
	}
	if opts.ScaleY == 0 {
		opts.ScaleY = def.ScaleY
	}
	if opts.ScaleZ == 0 {
		opts.ScaleZ = def.ScaleZ
	}
	if opts.SystemIdentifier == "" {
		opts.SystemIdentifier = def.SystemIdentifier
	}
	if opts.GeneratingSoftware == "" {
		opts.GeneratingSoftware = def.GeneratingSoftware
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.VersionMinor == 0 {
		opts.VersionMinor = def.VersionMinor
	}
	return opts
}

// writerState names the stage of the VLRS -> POINTS -> EVLRS -> CLOSED
// sequence a Writer is in; the chunk table and header are written by Close.
// Calls out of order return a StateError rather than producing a malformed
// file.
type writerState int

const (
	stateVLRs writerState = iota
	statePoints
	stateEVLRs
	stateClosed
)

func (s writerState) String() string {
	switch s {
	case stateVLRs:
		return "VLRS"
	case statePoints:
		return "POINTS"
	case stateEVLRs:
		return "EVLRS"
	default:
		return "CLOSED"
	}
}

// Writer streams a LAS/LAZ file to w: variable-length records first, then
// point chunks, then extended variable-length records, finishing with the
// chunk table and a header patched with final bounds and counts.
//
// Writer buffers the point-data and chunk-table sections in memory before
// Close flushes them, since the header's point counts and bounding box
// aren't known until every point has been written.
type Writer struct {
	w      io.Writer
	opts   WriterOptions
	format Format
	state  writerState

	vlrs  []*lasvlr.VariableLengthRecord
	evlrs []*lasvlr.ExtendedVariableLengthRecord

	pointData []byte // raw, uncompressed, or concatenated compressed chunk payloads
	table     *chunktable.Table

	pending      []Point
	numPoints    uint64
	returnCounts [15]uint64
	haveBounds   bool
	minX, minY, minZ float64
	maxX, maxY, maxZ float64

	chunkEntries []spatialindex.ChunkEntry
	pointXY      []spatialindex.Point2D // accumulated only for WriteLASToolsSpatialIndex's quadtree build
}

// NewWriter returns a Writer for point format, applying opts (merged with
// DefaultWriterOptions for any zero fields).
func NewWriter(w io.Writer, format Format, opts WriterOptions) (*Writer, error) {
	if _, err := format.RecordLength(); err != nil {
		return nil, err
	}
	return &Writer{
		w:      w,
		opts:   mergeOptions(opts),
		format: format,
		state:  stateVLRs,
	}, nil
}

// WriteVLR appends a variable-length record. Valid only in state VLRS,
// before the first call to WritePoints.
func (wr *Writer) WriteVLR(v *lasvlr.VariableLengthRecord) error {
	if wr.state != stateVLRs {
		return &StateError{Operation: "WriteVLR", State: wr.state.String()}
	}
	wr.vlrs = append(wr.vlrs, v)
	return nil
}

// WriteEVLR appends an extended variable-length record. It ends the VLRS
// and POINTS stages (EVLRs physically follow the point stream), so no VLR
// or point can be written after it, and it is valid only for VersionMinor
// 4+ — the 1.0-1.3 header has no StartOfFirstEVLR field to point a reader
// at them.
func (wr *Writer) WriteEVLR(v *lasvlr.ExtendedVariableLengthRecord) error {
	if wr.opts.VersionMinor < 4 {
		return &UnsupportedFeatureError{Feature: "extended variable-length records before LAS 1.4"}
	}
	if wr.state == stateVLRs {
		wr.state = stateEVLRs
	}
	if wr.state != statePoints && wr.state != stateEVLRs {
		return &StateError{Operation: "WriteEVLR", State: wr.state.String()}
	}
	wr.state = stateEVLRs
	wr.evlrs = append(wr.evlrs, v)
	return nil
}

// WritePoints appends points to the file, flushing complete chunks of
// ChunkSize as they fill and leaving a partial remainder buffered for the
// next call (or for Close, which flushes whatever remains as a final
// short chunk).
func (wr *Writer) WritePoints(points []Point) error {
	if wr.state != stateVLRs && wr.state != statePoints {
		return &StateError{Operation: "WritePoints", State: wr.state.String()}
	}
	wr.state = statePoints
	if wr.table == nil {
		wr.table = chunktable.New()
	}

	wr.pending = append(wr.pending, points...)
	for _, p := range points {
		wr.accumulateStats(p)
	}

	for uint32(len(wr.pending)) >= wr.opts.ChunkSize {
		if err := wr.flushChunk(wr.pending[:wr.opts.ChunkSize]); err != nil {
			return err
		}
		wr.pending = wr.pending[wr.opts.ChunkSize:]
	}
	return nil
}

func (wr *Writer) accumulateStats(p Point) {
	x := float64(p.X)*wr.opts.ScaleX + wr.opts.OffsetX
	y := float64(p.Y)*wr.opts.ScaleY + wr.opts.OffsetY
	z := float64(p.Z)*wr.opts.ScaleZ + wr.opts.OffsetZ
	if !wr.haveBounds {
		wr.minX, wr.maxX = x, x
		wr.minY, wr.maxY = y, y
		wr.minZ, wr.maxZ = z, z
		wr.haveBounds = true
	} else {
		wr.minX, wr.maxX = math.Min(wr.minX, x), math.Max(wr.maxX, x)
		wr.minY, wr.maxY = math.Min(wr.minY, y), math.Max(wr.maxY, y)
		wr.minZ, wr.maxZ = math.Min(wr.minZ, z), math.Max(wr.maxZ, z)
	}
	wr.pointXY = append(wr.pointXY, spatialindex.Point2D{X: x, Y: y})
	wr.numPoints++
	ret := int(p.ReturnNumber)
	if ret >= 1 && ret <= 15 {
		wr.returnCounts[ret-1]++
	}
}

func (wr *Writer) flushChunk(points []Point) error {
	if len(points) == 0 {
		return nil
	}
	startIdx := wr.numPoints - uint64(len(wr.pending))
	chunkBounds := wr.chunkBounds(points)

	if wr.opts.Compressed {
		encoded, err := EncodeChunk(wr.format, points)
		if err != nil {
			return err
		}
		wr.table.AddChunk(uint32(len(points)), uint32(len(encoded)))
		wr.pointData = append(wr.pointData, encoded...)
	} else {
		recLen, err := wr.format.RecordLength()
		if err != nil {
			return err
		}
		for _, p := range points {
			wr.pointData = append(wr.pointData, marshalPointRaw(p, wr.format)...)
		}
		wr.table.AddChunk(uint32(len(points)), uint32(len(points)*recLen))
	}

	wr.chunkEntries = append(wr.chunkEntries, spatialindex.ChunkEntry{
		ChunkIndex: wr.table.NumChunks() - 1,
		PointSpan:  [2]uint64{startIdx, startIdx + uint64(len(points))},
		GeoBounds:  chunkBounds,
	})
	return nil
}

func (wr *Writer) chunkBounds(points []Point) spatialindex.Bounds {
	b := spatialindex.Bounds{}
	for i, p := range points {
		x := float64(p.X)*wr.opts.ScaleX + wr.opts.OffsetX
		y := float64(p.Y)*wr.opts.ScaleY + wr.opts.OffsetY
		if i == 0 {
			b.MinX, b.MaxX = x, x
			b.MinY, b.MaxY = y, y
			continue
		}
		b.MinX, b.MaxX = math.Min(b.MinX, x), math.Max(b.MaxX, x)
		b.MinY, b.MaxY = math.Min(b.MinY, y), math.Max(b.MaxY, y)
	}
	return b
}

// WriteLASToolsSpatialIndex serializes a quadtree spatial index covering
// the chunks written so far and appends it as a LAStools EVLR. Call after
// the last WritePoints call and before Close.
func (wr *Writer) WriteLASToolsSpatialIndex() error {
	if len(wr.chunkEntries) == 0 {
		return &StateError{Operation: "WriteLASToolsSpatialIndex", State: "no chunks written yet"}
	}
	root := spatialindex.Bounds{MinX: wr.minX, MinY: wr.minY, MaxX: wr.maxX, MaxY: wr.maxY}
	idx := spatialindex.Build(root, wr.chunkEntries, wr.pointXY)

	var buf laxBuffer
	if err := spatialindex.WriteLAX(&buf, idx, false); err != nil {
		return err
	}
	return wr.WriteEVLR(&lasvlr.ExtendedVariableLengthRecord{
		UserID:      lastoolsUserID,
		RecordID:    lastoolsSpatialIndexRecord,
		Description: "laspp-go quadtree spatial index",
		Data:        buf.Bytes(),
	})
}

// laxBuffer is a minimal io.Writer accumulating bytes, avoiding an import
// of bytes.Buffer purely for this one call site's convenience elsewhere.
type laxBuffer struct {
	data []byte
}

func (b *laxBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *laxBuffer) Bytes() []byte { return b.data }

// CopyFromReader streams every point and VLR/EVLR from reader into wr,
// optionally attaching a freshly built spatial index. A convenience for
// format conversion and recompression (las2las-style round trips).
func (wr *Writer) CopyFromReader(reader *Reader, addSpatialIndex bool) error {
	for _, v := range reader.VLRHeaders() {
		if v.IsLAZVLR() {
			continue // Close rebuilds this from wr.format/wr.opts, not carried over verbatim
		}
		if err := wr.WriteVLR(v); err != nil {
			return err
		}
	}
	for i := 0; i < reader.NumChunks(); i++ {
		points, err := reader.ReadChunk(i)
		if err != nil {
			return err
		}
		if err := wr.WritePoints(points); err != nil {
			return err
		}
	}
	for _, v := range reader.EVLRHeaders() {
		if v.UserID == lastoolsUserID && v.RecordID == lastoolsSpatialIndexRecord {
			continue // rebuilt below, not carried over verbatim
		}
		if err := wr.WriteEVLR(v); err != nil {
			return err
		}
	}
	if addSpatialIndex {
		return wr.WriteLASToolsSpatialIndex()
	}
	return nil
}

// Close flushes any buffered partial chunk, then writes the header (patched
// with the final point counts, bounding box and offsets), the VLR
// directory, the point data (for a compressed file: the 8-byte chunk-table
// offset, the chunk payloads and the chunk table), and finally the EVLR
// directory. Close must be the last call made on wr.
func (wr *Writer) Close() error {
	if wr.state == stateClosed {
		return &StateError{Operation: "Close", State: wr.state.String()}
	}
	if len(wr.pending) > 0 {
		if err := wr.flushChunk(wr.pending); err != nil {
			return err
		}
		wr.pending = nil
	}
	if wr.table == nil {
		wr.table = chunktable.New()
	}

	if wr.opts.Compressed {
		wr.vlrs = append(wr.vlrs, wr.buildLAZSpecialVLR())
	}

	header := wr.buildHeader()
	headerBytes := header.Marshal()

	vlrBytes := marshalVLRs(wr.vlrs)
	header.OffsetToPointData = uint32(len(headerBytes) + len(vlrBytes))

	var chunkTableOffsetField [8]byte
	var body []byte
	if wr.opts.Compressed {
		tableHeader := chunktable.Header{Version: 0, NumberOfChunks: uint32(wr.table.NumChunks())}
		tableBytes := append(tableHeader.Marshal(), wr.table.Encode()...)
		chunkTableOffset := uint64(header.OffsetToPointData) + uint64(len(chunkTableOffsetField)) + uint64(len(wr.pointData))
		putUint64(chunkTableOffsetField[:], chunkTableOffset)
		body = append(append([]byte{}, chunkTableOffsetField[:]...), wr.pointData...)
		body = append(body, tableBytes...)
	} else {
		body = wr.pointData
	}

	evlrBytes := marshalEVLRs(wr.evlrs)
	if len(wr.evlrs) > 0 {
		header.StartOfFirstEVLR = uint64(len(headerBytes) + len(vlrBytes) + len(body))
		header.NumberOfEVLRs = uint32(len(wr.evlrs))
	}
	headerBytes = header.Marshal() // re-marshal with final offsets

	if _, err := wr.w.Write(headerBytes); err != nil {
		return &IOError{Op: "write header", Err: err}
	}
	if _, err := wr.w.Write(vlrBytes); err != nil {
		return &IOError{Op: "write VLRs", Err: err}
	}
	if _, err := wr.w.Write(body); err != nil {
		return &IOError{Op: "write point data", Err: err}
	}
	if _, err := wr.w.Write(evlrBytes); err != nil {
		return &IOError{Op: "write EVLRs", Err: err}
	}
	wr.state = stateClosed
	return nil
}

// buildLAZSpecialVLR constructs the "laszip encoded" VLR a LAZ reader
// looks up before touching the chunk table, describing the item stream
// and chunking scheme this writer actually used.
func (wr *Writer) buildLAZSpecialVLR() *lasvlr.VariableLengthRecord {
	special := &lasvlr.SpecialVLRPt1{
		VersionMajor: 2,
		VersionMinor: 2,
		ChunkSize:    wr.opts.ChunkSize,
	}
	if wr.format.IsExtended() {
		special.Compressor = lasvlr.CompressorLayeredChunked
		special.AddItemRecord(lasvlr.ItemRecord{Type: lasvlr.ItemPoint14, Count: 1, Version: 4})
		if wr.format.HasColor() {
			special.AddItemRecord(lasvlr.ItemRecord{Type: lasvlr.ItemRGB14, Count: 1, Version: 4})
		}
	} else {
		special.Compressor = lasvlr.CompressorPointwiseChunked
		special.AddItemRecord(lasvlr.ItemRecord{Type: lasvlr.ItemPoint10, Count: 1, Version: 2})
		if wr.format.HasGPSTime() {
			special.AddItemRecord(lasvlr.ItemRecord{Type: lasvlr.ItemGPSTime11, Count: 1, Version: 2})
		}
		if wr.format.HasColor() {
			special.AddItemRecord(lasvlr.ItemRecord{Type: lasvlr.ItemRGB12, Count: 1, Version: 2})
		}
	}
	return &lasvlr.VariableLengthRecord{
		UserID:      "laszip encoded",
		RecordID:    22204,
		Description: "laspp-go LAZ compression parameters",
		Data:        special.Marshal(),
	}
}

func (wr *Writer) buildHeader() *lasheader.Header {
	h := &lasheader.Header{
		VersionMajor:       1,
		VersionMinor:       wr.opts.VersionMinor,
		SystemIdentifier:   wr.opts.SystemIdentifier,
		GeneratingSoftware: wr.opts.GeneratingSoftware,
		NumberOfVLRs:       uint32(len(wr.vlrs)),
		PointDataFormat:    uint8(wr.format),
		ProjectID:          lasvlr.NewProjectID(),
		GlobalEncoding:     lasheader.GlobalEncodingGPSTimeStandard,
	}
	if wr.opts.Compressed {
		h.PointDataFormat |= CompressedBit
	}
	recLen, _ := wr.format.RecordLength()
	h.PointDataRecordLength = uint16(recLen)
	h.XScaleFactor, h.YScaleFactor, h.ZScaleFactor = wr.opts.ScaleX, wr.opts.ScaleY, wr.opts.ScaleZ
	h.XOffset, h.YOffset, h.ZOffset = wr.opts.OffsetX, wr.opts.OffsetY, wr.opts.OffsetZ
	h.MaxX, h.MinX, h.MaxY, h.MinY, h.MaxZ, h.MinZ = wr.maxX, wr.minX, wr.maxY, wr.minY, wr.maxZ, wr.minZ
	h.LegacyNumberOfPointRecords = uint32(wr.numPoints)
	h.NumberOfPointRecords = wr.numPoints
	for i := 0; i < 5; i++ {
		h.LegacyNumberOfPointsByReturn[i] = uint32(wr.returnCounts[i])
	}
	h.NumberOfPointsByReturn = wr.returnCounts

	headerSize, _ := headerSizeForVersion(wr.opts.VersionMinor)
	h.HeaderSize = uint16(headerSize)
	return h
}

func headerSizeForVersion(minor uint8) (int, error) {
	switch {
	case minor <= 2:
		return lasheader.Size1_2, nil
	case minor == 3:
		return lasheader.Size1_3, nil
	case minor == 4:
		return lasheader.Size1_4, nil
	default:
		return 0, &UnsupportedFeatureError{Feature: "LAS version 1." + string(rune('0'+minor))}
	}
}

func marshalVLRs(vlrs []*lasvlr.VariableLengthRecord) []byte {
	var out []byte
	for _, v := range vlrs {
		out = append(out, v.Marshal()...)
	}
	return out
}

func marshalEVLRs(evlrs []*lasvlr.ExtendedVariableLengthRecord) []byte {
	var out []byte
	for _, v := range evlrs {
		out = append(out, v.Marshal()...)
	}
	return out
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}
