package spatialindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// LAXMagic is the 4-byte signature at the start of a .lax sidecar file.
const LAXMagic = "LASX"

// LAXVersionMagic tags the interval block: the LAStools-compatible
// cell-to-point-index table that every quadtree-aware LAX reader expects,
// regardless of whatever else a sidecar carries.
const LAXVersionMagic = "LASV"

// WriteLAX serializes idx as a .lax sidecar: laspp-go's own level/root/
// chunk-list section (the r-tree pre-filter's source data, not part of
// the LAStools format) followed by the LAStools-compatible "LASV"
// interval block. When compress is true the whole body is zstd-compressed.
func WriteLAX(w io.Writer, idx *Index, compress bool) error {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, int32(idx.level))
	binary.Write(&body, binary.LittleEndian, idx.root.MinX)
	binary.Write(&body, binary.LittleEndian, idx.root.MinY)
	binary.Write(&body, binary.LittleEndian, idx.root.MaxX)
	binary.Write(&body, binary.LittleEndian, idx.root.MaxY)
	binary.Write(&body, binary.LittleEndian, int32(len(idx.chunks)))
	for _, c := range idx.chunks {
		binary.Write(&body, binary.LittleEndian, int32(c.ChunkIndex))
		binary.Write(&body, binary.LittleEndian, c.PointSpan[0])
		binary.Write(&body, binary.LittleEndian, c.PointSpan[1])
		binary.Write(&body, binary.LittleEndian, c.GeoBounds.MinX)
		binary.Write(&body, binary.LittleEndian, c.GeoBounds.MinY)
		binary.Write(&body, binary.LittleEndian, c.GeoBounds.MaxX)
		binary.Write(&body, binary.LittleEndian, c.GeoBounds.MaxY)
	}

	cells := idx.Cells()
	body.WriteString(LAXVersionMagic)
	binary.Write(&body, binary.LittleEndian, int32(0)) // interval block version
	binary.Write(&body, binary.LittleEndian, int32(len(cells)))
	for _, c := range cells {
		binary.Write(&body, binary.LittleEndian, int32(c.CellIndex))
		binary.Write(&body, binary.LittleEndian, uint32(len(c.Intervals)))
		binary.Write(&body, binary.LittleEndian, c.NumberPoints)
		for _, iv := range c.Intervals {
			binary.Write(&body, binary.LittleEndian, iv.Start)
			binary.Write(&body, binary.LittleEndian, iv.End)
		}
	}

	if _, err := w.Write([]byte(LAXMagic)); err != nil {
		return err
	}
	var flags uint32
	if compress {
		flags |= 1
	}
	if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
		return err
	}

	payload := body.Bytes()
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("spatialindex: create zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
	}
	if err := binary.Write(w, binary.LittleEndian, int64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadLAX parses a .lax sidecar written by WriteLAX, including the
// "LASV" interval block — a sidecar missing it, or whose block ends before
// its declared cell count, is rejected rather than silently built without
// cells.
func ReadLAX(r io.Reader) (*Index, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("spatialindex: read magic: %w", err)
	}
	if string(magic[:]) != LAXMagic {
		return nil, fmt.Errorf("spatialindex: bad LAX magic %q", magic)
	}

	var flags uint32
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, err
	}
	var payloadLen int64
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, err
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	if flags&1 != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("spatialindex: create zstd decoder: %w", err)
		}
		payload, err = dec.DecodeAll(payload, nil)
		dec.Close()
		if err != nil {
			return nil, fmt.Errorf("spatialindex: decompress: %w", err)
		}
	}

	body := bytes.NewReader(payload)
	var level int32
	binary.Read(body, binary.LittleEndian, &level)
	var root Bounds
	binary.Read(body, binary.LittleEndian, &root.MinX)
	binary.Read(body, binary.LittleEndian, &root.MinY)
	binary.Read(body, binary.LittleEndian, &root.MaxX)
	binary.Read(body, binary.LittleEndian, &root.MaxY)
	var n int32
	binary.Read(body, binary.LittleEndian, &n)

	chunks := make([]ChunkEntry, n)
	for i := range chunks {
		var c ChunkEntry
		var chunkIndex int32
		binary.Read(body, binary.LittleEndian, &chunkIndex)
		binary.Read(body, binary.LittleEndian, &c.PointSpan[0])
		binary.Read(body, binary.LittleEndian, &c.PointSpan[1])
		binary.Read(body, binary.LittleEndian, &c.GeoBounds.MinX)
		binary.Read(body, binary.LittleEndian, &c.GeoBounds.MinY)
		binary.Read(body, binary.LittleEndian, &c.GeoBounds.MaxX)
		binary.Read(body, binary.LittleEndian, &c.GeoBounds.MaxY)
		c.ChunkIndex = int(chunkIndex)
		chunks[i] = c
	}

	var intervalMagic [4]byte
	if _, err := io.ReadFull(body, intervalMagic[:]); err != nil {
		return nil, fmt.Errorf("spatialindex: read interval block magic: %w", err)
	}
	if string(intervalMagic[:]) != LAXVersionMagic {
		return nil, fmt.Errorf("spatialindex: bad interval block magic %q", intervalMagic)
	}
	var intervalVersion int32
	if err := binary.Read(body, binary.LittleEndian, &intervalVersion); err != nil {
		return nil, err
	}
	var numCells int32
	if err := binary.Read(body, binary.LittleEndian, &numCells); err != nil {
		return nil, err
	}

	cells := make(map[CellIndex]*CellIntervals, numCells)
	for i := int32(0); i < numCells; i++ {
		var cellIndex int32
		var numIntervals, numPoints uint32
		if err := binary.Read(body, binary.LittleEndian, &cellIndex); err != nil {
			return nil, err
		}
		if err := binary.Read(body, binary.LittleEndian, &numIntervals); err != nil {
			return nil, err
		}
		if err := binary.Read(body, binary.LittleEndian, &numPoints); err != nil {
			return nil, err
		}
		ci := &CellIntervals{
			CellIndex:    CellIndex(cellIndex),
			NumberPoints: numPoints,
			Intervals:    make([]Interval, numIntervals),
		}
		for j := range ci.Intervals {
			if err := binary.Read(body, binary.LittleEndian, &ci.Intervals[j].Start); err != nil {
				return nil, err
			}
			if err := binary.Read(body, binary.LittleEndian, &ci.Intervals[j].End); err != nil {
				return nil, err
			}
		}
		cells[ci.CellIndex] = ci
	}

	return newIndex(root, int(level), chunks, cells), nil
}
