// Package spatialindex implements the LAStools-compatible quadtree spatial
// index used by LAX sidecar files: a flat, level-offset cell numbering
// scheme over a point cloud's bounding box, plus an r-tree pre-filter
// over chunk bounds for fast "which chunks overlap this query" lookups.
package spatialindex

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/stat"
)

// DefaultTileSize is the target cell width (in point coordinate units)
// Build aims for when choosing a quadtree depth, matching LAStools' own
// default.
const DefaultTileSize = 50.0

// Bounds is an axis-aligned 2D bounding box in point coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether b and o overlap (touching edges count).
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: min(b.MinX, o.MinX), MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX), MaxY: max(b.MaxY, o.MaxY),
	}
}

// Point2D is a point's planar position, the unit Build buckets into
// quadtree cells. Z and every other field are irrelevant to the index.
type Point2D struct {
	X, Y float64
}

// CellIndex is a flat quadtree cell identifier: levelOffset(level) + the
// cell's position along a level-order 2L-bit Morton-style path, matching
// the LAStools LAX numbering so an index built here can be read by
// LAStools-compatible consumers.
type CellIndex int32

// levelOffset returns the flat index of the first cell at the given
// quadtree depth: level 0 has 1 cell, level L has 4^L cells, and cells are
// numbered contiguously level by level.
func levelOffset(level int) uint32 {
	var off uint32
	for l := 0; l < level; l++ {
		off += uint32(1) << uint(2*l)
	}
	return off
}

// CellAt returns the flat cell index containing (x, y) at the given
// quadtree level, within the root bounds.
func CellAt(root Bounds, level int, x, y float64) CellIndex {
	side := uint32(1) << uint(level)
	width := root.MaxX - root.MinX
	height := root.MaxY - root.MinY
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	col := uint32(float64(side) * (x - root.MinX) / width)
	row := uint32(float64(side) * (y - root.MinY) / height)
	if col >= side {
		col = side - 1
	}
	if row >= side {
		row = side - 1
	}

	var path uint32
	for b := 0; b < level; b++ {
		bit := uint32(1) << uint(b)
		var quadrant uint32
		if col&bit != 0 {
			quadrant |= 1
		}
		if row&bit != 0 {
			quadrant |= 2
		}
		path |= quadrant << uint(2*b)
	}
	return CellIndex(levelOffset(level) + path)
}

// CellBounds returns the bounding box of a cell, the inverse of CellAt.
// level must be the depth cell was produced at by CellAt or CellLevel.
func CellBounds(root Bounds, level int, cell CellIndex) Bounds {
	off := levelOffset(level)
	path := uint32(cell) - off
	var col, row uint32
	for b := 0; b < level; b++ {
		quadrant := (path >> uint(2*b)) & 0x3
		if quadrant&1 != 0 {
			col |= uint32(1) << uint(b)
		}
		if quadrant&2 != 0 {
			row |= uint32(1) << uint(b)
		}
	}
	side := float64(int(1) << uint(level))
	width := (root.MaxX - root.MinX) / side
	height := (root.MaxY - root.MinY) / side
	return Bounds{
		MinX: root.MinX + float64(col)*width,
		MaxX: root.MinX + float64(col+1)*width,
		MinY: root.MinY + float64(row)*height,
		MaxY: root.MinY + float64(row+1)*height,
	}
}

// CellLevel determines which quadtree depth a flat cell index belongs to,
// by walking the level-offset ranges from deepest to shallowest. The
// inverse of levelOffset's contribution to CellAt.
func CellLevel(maxLevel int, cell CellIndex) int {
	if cell == 0 {
		return 0
	}
	for level := maxLevel; level > 0; level-- {
		if uint32(cell) >= levelOffset(level) {
			return level
		}
	}
	return 0
}

// Interval is an inclusive range of global point indices.
type Interval struct {
	Start, End uint32
}

// CellIntervals is a populated quadtree cell: the point count it covers
// and the sorted, non-overlapping intervals of global point indices that
// fall inside it. A single dense cell yields one interval.
type CellIntervals struct {
	CellIndex    CellIndex
	NumberPoints uint32
	Intervals    []Interval
}

// ChunkEntry records which chunk owns a contiguous point-index span and
// the bounding box those points occupy, the unit the r-tree pre-filter
// indexes. This accelerator is additive to the quadtree's cell/interval
// structure, not a replacement for it: LAStools-compatible readers only
// ever see the cell table, while laspp-go's own Reader.ChunksOverlapping
// uses this r-tree to reject whole chunks before even consulting cells.
type ChunkEntry struct {
	ChunkIndex int
	PointSpan  [2]uint64 // [start, end) decompressed point indices
	GeoBounds  Bounds
}

// Bounds implements rtreego.Spatial.
func (e ChunkEntry) Bounds() rtreego.Rect {
	point := rtreego.Point{e.GeoBounds.MinX, e.GeoBounds.MinY}
	lengths := []float64{
		maxPositive(e.GeoBounds.MaxX - e.GeoBounds.MinX),
		maxPositive(e.GeoBounds.MaxY - e.GeoBounds.MinY),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

func maxPositive(v float64) float64 {
	if v <= 0 {
		return 1e-9
	}
	return v
}

// Index is a built spatial index over a file's points and chunks: a
// quadtree cell-to-point-interval table for LAX-compatible serialization,
// plus an r-tree over chunk bounds for fast ChunksOverlapping queries.
type Index struct {
	root   Bounds
	level  int
	chunks []ChunkEntry
	cells  map[CellIndex]*CellIntervals
	rtree  *rtreego.Rtree
}

// Build constructs an index over points and chunks: it chooses a quadtree
// depth from root's extent and DefaultTileSize, buckets every point into
// its leaf cell, collapses each cell's sorted point indices into maximal
// consecutive intervals, and layers an r-tree over the chunk bounding
// boxes for the separate chunk-level pre-filter.
func Build(root Bounds, chunks []ChunkEntry, points []Point2D) *Index {
	return BuildWithTileSize(root, chunks, points, DefaultTileSize)
}

// BuildWithTileSize is Build with an explicit target cell width, used by
// callers (and tests) that want a denser or coarser quadtree than
// DefaultTileSize produces.
func BuildWithTileSize(root Bounds, chunks []ChunkEntry, points []Point2D, tileSize float64) *Index {
	level := chooseLevel(root, tileSize)
	cells := cellsFromPoints(root, level, points)
	return newIndex(root, level, chunks, cells)
}

// chooseLevel implements the spec's level-selection rule: the shallowest
// level whose cells are no wider than tileSize, clamped to [1, 20].
func chooseLevel(root Bounds, tileSize float64) int {
	maxDim := math.Max(root.MaxX-root.MinX, root.MaxY-root.MinY)
	if maxDim <= 0 || tileSize <= 0 {
		return 4
	}
	levels := int(math.Ceil(math.Log2(maxDim / tileSize)))
	if levels < 1 {
		levels = 1
	}
	if levels > 20 {
		levels = 20
	}
	return levels
}

// cellsFromPoints buckets every point into its leaf cell at level and
// collapses each cell's point indices (visited in ascending global-index
// order, so they arrive pre-sorted) into maximal consecutive intervals.
func cellsFromPoints(root Bounds, level int, points []Point2D) map[CellIndex]*CellIntervals {
	cells := make(map[CellIndex]*CellIntervals)
	for i, p := range points {
		idx := uint32(i)
		cell := CellAt(root, level, p.X, p.Y)
		ci, ok := cells[cell]
		if !ok {
			ci = &CellIntervals{CellIndex: cell}
			cells[cell] = ci
		}
		ci.NumberPoints++
		n := len(ci.Intervals)
		if n > 0 && ci.Intervals[n-1].End+1 == idx {
			ci.Intervals[n-1].End = idx
		} else {
			ci.Intervals = append(ci.Intervals, Interval{Start: idx, End: idx})
		}
	}
	return cells
}

func newIndex(root Bounds, level int, chunks []ChunkEntry, cells map[CellIndex]*CellIntervals) *Index {
	rtree := rtreego.NewTree(2, 2, 8)
	for _, c := range chunks {
		rtree.Insert(c)
	}
	return &Index{root: root, level: level, chunks: chunks, cells: cells, rtree: rtree}
}

// Level returns the quadtree depth chosen for this index.
func (idx *Index) Level() int { return idx.level }

// Root returns the index's root bounding box.
func (idx *Index) Root() Bounds { return idx.root }

// CellOf returns the flat cell index containing (x, y) at this index's
// chosen depth, irrespective of whether that cell is populated.
func (idx *Index) CellOf(x, y float64) CellIndex {
	return CellAt(idx.root, idx.level, x, y)
}

// Cells returns every populated cell, sorted by CellIndex for
// deterministic serialization.
func (idx *Index) Cells() []CellIntervals {
	out := make([]CellIntervals, 0, len(idx.cells))
	for _, c := range idx.cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CellIndex < out[j].CellIndex })
	return out
}

// Lookup finds the cell covering (x, y), climbing from the index's
// deepest level up to the root until a populated cell is found — honoring
// adaptive quadtrees whose cells may live at any level, not just the
// deepest one Build happens to produce.
func (idx *Index) Lookup(x, y float64) (CellIntervals, bool) {
	for level := idx.level; level >= 0; level-- {
		cell := CellAt(idx.root, level, x, y)
		if ci, ok := idx.cells[cell]; ok {
			return *ci, true
		}
	}
	return CellIntervals{}, false
}

// ChunksOverlapping returns every chunk whose bounds intersect query,
// pre-filtered by the r-tree before an exact Bounds.Intersects check.
func (idx *Index) ChunksOverlapping(query Bounds) []ChunkEntry {
	point := rtreego.Point{query.MinX, query.MinY}
	lengths := []float64{maxPositive(query.MaxX - query.MinX), maxPositive(query.MaxY - query.MinY)}
	rect, _ := rtreego.NewRect(point, lengths)

	var result []ChunkEntry
	for _, sp := range idx.rtree.SearchIntersect(rect) {
		entry := sp.(ChunkEntry)
		if entry.GeoBounds.Intersects(query) {
			result = append(result, entry)
		}
	}
	return result
}

// DensityStats reports the mean and standard deviation of number_points
// across populated quadtree cells, a quick diagnostic for whether a
// file's spatial distribution is degenerate (one cell holding almost
// every point defeats spatial filtering entirely).
func (idx *Index) DensityStats() (mean, stddev float64) {
	if len(idx.cells) == 0 {
		return 0, 0
	}
	counts := make([]float64, 0, len(idx.cells))
	for _, c := range idx.cells {
		counts = append(counts, float64(c.NumberPoints))
	}
	mean = stat.Mean(counts, nil)
	return mean, stat.StdDev(counts, nil)
}
