// Command lasinfo prints a LAS/LAZ file's header, VLR directory, and
// (optionally) spatial index statistics.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/laspp/laspp-go/pkg/laspp"
)

func main() {
	path := flag.String("i", "", "path to .las or .laz file")
	showVLRs := flag.Bool("vlrs", false, "list variable-length records")
	showIndex := flag.Bool("index", false, "show spatial index density stats")
	flag.Parse()

	if *path == "" {
		log.Fatal("usage: lasinfo -i file.las")
	}

	reader, err := laspp.Open(*path)
	if err != nil {
		log.Fatal(err)
	}

	h := reader.Header()
	fmt.Printf("=== Header ===\n")
	fmt.Printf("Version:       1.%d\n", h.VersionMinor)
	fmt.Printf("System ID:     %s\n", h.SystemIdentifier)
	fmt.Printf("Software:      %s\n", h.GeneratingSoftware)
	fmt.Printf("Point format:  %d\n", h.PointDataFormat&0x7f)
	fmt.Printf("Point count:   %d\n", reader.NumPoints())
	fmt.Printf("Chunks:        %d\n", reader.NumChunks())
	fmt.Printf("Bounds X:      [%.3f, %.3f]\n", h.MinX, h.MaxX)
	fmt.Printf("Bounds Y:      [%.3f, %.3f]\n", h.MinY, h.MaxY)
	fmt.Printf("Bounds Z:      [%.3f, %.3f]\n", h.MinZ, h.MaxZ)

	if *showVLRs {
		fmt.Printf("\n=== Variable-Length Records ===\n")
		for _, v := range reader.VLRHeaders() {
			fmt.Printf("%-16s record %-6d %d bytes  %q\n", v.UserID, v.RecordID, len(v.Data), v.Description)
		}
		for _, v := range reader.EVLRHeaders() {
			fmt.Printf("%-16s record %-6d %d bytes  %q (extended)\n", v.UserID, v.RecordID, len(v.Data), v.Description)
		}
	}

	if wkt, ok := reader.CoordinateWKT(); ok {
		fmt.Printf("\nCoordinate WKT: %s\n", wkt)
	}

	if *showIndex {
		idx, err := reader.LASToolsSpatialIndex()
		if err != nil {
			log.Fatal(err)
		}
		if idx == nil {
			fmt.Printf("\nNo spatial index present.\n")
			return
		}
		mean, stddev := idx.DensityStats()
		fmt.Printf("\n=== Spatial Index ===\n")
		fmt.Printf("Quadtree level: %d\n", idx.Level())
		fmt.Printf("Points/cell:    mean=%.1f stddev=%.1f\n", mean, stddev)
	}
}
