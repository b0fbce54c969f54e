// Command las2las converts a LAS/LAZ file to LAS or LAZ, optionally
// attaching a LAStools-compatible quadtree spatial index.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/laspp/laspp-go/pkg/laspp"
)

func main() {
	in := flag.String("i", "", "input .las or .laz file")
	out := flag.String("o", "", "output .las or .laz file")
	compress := flag.Bool("laz", false, "write LAZ-compressed output")
	index := flag.Bool("index", false, "attach a LAStools-compatible spatial index")
	chunkSize := flag.Uint("chunk-size", laspp.DefaultChunkSize, "points per compressed chunk")
	flag.Parse()

	if *in == "" || *out == "" {
		log.Fatal("usage: las2las -i in.las -o out.laz [-laz] [-index]")
	}

	reader, err := laspp.Open(*in)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	format := laspp.Format(reader.Header().PointDataFormat & 0x7f)
	opts := laspp.DefaultWriterOptions()
	opts.Compressed = *compress
	opts.ChunkSize = uint32(*chunkSize)
	opts.VersionMinor = reader.Header().VersionMinor

	writer, err := laspp.NewWriter(f, format, opts)
	if err != nil {
		log.Fatal(err)
	}

	if err := writer.CopyFromReader(reader, *index); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
}
