package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/transit-strips/poller/internal/static/gtfs"
	"github.com/transit-strips/poller/internal/topology"
)

func main() {
	path := flag.String("topology", "strips.json", "Path to the topology file (JSON or YAML)")
	gtfsPath := flag.String("gtfs", "", "Optional static GTFS zip or directory used to fill missing stop coordinates")
	flag.Parse()

	cfg, err := topology.LoadFile(*path)
	if err != nil {
		log.Fatalf("Failed to load topology: %v", err)
	}

	var opts []topology.BuildOption
	var data *gtfs.Data
	if *gtfsPath != "" {
		data, err = gtfs.Parse(*gtfsPath)
		if err != nil {
			log.Fatalf("Failed to parse GTFS: %v", err)
		}
		opts = append(opts, topology.WithStopLocator(data.StopLocator()))
	}

	topo, err := topology.Build(cfg, opts...)
	if err != nil {
		var be *topology.BuildError
		if errors.As(err, &be) {
			fmt.Fprintf(os.Stderr, "%s: %d problems\n", *path, len(be.Problems))
			for _, p := range be.Problems {
				fmt.Fprintf(os.Stderr, "  %v\n", p)
			}
			os.Exit(1)
		}
		log.Fatalf("Invalid topology: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tNAME\tDIRECTION\tSTOPS\tINTERMEDIATES\tDISABLED\tFIRST\tLAST")
	for _, r := range topo.Routes() {
		name := ""
		if data != nil {
			if gr, ok := data.Route(r.ID); ok {
				name = gr.RouteShortName
			}
		}
		for _, d := range r.Directions {
			intermediates, disabled := 0, 0
			for _, s := range d.Stops {
				intermediates += len(s.Thresholds) + len(s.Zones)
				if s.Disabled {
					disabled++
				}
			}
			first, last := d.Stops[0], d.Stops[len(d.Stops)-1]
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s (%s)\t%s (%s)\n",
				r.ID, name, d.ID, len(d.Stops), intermediates, disabled,
				first.Code, first.Slot, last.Code, last.Slot)
		}
	}
	w.Flush()

	fmt.Printf("\n%d devices, %d addressable LEDs, %d configured\n",
		len(topo.Devices()), len(topo.Universe()), len(topo.AllOutputSlots()))
}
