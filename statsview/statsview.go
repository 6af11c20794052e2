// Package statsview runs a local HTTP server with live runtime charts
// for the emulation process, using github.com/go-echarts/statsview.
//
// After launch, charts are served at
//
//	<addr>/debug/statsview
//
// and the standard pprof endpoints at <addr>/debug/pprof/.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is used when Launch is given an empty address.
const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"

// URL returns the chart page for addr.
func URL(addr string) string {
	if addr == "" {
		addr = DefaultAddress
	}
	return "http://" + addr + path
}

// Launch starts the stats server on a new goroutine and reports where it
// can be reached on output.
func Launch(output io.Writer, addr string) {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
}
