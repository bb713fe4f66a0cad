// Package main provides the entry point for rv32memsim, a cycle-accurate
// driver for the RV32I two-level cache subsystem.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/config"
	"github.com/sarchlab/rv32memsys/cpu"
	"github.com/sarchlab/rv32memsys/memsys"
)

var (
	configPath = flag.String("config", "", "Path to system configuration JSON file")
	memPath    = flag.String("mem", "", "Path to a flat binary memory image, loaded at address 0")
	verbose    = flag.Bool("v", false, "Verbose per-cycle output")
)

// traceEntry is one request in the JSON trace file. A request issued on
// cycle N is re-presented, unchanged, on every subsequent cycle until the
// matching response reports Stall: false, mirroring the CPU-side hold
// contract described in cpu.IFetchRequest and cpu.MemRequest.
type traceEntry struct {
	Port  string `json:"port"` // "ifetch" or "mem"
	Addr  uint32 `json:"addr"`
	We    bool   `json:"we,omitempty"`
	WData uint32 `json:"wdata,omitempty"`
	Func3 uint8  `json:"func3,omitempty"`
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv32memsim [options] <trace.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading system config: %v\n", err)
			os.Exit(1)
		}
	}

	mem := bus.NewMemorySlave()
	if *memPath != "" {
		data, err := os.ReadFile(*memPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading memory image: %v\n", err)
			os.Exit(1)
		}
		mem.PreloadBytes(0, data)
	}

	trace, err := loadTrace(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		os.Exit(1)
	}

	sys := memsys.New(cfg, mem)

	for i, entry := range trace {
		cycles := run(sys, entry, *verbose)
		if *verbose {
			fmt.Printf("request %d (%s 0x%08X): %d cycle(s)\n", i, entry.Port, entry.Addr, cycles)
		}
	}

	stats := sys.Stats()
	fmt.Printf("cycles: %d\n", stats.Cycles)
	fmt.Printf("icache: hits=%d misses=%d refills=%d\n",
		stats.ICacheHits, stats.ICacheMisses, stats.ICacheRefills)
	fmt.Printf("dcache: hits=%d misses=%d refills=%d writes=%d mmio_reads=%d\n",
		stats.DCacheHits, stats.DCacheMisses, stats.DCacheRefills,
		stats.DCacheWrites, stats.DCacheMMIOReads)
}

// run drives sys.Tick with entry held stable on its own port (and no
// request on the other) until the targeted port's response deasserts
// stall, returning the number of cycles that took.
func run(sys *memsys.System, entry traceEntry, verbose bool) int {
	ifReq := cpu.IFetchRequest{}
	memReq := cpu.MemRequest{}

	switch entry.Port {
	case "ifetch":
		ifReq = cpu.IFetchRequest{Req: true, Addr: entry.Addr}
	case "mem":
		memReq = cpu.MemRequest{
			Req: true, Addr: entry.Addr, We: entry.We,
			WData: entry.WData, Func3: cpu.Func3(entry.Func3),
		}
	}

	cycles := 0
	for {
		cycles++
		ifResp, memResp := sys.Tick(ifReq, memReq)

		var stall bool
		switch entry.Port {
		case "ifetch":
			stall = ifResp.Stall
		case "mem":
			stall = memResp.Stall
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "  cycle %d: stall=%v\n", cycles, stall)
		}

		if !stall {
			return cycles
		}
	}
}

func loadTrace(path string) ([]traceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var trace []traceEntry
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace: %w", err)
	}

	return trace, nil
}
