// Command dmrt loads compiled bytecode and a declarative object tree and
// runs a named proc against it, or disassembles a chunk to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/dreamruntime/dmrt/internal/bytestream"
	"github.com/dreamruntime/dmrt/internal/conn"
	"github.com/dreamruntime/dmrt/internal/objtree"
	"github.com/dreamruntime/dmrt/internal/persist"
	"github.com/dreamruntime/dmrt/internal/vm"
	"github.com/dreamruntime/dmrt/pkg/embed"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  dmrt disasm <chunk.dmbc>
  dmrt run --bytecode <chunk.dmbc> --tree <tree.yaml> --type <path> --proc <name>
           [--bridge <addr>] [--persist <dsn>]
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "disasm":
		runDisasm(os.Args[2:])
	case "run":
		runProc(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func runDisasm(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading bytecode file: %s\n", err)
		os.Exit(1)
	}
	chunk, err := bytestream.DecodeChunk(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding bytecode: %s\n", err)
		os.Exit(1)
	}

	out := vm.Disassemble(chunk, args[0])
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		highlightDisasm(out)
		return
	}
	fmt.Print(out)
}

// highlightDisasm re-emits a disassembly listing with the offset column of
// each instruction line dimmed and every other line (the header) in bold;
// only used when stdout is a real terminal.
func highlightDisasm(out string) {
	const (
		dim   = "\x1b[2m"
		bold  = "\x1b[1m"
		reset = "\x1b[0m"
	)
	for _, line := range splitLines(out) {
		if len(line) >= 4 && line[0] >= '0' && line[0] <= '9' {
			fmt.Printf("%s%s%s%s\n", dim, line[:4], reset, line[4:])
			continue
		}
		fmt.Printf("%s%s%s\n", bold, line, reset)
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

type runFlags struct {
	bytecode string
	tree     string
	typePath string
	proc     string
	bridge   string
	persist  string
}

func parseRunFlags(args []string) runFlags {
	var f runFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--bytecode":
			i++
			f.bytecode = args[i]
		case "--tree":
			i++
			f.tree = args[i]
		case "--type":
			i++
			f.typePath = args[i]
		case "--proc":
			i++
			f.proc = args[i]
		case "--bridge":
			i++
			f.bridge = args[i]
		case "--persist":
			i++
			f.persist = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown flag %s\n", args[i])
			usage()
			os.Exit(1)
		}
	}
	return f
}

func runProc(args []string) {
	f := parseRunFlags(args)
	if f.bytecode == "" || f.tree == "" || f.typePath == "" || f.proc == "" {
		usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(f.bytecode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading bytecode file: %s\n", err)
		os.Exit(1)
	}
	chunk, err := bytestream.DecodeChunk(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding bytecode: %s\n", err)
		os.Exit(1)
	}

	tree, err := objtree.LoadFile(f.tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading object tree: %s\n", err)
		os.Exit(1)
	}

	def, ok := tree.GetObject(vm.NewPath(f.typePath))
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown type: %s\n", f.typePath)
		os.Exit(1)
	}
	// The CLI wires the decoded chunk in as the proc body named on the
	// command line; the tree file declares fields and globals, not procs,
	// since compiled bytecode (component L) is the only proc source here.
	def.Procs[f.proc] = &vm.ProcDef{Name: f.proc, Chunk: chunk}

	var bridge *conn.Bridge
	var store *persist.Store
	var vconn vm.Connection
	if f.bridge != "" {
		bridge, err = conn.Dial(f.bridge)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error dialing connection bridge: %s\n", err)
			os.Exit(1)
		}
		defer bridge.Close()
		vconn = bridge
	}

	rt := embed.New(tree, vconn)

	if f.persist != "" {
		store, err = persist.Open(f.persist)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: persistence store unavailable, running without it: %s\n", err)
			store = nil
		} else {
			defer store.Close()
			rt.SetPersistHook(store)
		}
	}

	inst, err := rt.CreateObject(f.typePath, vm.NewArgTuple())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating object: %s\n", err)
		os.Exit(1)
	}

	result, err := rt.Invoke(inst, f.proc, vm.NewArgTuple())
	if store != nil {
		if cerr := store.CommitProc(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: committing persisted fields failed: %s\n", cerr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Stringify())
}
