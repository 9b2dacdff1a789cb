// Command corevm is the CLI front end over the core: "tests" runs the
// registered self-test suite, "prog" assembles and runs a built-in sample
// program and prints its console output. With no arguments it behaves
// like "prog". Exit code is 0 on success, non-zero on an invalid argument
// or a fatal core error.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/coretoy32/corevm/internal/corelog"
	"github.com/coretoy32/corevm/pkg/asm"
	"github.com/coretoy32/corevm/pkg/machine"
	"github.com/coretoy32/corevm/pkg/testkit"
	"github.com/coretoy32/corevm/pkg/word"
)

const sampleProgram = `
set r0 65536
set r1 72
store.1 r0 r1
set r1 105
store.1 r0 r1
halt
`

func init() {
	testkit.Register("assemble-sample-program", func(t *testkit.T) {
		if _, err := asm.Assemble(strings.NewReader(sampleProgram)); err != nil {
			t.Fatalf("assembling sample program: %v", err)
		}
	})
	testkit.Register("run-sample-program", func(t *testkit.T) {
		img, err := asm.Assemble(strings.NewReader(sampleProgram))
		if err != nil {
			t.Fatalf("assembling sample program: %v", err)
		}
		m := machine.New()
		if err := m.InstallROM(img); err != nil {
			t.Fatalf("installing rom: %v", err)
		}
		if err := m.Run(); err != nil {
			t.Fatalf("running sample program: %v", err)
		}
		if string(m.Console) != "Hi" {
			t.Errorf("sample program printed %q, want %q", m.Console, "Hi")
		}
	})
	testkit.Register("register-file-is-addressable", func(t *testkit.T) {
		n := int(t.RNG().Int31n(word.NumRegisters))
		if _, ok := word.ParseRegister(word.Register(n).String()); !ok {
			t.Errorf("register %d did not round-trip through its name", n)
		}
	})
}

func main() {
	cmd := "prog"
	switch len(os.Args) {
	case 1:
	case 2:
		cmd = os.Args[1]
	default:
		fmt.Fprintln(os.Stderr, "usage: corevm [tests|prog]")
		os.Exit(1)
	}

	switch cmd {
	case "tests":
		runTests()
	case "prog":
		runProg()
	default:
		fmt.Fprintf(os.Stderr, "invalid command %q\n", cmd)
		os.Exit(1)
	}
}

func runTests() {
	results := testkit.RunAll()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			corelog.Err("test %q failed: %v", r.Name, r.Err)
		}
	}
	if failed > 0 {
		corelog.Abort("%d of %d tests failed", failed, len(results))
	}
}

func runProg() {
	img, err := asm.Assemble(strings.NewReader(sampleProgram))
	if err != nil {
		corelog.Abort("assembling sample program: %v", err)
	}
	m := machine.New()
	if err := m.InstallROM(img); err != nil {
		corelog.Abort("installing rom: %v", err)
	}
	if err := m.Run(); err != nil {
		corelog.Abort("running program: %v", err)
	}
	fmt.Printf("program prints: %s\n", string(m.Console))
}
