// Command casm is the assembler/disassembler CLI front end: by default it
// assembles a text program into a raw ROM image; with -d it runs the
// disassembler instead, rendering a ROM image back to canonical text.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/coretoy32/corevm/pkg/asm"
)

func main() {
	log.SetFlags(0)
	filename := flag.String("f", "", "input file")
	disasm := flag.Bool("d", false, "disassemble instead of assemble")
	output := flag.String("o", "", "output file (default: stdout)")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: casm [-d] -f <input-file> [-o <output-file>]")
	}

	in, err := os.Open(*filename)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	out := os.Stdout
	if *output != "" {
		fp, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer fp.Close()
		out = fp
	}

	if *disasm {
		runDisassemble(in, out)
		return
	}
	runAssemble(in, out)
}

func runAssemble(in io.Reader, out io.Writer) {
	image, err := asm.Assemble(in)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := out.Write(image); err != nil {
		log.Fatal(err)
	}
}

func runDisassemble(in io.Reader, out io.Writer) {
	image, err := io.ReadAll(in)
	if err != nil {
		log.Fatal(err)
	}
	text, err := asm.Disassemble(image)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := io.WriteString(out, text); err != nil {
		log.Fatal(err)
	}
}
