// Command shellline-demo is a minimal interactive driver for manual
// testing: it reads lines in a loop, echoes what was submitted, prints
// ^C on interrupt, and exits on Ctrl-D, the way the teacher's cmd/
// examples each drove one widget standalone.
package main

import (
	"fmt"
	"os"

	"github.com/kungfusheep/shellline"
	"github.com/kungfusheep/shellline/internal/term"
)

func main() {
	t := term.New(os.Stdin, os.Stdout)
	run(t)
}

func run(t *term.Terminal) {
	caps := shellline.Probe(nil)
	hist := shellline.NewHistory(nil)
	lastExit := 0

	for {
		res, err := shellline.ReadLine(t, "shellline> ", caps, hist, lastExit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "shellline-demo:", err)
			os.Exit(1)
		}
		switch res.Outcome {
		case shellline.Submitted:
			fmt.Printf("\r\n+ %s\r\n", string(res.Bytes))
			lastExit = 0
		case shellline.Interrupted:
			fmt.Print("\r\n^C\r\n")
		case shellline.EOF:
			fmt.Print("\r\n")
			return
		}
	}
}
