// Command httcp selects H->tautau lepton pair candidates, either as an HTTP
// service or over columnar event files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "httcp: %v\n", err)
		os.Exit(1)
	}
}
