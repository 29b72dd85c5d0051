// Command luxemuse-admin inspects and repairs account records outside the
// HTTP API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
