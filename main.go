// Command sidehug runs the Bluesky mention bot and trend crawler.
package main

import (
	"fmt"
	"os"

	"sidehug/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sidehug:", err)
		os.Exit(1)
	}
}
