package main

import (
	"fmt"
	"os"

	"github.com/minemanage/minemanage/internal/cmd"
	"github.com/minemanage/minemanage/internal/logging"
)

func main() {
	defer logging.Close()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
