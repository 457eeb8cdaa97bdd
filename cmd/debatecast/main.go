package main

import (
	"os"

	"github.com/koscakluka/ema-debate/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
