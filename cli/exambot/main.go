package main

import (
	"os"

	exambotcmder "github.com/cardea-mcp/ExamPrepAgent/cmd/exambot"
)

func main() {
	cmd := exambotcmder.NewExambotCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
