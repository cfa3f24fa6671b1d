/*
Package main is the entry point for the barcin CLI.

barcin is a Turkish business-data assistant. It answers questions over
local CSV datasets, routes each query by intent and learns from every
answer.

Usage:

	barcin [command]

Available Commands:

	serve       Run the HTTP API
	ask         Answer a single query
	datasets    List loaded datasets
	analyze     Print the analytics report of a dataset
	learning    Inspect and manage the learning store
	benchmark   Measure routing accuracy
	mcp         Serve the assistant as MCP tools over stdio
	version     Show version information

Examples:

	# Run the API over ./data
	barcin serve --data-dir ./data

	# Ask as an admin
	barcin ask --user admin "ortalama maaş"
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
