package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// formatJSON pretty-prints a value for --json output.
func formatJSON(data any) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// confirm asks a yes/no question on w and reads the answer from r.
// Anything other than y or yes counts as no.
func confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s (y/N): ", prompt)
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "e", "evet":
		return true
	}
	return false
}
