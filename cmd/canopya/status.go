package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// StatusCmd queries a running server's /status endpoint.
type StatusCmd struct {
	Server string `help:"Base URL of the running server." default:"http://localhost:8000"`
}

func (c *StatusCmd) Run(cli *CLI) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(c.Server + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	// Re-indent for readability.
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
