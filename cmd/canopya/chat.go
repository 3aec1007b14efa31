package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/canopya/canopya/chat"
	"github.com/canopya/canopya/rag"
)

// historyWindow is how many prior messages the REPL carries per turn.
const historyWindow = 6

// ChatCmd is an interactive terminal session with the assistant.
type ChatCmd struct {
	UserID string `help:"User identifier for the session." default:"cli"`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cleanup, err := cli.initLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := buildComponents(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	fmt.Println("Canopya - ketik pertanyaan, atau 'exit' untuk keluar.")

	var history []rag.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		resp, err := comps.dispatcher.Chat(ctx, chat.Request{
			Message: message,
			UserID:  c.UserID,
			History: history,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s\n\n", resp.Answer)

		history = append(history,
			rag.Message{Role: "user", Text: message},
			rag.Message{Role: "assistant", Text: resp.Answer},
		)
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
	}
	return scanner.Err()
}
