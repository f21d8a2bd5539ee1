package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/getmockd/mcpchat/pkg/cli/internal/output"
)

// ChatOutput is the JSON output of chat.
type ChatOutput struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send one chat message and print the reply",
		Long: `Send one chat message and print the reply.

Without arguments the message is read from stdin, or prompted for when stdin
is a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				var err error
				if text, err = readMessage(cmd); err != nil {
					return err
				}
			}

			s, err := opts.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			reply, err := s.chat.SendChat(cmd.Context(), text)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), ChatOutput{Message: text, Reply: reply})
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

// readMessage prompts on a terminal and reads stdin otherwise.
func readMessage(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var text string
		err := huh.NewInput().
			Title("Message").
			Placeholder("Ask the assistant anything").
			Value(&text).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("message is required")
				}
				return nil
			}).
			Run()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("message is required")
	}
	return text, nil
}
