package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphera/internal/domain"
)

// send: encrypt a message for <peer> and post it to the relay, bootstrapping
// a Double Ratchet session via X3DH first if one isn't already on file.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if username == "" {
				return fmt.Errorf("--username required")
			}

			peer := domain.Username(args[0])
			plaintext := []byte(args[1])

			if err := appCtx.MessageService.SendMessage(cmd.Context(), passphrase, domain.Username(username), peer, plaintext); err != nil {
				return fmt.Errorf("sending message to %q: %w", peer, err)
			}

			fmt.Println("Message sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "your registered username")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
