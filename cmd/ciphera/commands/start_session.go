package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphera/internal/domain"
)

// start-session: fetch <peer>'s prekey bundle from the relay, run X3DH
// against it as initiator, and persist the resulting session so a later
// `send` can skip straight to the ratchet.
func startSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}

			peer := domain.Username(args[0])
			if _, err := appCtx.SessionService.InitiateSession(cmd.Context(), passphrase, peer); err != nil {
				return fmt.Errorf("starting session with %q: %w", peer, err)
			}

			fmt.Printf("Session created with %s\n", peer)
			return nil
		},
	}
}
