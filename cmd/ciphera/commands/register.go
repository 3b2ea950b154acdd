package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphera/internal/domain"
)

// registerCmd generates a signed prekey and a batch of one-time prekeys,
// assembles them into a PreKeyBundle, and publishes it to the relay. The
// canary the relay returns is cached locally so later sends can detect a
// relay that has silently reset this account's queue.
func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Publish your prekey bundle to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usernameValue := domain.Username(args[0])

			if _, _, err := appCtx.PreKeyService.GenerateAndStore(passphrase, 10); err != nil {
				return fmt.Errorf("generating prekeys: %w", err)
			}

			bundle, err := appCtx.PreKeyService.LoadBundle(passphrase, usernameValue.String())
			if err != nil {
				return fmt.Errorf("loading bundle for %q: %w", usernameValue, err)
			}

			canary, err := appCtx.RelayClient.RegisterPreKeyBundle(cmd.Context(), bundle)
			if err != nil {
				return fmt.Errorf("registering bundle: %w", err)
			}

			if err := appCtx.AccountStore.SaveAccountProfile(domain.AccountProfile{
				ServerURL: relayURL,
				Username:  usernameValue,
				Canary:    canary,
			}); err != nil {
				return fmt.Errorf("saving account profile: %w", err)
			}

			fmt.Println("Registered pre-keys with relay")
			return nil
		},
	}
	return cmd
}
