package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ciphera/internal/ratchet"
)

// decryptCmd opens a base64 envelope read from stdin under a bare hex32
// session key and writes the recovered plaintext to stdout. The
// counterpart to encryptCmd.
func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "decrypt <hex32_session_key>",
		Short:         "Decrypt a stdin envelope under a bare session key (no session state)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseSessionKey(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitBadKey)
			}

			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
				os.Exit(exitUsage)
			}

			env, err := ratchet.Decode(strings.TrimSpace(string(raw)))
			if err != nil {
				fmt.Fprintf(os.Stderr, "decode envelope: %v\n", err)
				os.Exit(exitBadEnvelope)
			}

			pt, err := ratchet.DecryptWithSessionKey(key, env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "decrypt: %v\n", err)
				os.Exit(exitBadEnvelope)
			}

			fmt.Fprint(cmd.OutOrStdout(), string(pt))
			return nil
		},
	}
}
