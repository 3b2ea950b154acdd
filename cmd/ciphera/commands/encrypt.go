package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ciphera/internal/ratchet"
)

// Exit codes for the encrypt/decrypt subcommands.
const (
	exitOK          = 0
	exitUsage       = 1
	exitBadKey      = 2
	exitBadEnvelope = 3
)

// encryptCmd seals stdin under a bare hex32 session key and writes the
// resulting envelope, base64-encoded, to stdout. It bypasses appCtx
// entirely: no identity, store, or relay is involved, only the symmetric
// chain primitive, for use in scripting and fixture generation.
func encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <hex32_session_key>",
		Short: "Encrypt stdin under a bare session key (no session state)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseSessionKey(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitBadKey)
			}

			plaintext, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
				os.Exit(exitUsage)
			}

			env, err := ratchet.EncryptWithSessionKey(key, plaintext)
			if err != nil {
				fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
				os.Exit(exitUsage)
			}

			wire, err := env.Encode()
			if err != nil {
				fmt.Fprintf(os.Stderr, "encode: %v\n", err)
				os.Exit(exitUsage)
			}

			fmt.Fprintln(cmd.OutOrStdout(), wire)
			return nil
		},
	}
}

// parseSessionKey decodes a 64-char hex string into a 32-byte session key.
func parseSessionKey(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("session key must be hex: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("session key must decode to 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
