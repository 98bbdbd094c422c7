package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Token utilities",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect [token]",
	Short: "Decode a session token without verifying it",
	Long: `Decode a session token and print its normalized claims as JSON.

The signature is not checked. The token is read from the argument, or from
stdin when no argument is given.

Examples:
  portal token inspect eyJhbGciOi...
  pbpaste | portal token inspect`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenInspect,
}

// inspection is what token inspect prints.
type inspection struct {
	Claims      jwtx.Claims `json:"claims"`
	Expired     bool        `json:"expired"`
	Fingerprint string      `json:"fingerprint"`
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenInspect(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		sc := bufio.NewScanner(cmd.InOrStdin())
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		if sc.Scan() {
			raw = sc.Text()
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}

	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return errors.New("no token given")
	}

	claims, err := jwtx.Decode(raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(inspection{
		Claims:      claims,
		Expired:     jwtx.IsExpired(claims, time.Now()),
		Fingerprint: cryptox.FingerprintToken(raw),
	})
}
