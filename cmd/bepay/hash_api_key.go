package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"bepay-gateway/internal/service"

	"github.com/spf13/cobra"
)

func hashAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-api-key [key]",
		Short: "Print an Argon2id hash for security.api_key_hash",
		Long: `Hash an API key so the plaintext never has to live in config.

The key is taken from the first argument, or read from stdin when omitted:
  bepay hash-api-key my-secret-key
  echo -n my-secret-key | bepay hash-api-key`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no key given on the command line or stdin")
				}
				key = strings.TrimRight(line, "\r\n")
			}
			if key == "" {
				return errors.New("api key must not be empty")
			}

			hash, err := service.NewArgon2HashService().Hash(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
