package main

import (
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newKeygenCommand() *cobra.Command {
	var kid string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a new sealing key for PRIVATE_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := seal.GenerateKey(kid)
			if err != nil {
				return errors.Wrap(err, "generate key")
			}
			out, err := json.Marshal(key)
			if err != nil {
				return errors.Wrap(err, "encode key")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "Key id (random when empty)")
	return cmd
}
