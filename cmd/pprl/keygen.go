package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehr/pprl/internal/domain/bloomfilter"
	"github.com/ehr/pprl/internal/platform/aesgcm"
)

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a Bloom filter config or a study key",
		Long: `Writes a BloomFilterConfig as JSON. With --secret the config is derived
from the shared campaign secret and --campaign, otherwise it is random.
With --study-key a random AES-256 study key is printed as hex instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			studyKey, _ := cmd.Flags().GetBool("study-key")
			secretHex, _ := cmd.Flags().GetString("secret")
			campaign, _ := cmd.Flags().GetString("campaign")
			out, _ := cmd.Flags().GetString("out")

			_, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			if studyKey {
				key, err := aesgcm.GenerateKey()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
				return err
			}

			var bfc *bloomfilter.BloomFilterConfig
			if secretHex != "" {
				secret, err := hex.DecodeString(secretHex)
				if err != nil {
					return fmt.Errorf("--secret is not valid hex: %w", err)
				}
				bfc, err = bloomfilter.DeriveBloomFilterConfig(secret, campaign)
				if err != nil {
					return err
				}
			} else {
				bfc, err = bloomfilter.GenerateBloomFilterConfig()
				if err != nil {
					return err
				}
			}

			data, err := json.MarshalIndent(bfc, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write bloom filter config: %w", err)
			}
			logger.Info().Str("path", out).Bool("derived", secretHex != "").Msg("wrote bloom filter config")
			return nil
		},
	}
	cmd.Flags().Bool("study-key", false, "Print a random AES-256 study key instead")
	cmd.Flags().String("secret", "", "Hex encoded campaign secret to derive the config from")
	cmd.Flags().String("campaign", "", "Campaign name used with --secret")
	cmd.Flags().String("out", "", "Write the config to this file instead of stdout")
	return cmd
}
