package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehr/pprl/internal/domain/bloomfilter"
	"github.com/ehr/pprl/internal/domain/idat"
)

type rbfOutput struct {
	MedicID           string                         `json:"medicId"`
	RecordBloomFilter *bloomfilter.RecordBloomFilter `json:"recordBloomFilter"`
}

func rbfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rbf EHR_ID...",
		Short: "Encode subjects from the MPI into record Bloom filters",
		Long: `Fetches the IDAT of every EHR id from the configured MPI client and
writes one JSON object per line with the medic id and the record Bloom filter.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireBloomFilterConfig(); err != nil {
				return err
			}

			bfc, err := loadBloomFilterConfig(cfg.BloomFilterConfig)
			if err != nil {
				return err
			}
			profile := bloomfilter.DefaultFieldProfile()
			if cfg.FieldProfile != "" {
				if profile, err = bloomfilter.LoadFieldProfile(cfg.FieldProfile); err != nil {
					return err
				}
			}

			client, err := idat.NewRegistry().New(cfg.MPIClient, logger)
			if err != nil {
				return err
			}
			gen, err := bloomfilter.NewRecordBloomFilterGenerator(bfc, profile, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			subjects := make([]*idat.Idat, 0, len(args))
			for _, id := range args {
				s, err := client.FetchIdat(ctx, id)
				if err != nil {
					return err
				}
				subjects = append(subjects, s)
			}

			rbfs, err := gen.GenerateBatch(ctx, subjects, cfg.Workers)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, rbf := range rbfs {
				if err := enc.Encode(rbfOutput{MedicID: subjects[i].MedicID, RecordBloomFilter: rbf}); err != nil {
					return err
				}
			}
			logger.Info().Int("records", len(rbfs)).Str("mpi_client", cfg.MPIClient).Msg("encoded record bloom filters")
			return nil
		},
	}
}

func loadBloomFilterConfig(path string) (*bloomfilter.BloomFilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bloom filter config: %w", err)
	}
	var bfc bloomfilter.BloomFilterConfig
	if err := json.Unmarshal(data, &bfc); err != nil {
		return nil, err
	}
	return &bfc, nil
}
