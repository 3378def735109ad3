package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/pprl/internal/config"
	"github.com/ehr/pprl/internal/domain/pseudonym"
	"github.com/ehr/pprl/pkg/pagination"
)

func psnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "psn",
		Short: "Encode, decode and list study pseudonyms",
	}
	cmd.AddCommand(psnEncodeCmd())
	cmd.AddCommand(psnDecodeCmd())
	cmd.AddCommand(psnListCmd())
	return cmd
}

func newGenerator(cfg *config.Config, logger zerolog.Logger) (*pseudonym.Generator, error) {
	if err := cfg.RequireStudy(); err != nil {
		return nil, err
	}
	key, err := cfg.StudyKeyBytes()
	if err != nil {
		return nil, err
	}
	codec, err := pseudonym.NewCodec(cfg.StudyIdentifier, key)
	if err != nil {
		return nil, err
	}
	return pseudonym.NewGenerator(codec, cfg.Workers, logger), nil
}

func psnEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Create shuffled pseudonyms for linked TtpId groups",
		Long: `Reads a JSON array of TtpId groups, e.g.
  [[{"site":"UMG","id":"..."},{"site":"MHH","id":"..."}]]
from --in or stdin and writes the issued pseudonyms as a JSON array in
shuffled order. With --store the pseudonyms are also saved to DATABASE_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			store, _ := cmd.Flags().GetBool("store")

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			gen, err := newGenerator(cfg, logger)
			if err != nil {
				return err
			}
			if store {
				if err := cfg.RequireDatabase(); err != nil {
					return err
				}
			}

			groups, err := readGroups(cmd.InOrStdin(), in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			issued, err := gen.CreatePseudonymsAndShuffle(ctx, groups)
			if err != nil {
				return err
			}

			if store {
				pool, err := openDatabase(cmd, cfg, logger)
				if err != nil {
					return err
				}
				defer pool.Close()

				psns := make([]string, len(issued))
				for i, is := range issued {
					psns[i] = is.Pseudonym
				}
				records, err := pseudonym.NewRepoPG(pool).SaveBatch(ctx, cfg.StudyIdentifier, psns)
				if err != nil {
					return fmt.Errorf("store pseudonyms: %w", err)
				}
				logger.Info().Int("stored", len(records)).Str("study", cfg.StudyIdentifier).Msg("stored pseudonyms")
			}

			return writeJSON(cmd.OutOrStdout(), issued)
		},
	}
	cmd.Flags().String("in", "", "Read TtpId groups from this file instead of stdin")
	cmd.Flags().Bool("store", false, "Save the pseudonyms to the database")
	return cmd
}

func psnDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [PSEUDONYM...]",
		Short: "Decode pseudonyms into their TtpId groups",
		Long:  "Decodes the given pseudonyms, or one pseudonym per line from stdin, and writes the TtpId groups as a JSON array in input order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			gen, err := newGenerator(cfg, logger)
			if err != nil {
				return err
			}

			encoded := args
			if len(encoded) == 0 {
				if encoded, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			groups, err := gen.DecodeAll(cmd.Context(), encoded)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), groups)
		},
	}
}

func psnListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored pseudonyms of STUDY_IDENTIFIER",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.StudyIdentifier == "" {
				return fmt.Errorf("STUDY_IDENTIFIER is required")
			}
			pool, err := openDatabase(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			page := pagination.New(limit, offset)
			records, total, err := pseudonym.NewRepoPG(pool).ListByStudy(cmd.Context(), cfg.StudyIdentifier, page.Limit, page.Offset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pseudonyms for study %s (%d total)\n", cfg.StudyIdentifier, total)
			for _, r := range records {
				fmt.Fprintf(out, "%s  %s  %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Pseudonym)
			}
			if page.HasNext(total) {
				fmt.Fprintf(out, "More results with --offset %d\n", page.NextOffset())
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", pagination.DefaultLimit, "Maximum number of pseudonyms")
	cmd.Flags().Int("offset", 0, "Number of pseudonyms to skip")
	return cmd
}

func readGroups(stdin io.Reader, path string) ([][]pseudonym.TtpID, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var groups [][]pseudonym.TtpID
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode TtpId groups: %w", err)
	}
	for i, g := range groups {
		for j, id := range g {
			if id.SiteIdentifier == "" || id.OpaqueID == "" {
				return nil, fmt.Errorf("group %d entry %d: site and id are required", i, j)
			}
		}
		if err := pseudonym.ValidateTtpIDs(g); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
	}
	return groups, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pseudonyms: %w", err)
	}
	return lines, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
