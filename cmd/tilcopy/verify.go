package main

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/orizon-lang/til/internal/copier"
	"github.com/orizon-lang/til/internal/tilcheck"
	"github.com/orizon-lang/til/internal/tilfile"
	"github.com/orizon-lang/til/internal/traverse"
)

func newVerifyCmd(st *state) *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check that copying reproduces each term without sharing nodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := decodeAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for i, doc := range docs {
				if err := verifyDoc(st, doc, args[i]); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s\n%v\n", args[i], err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", args[i])
				if stats {
					printStats(out, traverse.Count(doc.Term))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print node statistics for each term")
	return cmd
}

// verifyDoc copies doc without substitutions and checks the copy against
// the original.
func verifyDoc(st *state, doc *tilfile.Document, file string) error {
	var result *multierror.Error
	if err := tilcheck.Verify(doc.Term); err != nil {
		result = multierror.Append(result, fmt.Errorf("original: %w", err))
	}

	res, err := copier.Copy(doc.Term, copier.Options{
		Logger:    st.logger.With("file", file),
		BaseDepth: len(doc.Free),
	})
	if err != nil {
		return multierror.Append(result, err)
	}
	if err := tilcheck.Verify(res); err != nil {
		result = multierror.Append(result, fmt.Errorf("copy: %w", err))
	}
	if !tilcheck.Equal(doc.Term, res) {
		result = multierror.Append(result, fmt.Errorf("copy is not structurally equal to the original"))
	}
	if shared := tilcheck.Shared(doc.Term, res); len(shared) > 0 {
		result = multierror.Append(result, fmt.Errorf("copy shares %d nodes with the original", len(shared)))
	}
	return result.ErrorOrNil()
}

func printStats(w io.Writer, s traverse.Stats) {
	fmt.Fprintf(w, "     nodes=%d refs=%d graphs=%d depth=%d\n", s.Total(), s.Refs, s.Graphs, s.MaxDepth)
}
