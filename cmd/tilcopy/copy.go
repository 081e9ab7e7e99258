package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/til/internal/cli"
	"github.com/orizon-lang/til/internal/copier"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/tilcheck"
	"github.com/orizon-lang/til/internal/tilfile"
	"github.com/orizon-lang/til/internal/watch"
)

const watchDelay = 200 * time.Millisecond

type copyJob struct {
	st       *state
	out      io.Writer
	outDir   string
	bindings map[string]int64
	lift     bool
	verify   bool
}

func newCopyCmd(st *state) *cobra.Command {
	var (
		binds     []string
		lift      bool
		verify    bool
		outDir    string
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "copy FILE...",
		Short: "Copy terms, substituting free variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := cli.ParseBindings(st.cfg.Bindings, binds)
			if err != nil {
				return err
			}
			job := &copyJob{
				st:       st,
				out:      cmd.OutOrStdout(),
				outDir:   st.cfg.OutDir,
				bindings: bindings,
				lift:     st.cfg.LiftCodeBodies,
				verify:   st.cfg.Verify,
			}
			flags := cmd.Flags()
			if flags.Changed("out") {
				job.outDir = outDir
			}
			if flags.Changed("lift-code") {
				job.lift = lift
			}
			if flags.Changed("verify") {
				job.verify = verify
			}

			ctx := cmd.Context()
			err = job.run(ctx, args)
			if !watchMode {
				return err
			}
			if err != nil {
				st.logger.Error("copy failed", "err", err)
			}
			return job.watch(ctx, args)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&binds, "bind", nil, "substitute an integer for a free variable (name=value)")
	flags.BoolVar(&lift, "lift-code", false, "rewrite code bodies that are not graphs into graphs")
	flags.BoolVar(&verify, "verify", false, "check that every copy is well formed")
	flags.StringVarP(&outDir, "out", "o", "", "write copies to this directory instead of stdout")
	flags.BoolVarP(&watchMode, "watch", "w", false, "copy again whenever an input changes")
	return cmd
}

// options builds the copier options for one document. Bindings that name
// no free variable of the document are ignored.
func (j *copyJob) options(doc *tilfile.Document, file string) (copier.Options, []*til.VarDecl) {
	opts := copier.Options{
		Logger:         j.st.logger.With("file", file),
		LiftCodeBodies: j.lift,
		BaseDepth:      len(doc.Free),
	}
	var remaining []*til.VarDecl
	for _, vd := range doc.Free {
		v, ok := j.bindings[vd.Name]
		if !ok {
			remaining = append(remaining, vd)
			continue
		}
		if opts.Bindings == nil {
			opts.Bindings = make(map[*til.VarDecl]til.Node)
		}
		opts.Bindings[vd] = &til.Literal{Type: til.Int, Value: v}
	}
	return opts, remaining
}

func (j *copyJob) run(ctx context.Context, files []string) error {
	docs, err := decodeAll(ctx, files)
	if err != nil {
		return err
	}

	jobs := make([]copier.Job, len(docs))
	free := make([][]*til.VarDecl, len(docs))
	for i, doc := range docs {
		jobs[i].Term = doc.Term
		jobs[i].Options, free[i] = j.options(doc, files[i])
	}
	copies, err := copier.CopyJobs(ctx, jobs)
	if err != nil {
		return err
	}

	for i, res := range copies {
		if j.verify {
			if err := tilcheck.Verify(res); err != nil {
				return fmt.Errorf("%s: copy is malformed: %w", files[i], err)
			}
		}
		out := &tilfile.Document{Name: docs[i].Name, Free: free[i], Term: res}
		if err := j.write(i, files[i], out); err != nil {
			return err
		}
		j.st.logger.Info("copied", "file", files[i], "bound", len(jobs[i].Options.Bindings))
	}
	return nil
}

func (j *copyJob) write(i int, file string, doc *tilfile.Document) error {
	if j.outDir != "" {
		return tilfile.EncodeFile(filepath.Join(j.outDir, filepath.Base(file)), doc)
	}
	if i > 0 {
		if _, err := io.WriteString(j.out, "---\n"); err != nil {
			return err
		}
	}
	return tilfile.Encode(j.out, doc)
}

// watch copies changed files until ctx is canceled.
func (j *copyJob) watch(ctx context.Context, files []string) error {
	w, err := watch.New(files...)
	if err != nil {
		return fmt.Errorf("failed to watch inputs: %w", err)
	}
	defer w.Close()

	j.st.logger.Info("watching", "files", len(files))
	err = w.Run(ctx, watchDelay, func(paths []string) {
		if err := j.run(ctx, paths); err != nil {
			j.st.logger.Error("copy failed", "err", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
