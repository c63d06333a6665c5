package main

import (
	"errors"
	"fmt"
	"runtime"
	"text/tabwriter"

	"sigmem/signature"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve <file> <signatures.yaml>",
		Short: "Resolve every signature of a YAML signature set",
		Example: `
sigscan resolve game.bin signatures.yaml --maxdop 4
`,
		Args: cobra.ExactArgs(2),
		RunE: runResolve,
	}

	resolveCmd.Flags().Uint("maxdop", uint(runtime.NumCPU()), "Maximum number of signatures scanned in parallel")
	return resolveCmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	maxdop, _ := cmd.Flags().GetUint("maxdop")

	set, err := signature.LoadFile(args[1])
	if err != nil {
		return err
	}
	for _, sig := range set {
		if err := checkFileFixups(sig.Fixups); err != nil {
			return fmt.Errorf("%s: %w", sig.Name, err)
		}
	}

	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	results, resolveErr := set.ResolveImage(s.engine, s.image.Region(), maxdop)
	failures := signature.Failures(resolveErr)
	if resolveErr != nil && len(failures) == 0 {
		return resolveErr
	}

	if s.verbose {
		s.log.Infoln("Resolved", len(results), "of", len(set), "signatures")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, sig := range set {
		addr, ok := results[sig.Name]
		switch {
		case ok:
			fmt.Fprintf(w, "%s\t%s\n", sig.Name, s.image.Describe(addr))
		case errors.Is(failures[sig.Name], signature.ErrNotFound):
			fmt.Fprintf(w, "%s\tnot found\n", sig.Name)
		default:
			fmt.Fprintf(w, "%s\t%v\n", sig.Name, failures[sig.Name])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return resolveErr
}
