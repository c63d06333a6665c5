package main

import (
	"fmt"
	"strings"

	"sigmem/hexdump"
	"sigmem/pattern"
	"sigmem/scanner"
	"sigmem/signature"

	"github.com/spf13/cobra"
)

func newFindCmd() *cobra.Command {
	findCmd := &cobra.Command{
		Use:   "find [<file>] <pattern...>",
		Short: "Find the first occurrence of a pattern",
		Example: `
# Find a RIP-relative load and resolve the referenced global
sigscan find game.bin 48 8B 05 ?? ?? ?? ?? --fixup rel:3:7

# Comma separated patterns work too
sigscan find game.bin "e8,??,??,??,??,84,c0" --fixup rel:1:5 --context 32

# Search 1 MiB of a running process instead of a file (linux)
sigscan find --pid 4242 --range 0x7f12a0000000:0x100000 48 8B 05 ?? ?? ?? ??
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if pid, _ := cmd.Flags().GetInt("pid"); pid != 0 {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		RunE: runFind,
	}

	findCmd.Flags().StringArray("fixup", nil, "Fixup applied to the match, in order (add:N, rel:OFFSET:LENGTH)")
	findCmd.Flags().Int("context", 16, "Bytes of context to dump around the match")
	findCmd.Flags().Int("pid", 0, "Search the memory of this process instead of a file")
	findCmd.Flags().String("range", "", "Remote range to copy with --pid, as ADDRESS:SIZE")
	return findCmd
}

func runFind(cmd *cobra.Command, args []string) error {
	path := ""
	if pid, _ := cmd.Flags().GetInt("pid"); pid == 0 {
		path, args = args[0], args[1:]
	}

	p, err := pattern.Parse(strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	fixupArgs, _ := cmd.Flags().GetStringArray("fixup")
	contextSize, _ := cmd.Flags().GetInt("context")

	sig := signature.Signature{Name: p.String(), Pattern: p}
	for _, arg := range fixupArgs {
		f, err := signature.ParseFixup(arg)
		if err != nil {
			return err
		}
		sig.Fixups = append(sig.Fixups, f)
	}
	if err := checkFileFixups(sig.Fixups); err != nil {
		return err
	}

	s, err := openSession(cmd, path)
	if err != nil {
		return err
	}
	defer s.Close()

	var options []scanner.Option
	if s.verbose {
		options = append(options, scanner.WithLogger(s.log))
	}

	region := s.image.Region()
	match, ok := scanner.New(s.engine, p, options...).Scan(region)
	if !ok {
		return fmt.Errorf("%s: %w", p, signature.ErrNotFound)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "match   %s\n", s.image.Describe(match))
	if len(sig.Fixups) > 0 {
		target, err := sig.FixIn(region, match)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "target  %s\n", s.image.Describe(target))
	}

	if contextSize > 0 {
		offset := uintptr(match - region.Begin)
		start := uintptr(0)
		if offset > uintptr(contextSize) {
			start = offset - uintptr(contextSize)
		}
		window := region.Slice(start, offset-start+uintptr(p.Len())+uintptr(contextSize))
		fmt.Fprint(out, hexdump.DumpMatch(window.Bytes(), s.image.Origin()+uint64(start), int(offset-start), p, s.noColor))
	}

	return nil
}
