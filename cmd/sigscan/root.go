package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sigmem/coloransi"
	"sigmem/engine"
	"sigmem/memory"
	"sigmem/memory_map"
	"sigmem/signature"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
)

var errLiveMemoryOnly = errors.New("deref fixups need live memory and cannot be applied to a copied image")

// image is the memory sigscan searches: a mapped file or a process snapshot
type image interface {
	Region() memory.Region
	// Origin is the file offset or remote address the region starts at
	Origin() uint64
	Describe(addr memory.Address) string
	Close() error
}

type fileImage struct {
	*memory_map.MappedFile
}

func (f fileImage) Origin() uint64 {
	return 0
}

// Describe formats an address as a file offset, or flags it as outside the image
func (f fileImage) Describe(addr memory.Address) string {
	region := f.Region()
	if !region.Contains(addr) {
		return fmt.Sprintf("%s (outside image, file%+#x)", addr, addr.Offset(region.Begin))
	}
	return fmt.Sprintf("file+%#x", addr.Offset(region.Begin))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sigscan",
		Short: "Find byte signatures in binary images",
		Long: `sigscan maps a binary image read-only into memory and searches it for
byte signatures such as "48 8B 05 ?? ?? ?? ??", optionally resolving the
match through add and rel32 fixups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("engine", "indexed", "Matching engine (naive, indexed)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable ANSI colours")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log scan details")

	rootCmd.AddCommand(newFindCmd(), newResolveCmd())
	return rootCmd
}

// session holds what every subcommand needs: the mapped image, the engine and a logger
type session struct {
	image   image
	engine  engine.Engine
	log     *logger.Logger
	noColor bool
	verbose bool
}

// openSession maps the file at path, or snapshots the --pid/--range process memory
// when the command has those flags set.
func openSession(cmd *cobra.Command, path string) (*session, error) {
	engineName, _ := cmd.Flags().GetString("engine")
	noColor, _ := cmd.Flags().GetBool("no-color")
	verbose, _ := cmd.Flags().GetBool("verbose")

	eng, ok := engine.ByName(engineName)
	if !ok {
		return nil, fmt.Errorf("unknown engine %q", engineName)
	}

	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "sigscan"))

	var img image
	if pid, _ := cmd.Flags().GetInt("pid"); pid != 0 {
		rangeText, _ := cmd.Flags().GetString("range")
		remote, size, err := parseRange(rangeText)
		if err != nil {
			return nil, err
		}
		if img, err = openProcess(pid, remote, size, log); err != nil {
			return nil, err
		}
		if verbose {
			log.Infoln("Copied", img.Region().Size, "bytes of PID", pid, "from", fmt.Sprintf("%#x", remote))
		}
	} else {
		mapped, err := memory_map.Open(path)
		if err != nil {
			return nil, err
		}
		img = fileImage{mapped}
		if verbose {
			log.Infoln("Mapped", path, mapped.Size(), "bytes at", mapped.Region().Begin.String())
		}
	}

	return &session{
		image:   img,
		engine:  eng,
		log:     log,
		noColor: noColor,
		verbose: verbose,
	}, nil
}

func (s *session) Close() {
	if err := s.image.Close(); err != nil {
		s.log.Warn("Failed to release image: ", err)
	}
}

// checkFileFixups rejects fixups that would dereference copied contents as pointers
func checkFileFixups(fixups []signature.Fixup) error {
	for _, f := range fixups {
		if _, ok := f.(signature.Deref); ok {
			return errLiveMemoryOnly
		}
	}
	return nil
}

// parseRange parses "ADDRESS:SIZE", both in Go integer syntax
func parseRange(text string) (uintptr, int, error) {
	addrText, sizeText, ok := strings.Cut(text, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q: want ADDRESS:SIZE", text)
	}
	addr, err := strconv.ParseUint(addrText, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range address %q: %w", addrText, err)
	}
	size, err := strconv.ParseUint(sizeText, 0, 31)
	if err != nil || size == 0 {
		return 0, 0, fmt.Errorf("invalid range size %q", sizeText)
	}
	return uintptr(addr), int(size), nil
}
