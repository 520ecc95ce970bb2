package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/export"
	"github.com/copyleftdev/atsp/internal/tsplib"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate INSTANCE TOUR",
		Short: "Check that a tour is a permutation of the instance's nodes",
		Long: `TOUR is a TSPLIB tour file, a plain list of 0-based nodes, or a JSON/YAML
report written by "atsp solve -o". For reports the recorded cost is checked
against the instance as well.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func isReport(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func runValidate(out io.Writer, instancePath, tourPath string) error {
	inst, err := tsplib.ReadFile(instancePath)
	if err != nil {
		return err
	}

	var (
		tour    atsp.Tour
		claimed = -1
	)
	if isReport(tourPath) {
		report, err := export.ReadFile(tourPath)
		if err != nil {
			return err
		}
		tour, claimed = report.Order, report.Cost
	} else if tour, err = tsplib.ReadTourFile(tourPath); err != nil {
		return err
	}

	if err := inst.Validate(tour); err != nil {
		return err
	}
	cost := inst.Cost(tour)
	if claimed >= 0 && claimed != cost {
		return errors.E("cli", "validate", errors.ErrMalformed,
			"report claims cost %d but the tour costs %d", claimed, cost)
	}

	fmt.Fprintf(out, "Tour is valid. Cost: %s\n", humanize.Comma(int64(cost)))
	return nil
}
