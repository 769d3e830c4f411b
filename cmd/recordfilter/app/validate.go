package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/recordfilter"
	"github.com/hugr-lab/recordfilter/filter"
)

// ErrIssuesFound is returned by the validate command when the filter set
// has issues.
var ErrIssuesFound = errors.New("filter set has issues")

// validationReport is the output of the validate command.
type validationReport struct {
	Valid   bool           `json:"valid" yaml:"valid" msgpack:"valid"`
	Filters int            `json:"filters" yaml:"filters" msgpack:"filters"`
	Issues  []filter.Issue `json:"issues" yaml:"issues" msgpack:"issues"`
}

func newValidateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report filters that would be ignored",
		Long: `Validate a filter set and report the filters that evaluation ignores or
only partially applies: unknown types, missing values or children,
unsupported date range keywords and unparseable dates.

Exits with a non-zero status when issues are found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := recordfilter.LoadFilterSet(c.v.GetString("filters"))
			if err != nil {
				return err
			}

			issues := filter.Validate(fs)
			if issues == nil {
				issues = []filter.Issue{}
			}
			report := validationReport{
				Valid:   len(issues) == 0,
				Filters: len(fs),
				Issues:  issues,
			}
			if format := c.v.GetString("output"); format != "text" {
				if err := writeOutput(cmd.OutOrStdout(), format, report); err != nil {
					return err
				}
			} else {
				for _, is := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", is.Path, is.Type, is.Field, is.Message)
				}
			}

			if !report.Valid {
				return fmt.Errorf("%w: %d of %d filters", ErrIssuesFound, len(issues), len(fs))
			}
			return nil
		},
	}
	cmd.Flags().String("filters", "", "Filter set file (.json, .yaml, .yml, .msgpack, optionally .zst)")
	cmd.Flags().String("output", "text", "Output format (text, json, yaml, msgpack, +zstd)")
	_ = cmd.MarkFlagRequired("filters")
	return cmd
}
