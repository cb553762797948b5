package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/organ-rotation/internal/calendar"
	"github.com/zapponejosh/organ-rotation/internal/rotation"
)

type generateOutput struct {
	Command    string           `json:"command"`
	DurationMS int64            `json:"duration_ms"`
	Result     *rotation.Result `json:"result"`
}

// newGenerateCmd builds the generate command, or regenerate when
// regenerate is set.
func newGenerateCmd(a *app, regenerate bool) *cobra.Command {
	var (
		churchID      string
		months        int
		startDate     string
		startCycle    string
		startOrganist string
	)

	use, short := "generate", "Generate and persist a church's schedule"
	if regenerate {
		use, short = "regenerate", "Delete assignments from --start-date on and generate again"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := rotation.Request{
				ChurchID: churchID,
				Months:   months,
				Refs: rotation.StartRefs{
					Cycle:    startCycle,
					Organist: startOrganist,
				},
			}
			if startDate != "" {
				d, err := calendar.ParseDateString(startDate)
				if err != nil {
					return fmt.Errorf("invalid --start-date %q: use YYYY-MM-DD", startDate)
				}
				req.Start = d
			} else if regenerate {
				return errors.New("--start-date is required to regenerate")
			}

			db, _, err := a.openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			gen := rotation.NewGenerator(db, a.logger,
				rotation.WithLookahead(a.cfg.LookaheadLimit),
				rotation.WithLocation(a.cfg.Location()),
			)

			run := gen.Generate
			if regenerate {
				run = gen.Regenerate
			}

			start := time.Now()
			res, err := run(cmd.Context(), req)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), generateOutput{
				Command:    use,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&churchID, "church", "", "Church id (required)")
	cmd.Flags().IntVar(&months, "months", 3, "Window length in months: 3, 6 or 12")
	cmd.Flags().StringVar(&startDate, "start-date", "", "First date of the window, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&startCycle, "start-cycle", "", "Cycle id, number or name to resume from")
	cmd.Flags().StringVar(&startOrganist, "start-organist", "", "Organist id or name to resume from")
	_ = cmd.MarkFlagRequired("church")
	return cmd
}
