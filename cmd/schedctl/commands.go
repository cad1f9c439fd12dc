package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/service"
)

func autoAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-assign",
		Short: "Place every unscheduled group of a term into the first free block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, _ := cmd.Flags().GetString("term")

			result, err := app.schedules.AutoAssign(cmd.Context(), termID)
			if err != nil {
				return fmt.Errorf("auto-assign failed: %w", err)
			}
			app.logger.Info("auto-assign finished",
				zap.String("term_id", result.TermID),
				zap.Int("assigned", result.Assigned),
				zap.Int("failed", len(result.Failed)),
			)

			fmt.Printf("\nAssigned %d of %d groups\n", result.Assigned, result.TotalGroups)
			for _, e := range result.Entries {
				fmt.Printf("  + group %s  teacher %s  room %s  %s\n", e.GroupID, e.TeacherID, e.RoomID, e.Slot())
			}
			if len(result.Failed) > 0 {
				fmt.Printf("\nCould not place %d groups:\n", len(result.Failed))
				for _, f := range result.Failed {
					fmt.Printf("  - %s (%s)\n", f.Label, f.GroupID)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("term", "", "Academic term ID")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func activateTermCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate-term",
		Short: "Make a term the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, _ := cmd.Flags().GetString("term")

			term, err := app.terms.Activate(cmd.Context(), termID)
			if err != nil {
				return fmt.Errorf("activate term failed: %w", err)
			}
			fmt.Printf("Term %s (%s) is now current\n", term.Name, term.ID)
			return nil
		},
	}
	cmd.Flags().String("term", "", "Academic term ID")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show a teacher's weekly hours against the ceiling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teacherID, _ := cmd.Flags().GetString("teacher")
			termID, _ := cmd.Flags().GetString("term")

			load, err := app.teachers.Load(cmd.Context(), teacherID, termID)
			if err != nil {
				return fmt.Errorf("load lookup failed: %w", err)
			}
			status := "ok"
			if load.Overloaded {
				status = "OVERLOADED"
			}
			fmt.Printf("%s (%s)\n", load.FullName, load.TeacherID)
			fmt.Printf("  entries: %d\n", load.Entries)
			fmt.Printf("  hours:   %.2f / %.2f (%.1f%%) %s\n", load.Hours, load.MaxHours, load.Percent, status)
			return nil
		},
	}
	cmd.Flags().String("teacher", "", "Teacher ID")
	cmd.Flags().String("term", "", "Academic term ID (defaults to the current term)")
	_ = cmd.MarkFlagRequired("teacher")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Dry-run a placement against every scheduling rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.ValidateScheduleRequest
			req.TeacherID, _ = cmd.Flags().GetString("teacher")
			req.GroupID, _ = cmd.Flags().GetString("group")
			req.RoomID, _ = cmd.Flags().GetString("room")
			req.Weekday, _ = cmd.Flags().GetInt("weekday")
			req.StartTime, _ = cmd.Flags().GetString("start")
			req.EndTime, _ = cmd.Flags().GetString("end")
			req.ExcludeID, _ = cmd.Flags().GetString("exclude")

			report, err := app.schedules.Check(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if report.Valid {
				fmt.Println("Placement is valid")
				fmt.Printf("  load after placement: %.2f / %.2f hours\n", report.CurrentHours, report.MaxHours)
				return nil
			}

			fmt.Println("Placement rejected")
			for _, c := range report.Conflicts {
				fmt.Printf("  %s conflict with entry %s at %s\n", c.Kind, c.EntryID, c.Slot)
			}
			if report.Load != nil {
				fmt.Printf("  load exceeded: %s\n", report.Load.Error())
			}
			if report.Unavailable {
				fmt.Println("  outside teacher availability")
			}
			kinds := make([]string, 0, len(report.Kinds))
			for _, k := range report.Kinds {
				kinds = append(kinds, string(k))
			}
			return fmt.Errorf("placement rejected: %s", strings.Join(kinds, ", "))
		},
	}
	cmd.Flags().String("teacher", "", "Teacher ID")
	cmd.Flags().String("group", "", "Group ID")
	cmd.Flags().String("room", "", "Room ID")
	cmd.Flags().Int("weekday", 0, "Weekday 1 (Monday) to 5 (Friday)")
	cmd.Flags().String("start", "", "Start time HH:MM")
	cmd.Flags().String("end", "", "End time HH:MM")
	cmd.Flags().String("exclude", "", "Entry ID to ignore, when checking a move")
	for _, name := range []string{"teacher", "group", "room", "weekday", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
