package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"icarus/internal/client"
)

func (a *app) goalCmd() *cobra.Command {
	goal := requireAuth(&cobra.Command{
		Use:   "goal",
		Short: "Show the daily protein goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showGoal(cmd)
		},
	})

	goal.AddCommand(
		requireAuth(&cobra.Command{
			Use:   "show",
			Short: "Show the daily protein goal",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.showGoal(cmd)
			},
		}),
		requireAuth(&cobra.Command{
			Use:   "set GRAMS",
			Short: "Set the daily protein goal in grams",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.client.SetGoal(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to set goal: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Protein goal set to %sg.\n", args[0])
				return nil
			},
		}),
	)
	return goal
}

func (a *app) showGoal(cmd *cobra.Command) error {
	a.agg.RefreshGoal(cmd.Context())
	goal := a.agg.View().Goal
	if a.jsonOut {
		return printJSON(cmd.OutOrStdout(), map[string]string{"proteinGoal": goal})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Daily goal: %sg\n", goal)
	return nil
}

func (a *app) addCmd() *cobra.Command {
	var meal, protein, at string

	cmd := requireAuth(&cobra.Command{
		Use:   "add",
		Short: "Log a meal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.client.AddEntry(cmd.Context(), client.NewEntry{MealName: meal, ProteinAmount: protein, Time: at})
			if err != nil {
				return fmt.Errorf("failed to add entry: %w", err)
			}
			a.agg.OnEntryAdded(cmd.Context())
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%gg). Today: %sg\n", entry.MealName, entry.Amount(), a.agg.View().TodaySum)
			return nil
		},
	})
	cmd.Flags().StringVar(&meal, "meal", "", "meal name")
	cmd.Flags().StringVar(&protein, "protein", "", "protein in grams")
	cmd.Flags().StringVar(&at, "time", "", "when it was eaten (RFC 3339 or YYYY-MM-DD), default now")
	_ = cmd.MarkFlagRequired("meal")
	_ = cmd.MarkFlagRequired("protein")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return requireAuth(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a logged meal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}
			a.agg.OnEntryDeleted(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted. Today: %sg\n", a.agg.View().TodaySum)
			return nil
		},
	})
}

func (a *app) todayCmd() *cobra.Command {
	return requireAuth(&cobra.Command{
		Use:   "today",
		Short: "Show today's meals, total and goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.agg.RefreshAll(cmd.Context())
			v := a.agg.View()
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, map[string]any{
					"proteinGoal":       v.Goal,
					"totalProteinToday": v.TodaySum,
					"todaysEntries":     v.TodayEntries,
				})
			}
			renderEntries(cmd, v.TodayEntries)
			fmt.Fprintf(out, "Total: %sg of %sg\n", v.TodaySum, v.Goal)
			return nil
		},
	})
}

func (a *app) pastCmd() *cobra.Command {
	var date string

	cmd := requireAuth(&cobra.Command{
		Use:   "past",
		Short: "Browse earlier meals, optionally for one date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.agg.RefreshPastEntries(cmd.Context())
			list := a.agg.View().PastEntries
			var sum float64
			if date != "" {
				if _, err := time.Parse("2006-01-02", date); err != nil {
					return errors.New("--date must be YYYY-MM-DD")
				}
				list, sum = a.agg.ForSelectedDate(date)
			} else {
				for _, e := range list {
					sum += e.Amount()
				}
			}

			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{"pastEntries": list, "totalProtein": sum})
			}
			renderEntries(cmd, list)
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %sg\n", strconv.FormatFloat(sum, 'f', -1, 64))
			return nil
		},
	})
	cmd.Flags().StringVar(&date, "date", "", "only show this local date (YYYY-MM-DD)")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var days int

	cmd := requireAuth(&cobra.Command{
		Use:   "history",
		Short: "Daily totals for the last days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return errors.New("--days must be at least 1")
			}
			hist, err := a.client.DailyTotals(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), hist)
			}
			goal, _ := strconv.ParseFloat(hist.ProteinGoal, 64)
			rows := make([][]interface{}, 0, len(hist.Days))
			for _, d := range hist.Days {
				rows = append(rows, []interface{}{d.Date, d.Entries, d.TotalProtein, progress(d.TotalProtein, goal)})
			}
			renderTable(cmd.OutOrStdout(), []string{"Date", "Meals", "Protein (g)", "Goal"}, rows)
			return nil
		},
	})
	cmd.Flags().IntVar(&days, "days", 7, "number of days, 1 to 31")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return requireAuth(&cobra.Command{
		Use:   "import FILE.json",
		Short: "Import meals from a JSON array of {mealName, proteinAmount, time}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := readImportFile(args[0])
			if err != nil {
				return err
			}
			n, err := a.client.Import(cmd.Context(), list)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			a.agg.OnEntryAdded(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries.\n", n)
			return nil
		},
	})
}

type importItem struct {
	MealName      string `json:"mealName"`
	ProteinAmount any    `json:"proteinAmount"`
	Time          string `json:"time"`
}

func readImportFile(path string) ([]client.NewEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []importItem
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	list := make([]client.NewEntry, 0, len(items))
	for _, it := range items {
		amount := ""
		switch v := it.ProteinAmount.(type) {
		case json.Number:
			amount = v.String()
		case string:
			amount = v
		}
		list = append(list, client.NewEntry{MealName: it.MealName, ProteinAmount: amount, Time: it.Time})
	}
	return list, nil
}

func renderEntries(cmd *cobra.Command, list []client.Entry) {
	rows := make([][]interface{}, 0, len(list))
	for _, e := range list {
		rows = append(rows, []interface{}{e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.MealName, e.Amount()})
	}
	renderTable(cmd.OutOrStdout(), []string{"ID", "When", "Meal", "Protein (g)"}, rows)
}

func progress(total, goal float64) string {
	if goal <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", total/goal*100)
}
