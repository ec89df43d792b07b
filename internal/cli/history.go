package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/manifest"
	"github.com/matzehuels/chunksplit/pkg/store"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds",
		Long: `History lists the builds recorded by build, newest first. Use
"history show <id>" to print the manifest of one build, or
"history show <id> -o manifest.json" to restore it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newHistory()
			if err != nil {
				return err
			}
			recs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No builds recorded")
				printDetail("Directory: %s", st.Path())
				return nil
			}
			fmt.Println(historyTable(recs, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of builds to list")
	cmd.AddCommand(c.historyShowCommand())
	return cmd
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the manifest of a recorded build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newHistory()
			if err != nil {
				return err
			}
			rec, err := findRecord(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if output != "" {
				if err := manifest.WriteFile(output, rec.Manifest); err != nil {
					return err
				}
				printSuccess("Restored manifest of build %s", shortBuildID(rec.ID))
				printFile(output)
				return nil
			}
			fmt.Println(StyleTitle.Render(rec.ID))
			printDetail("%s · %s · %s",
				rec.CreatedAt.Local().Format(time.DateTime),
				plural(rec.Stats.Modules, "module"),
				rec.Stats.Duration.Round(time.Millisecond))
			printManifestTable(rec.Manifest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the manifest to this file")
	return cmd
}

// findRecord looks up a build by full id or by a unique id prefix, as shown
// in the history table.
func findRecord(ctx context.Context, st store.Store, id string) (*store.Record, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "build id cannot be empty")
	}
	if store.ValidID(id) {
		rec, err := st.Get(ctx, id)
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.New(errors.ErrCodeNotFound, "no build %s in history", id)
		}
		return rec, err
	}
	recs, err := st.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var found *store.Record
	for _, r := range recs {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if found != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "build id prefix %q is ambiguous", id)
		}
		found = r
	}
	if found == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no build %s in history", id)
	}
	return found, nil
}

// historyTable renders records with their age relative to now.
func historyTable(recs []*store.Record, now time.Time) string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		status := iconFresh
		if r.Stats.CacheHit {
			status = iconCached
		}
		rows[i] = []string{
			shortBuildID(r.ID),
			formatRelativeTime(r.CreatedAt, now),
			strconv.Itoa(r.Stats.Modules),
			strconv.Itoa(r.Stats.Chunks),
			status,
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Build", "When", "Modules", "Chunks", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case col == 0:
				return StyleHighlight.Padding(0, 1)
			case col == 4 && recs[row].Stats.CacheHit:
				return styleCached.Padding(0, 1)
			}
			return StyleDim.Padding(0, 1)
		}).
		String()
}

func shortBuildID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
