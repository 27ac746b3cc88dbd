package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/fridge/sqlite"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const (
	nameColumn     = 24
	categoryColumn = 8
	timeLayout     = "2006-01-02 15:04"
)

func (a *app) recipesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List saved recipes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listRecipes(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&a.limit, "limit", sqlite.DefaultListLimit, "Maximum number of recipes to list")
	return cmd
}

func (a *app) listRecipes(ctx context.Context) error {
	recipes, err := a.history(ctx)
	if err != nil {
		return err
	}
	if len(recipes) == 0 {
		fmt.Fprintln(a.stdout, "尚無儲存的食譜。")
		return nil
	}
	writeRecipeTable(a.stdout, recipes)
	return nil
}

// writeRecipeTable prints one row per recipe with columns aligned by
// display width, so CJK names line up.
func writeRecipeTable(w io.Writer, recipes []sqlite.SavedRecipe) {
	for _, r := range recipes {
		group := r.GroupID
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			r.CreatedAt.Local().Format(timeLayout),
			column(r.Name, nameColumn),
			column(r.Category, categoryColumn),
			group,
			r.ID,
		)
	}
}

func column(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func (a *app) notificationsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List a group's recipe notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listNotifications(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", sqlite.DefaultListLimit, "Maximum number of notifications to list")
	return cmd
}

func (a *app) listNotifications(ctx context.Context, limit int) error {
	if a.cfg.GroupID == "" {
		return errors.New("notifications belong to a group: use --group or group_id in the config file")
	}
	notes, err := a.store.ListNotifications(ctx, a.cfg.GroupID, limit)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(a.stdout, "尚無通知。")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintf(a.stdout, "%s  %s  %s", n.CreatedAt.Local().Format(timeLayout), n.Title, n.Body)
		if n.UserID != "" {
			fmt.Fprintf(a.stdout, "  (%s)", n.UserID)
		}
		fmt.Fprintf(a.stdout, "  [%s]\n", strings.Join(n.RecipeIDs, ","))
	}
	return nil
}
