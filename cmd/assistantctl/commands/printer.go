package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/benvon/productivity-assistant/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printItems writes one row per item: id, type, priority, status, when, title, tags
func printItems(w io.Writer, items []*models.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No items")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tPRIORITY\tDONE\tWHEN\tTITLE\tTAGS")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Type, item.Priority, doneMark(item.Completed),
			deref(item.Datetime, "-"), item.Title, strings.Join(item.Tags, ","))
	}
	return tw.Flush()
}

// printItem writes every field of one item
func printItem(w io.Writer, item *models.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", item.ID)
	fmt.Fprintf(tw, "Type:\t%s\n", item.Type)
	fmt.Fprintf(tw, "Title:\t%s\n", item.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", deref(item.Description, "-"))
	fmt.Fprintf(tw, "When:\t%s\n", deref(item.Datetime, "-"))
	fmt.Fprintf(tw, "Priority:\t%s\n", item.Priority)
	fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(item.Tags, ", "))
	fmt.Fprintf(tw, "Completed:\t%v\n", item.Completed)
	fmt.Fprintf(tw, "Source:\t%s\n", item.Source)
	if item.ExternalID != nil {
		fmt.Fprintf(tw, "External ID:\t%s\n", *item.ExternalID)
	}
	return tw.Flush()
}

func doneMark(completed bool) string {
	if completed {
		return "x"
	}
	return ""
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
