package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"equipcat/internal/format"
	"equipcat/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeMediaPage(page models.MediaPage) error {
	for _, item := range page.Items {
		if err := writePlain("%s\n", formatMediaLine(item)); err != nil {
			return err
		}
	}
	pages := 1
	if page.Limit > 0 && page.Total > 0 {
		pages = (page.Total + page.Limit - 1) / page.Limit
	}
	return writePlain("page %d/%d, %d total\n", page.Page, pages, page.Total)
}

func formatMediaLine(item models.MediaItem) string {
	line := fmt.Sprintf("%s/%s  %s  %s", item.Folder, item.Name, humanize.Bytes(uint64(max(item.SizeBytes, 0))), humanize.Time(item.ModifiedAt))
	if item.Meta.Favorite {
		line = "* " + line
	} else {
		line = "  " + line
	}
	if item.Meta.Title != "" && item.Meta.Title != item.Name {
		line += fmt.Sprintf("  %q", item.Meta.Title)
	}
	return line
}

func writeUsageReport(report models.UsageReport) error {
	lines := []string{fmt.Sprintf("path: %s", report.Path)}
	if report.InUse {
		lines = append(lines, "in_use: yes")
	} else {
		lines = append(lines, "in_use: no")
	}

	groups := []struct {
		name string
		refs []models.UsageRef
	}{
		{models.UsageEntityProducts, report.Products},
		{models.UsageEntityProductImages, report.ProductImages},
		{models.UsageEntityCategories, report.Categories},
		{models.UsageEntityPosts, report.Posts},
		{models.UsageEntityBanners, report.Banners},
	}
	for _, group := range groups {
		if len(group.refs) == 0 {
			continue
		}
		lines = append(lines, group.name+":")
		for _, ref := range group.refs {
			if ref.Label != "" {
				lines = append(lines, fmt.Sprintf("  - %s (%s) via %s", ref.ID, ref.Label, ref.Field))
			} else {
				lines = append(lines, fmt.Sprintf("  - %s via %s", ref.ID, ref.Field))
			}
		}
	}
	if report.Incomplete {
		lines = append(lines, fmt.Sprintf("incomplete: lookups failed for %s", strings.Join(report.Failed, ", ")))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
