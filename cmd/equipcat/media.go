package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"equipcat/internal/api"
	"equipcat/internal/config"
	"equipcat/internal/models"
)

func newMediaCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Inspect and prune the media library",
	}

	cmd.AddCommand(newMediaListCmd(cfg, jsonOutput))
	cmd.AddCommand(newMediaUsageCmd(cfg, jsonOutput))
	cmd.AddCommand(newMediaRemoveCmd(cfg, jsonOutput))
	return cmd
}

func newMediaListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		folder string
		search string
		page   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List media files, favorites first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListMedia(commandContext(cmd), folder, search, page, limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeMediaPage(resp)
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", models.MediaFolderAll, "products|posts|banners|categories|all")
	cmd.Flags().StringVar(&search, "search", "", "match filename, title, alt, caption or description")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (server default when 0)")
	return cmd
}

func newMediaUsageCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <folder> <name>",
		Short: "Show which catalog documents reference a file",
		Args:  requireFolderAndName,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				report, err := client.MediaUsage(commandContext(cmd), args[0], args[1])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(report)
				}
				return writeUsageReport(report)
			})
		},
	}
}

func newMediaRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <folder> <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a file that nothing references",
		Args:    requireFolderAndName,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteMedia(commandContext(cmd), args[0], args[1])
				if err != nil {
					return withUsageDetails(err, *jsonOutput)
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("deleted %s/%s\n", resp.Folder, resp.Name)
			})
		},
	}
}

// withUsageDetails prints the blocking references carried by an in-use error
// and returns err unchanged.
func withUsageDetails(err error, jsonOutput bool) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var report models.UsageReport
	ok, decodeErr := apiErr.DecodeDetails(&report)
	if decodeErr != nil {
		return fmt.Errorf("%w (usage details unreadable: %v)", err, decodeErr)
	}
	if !ok {
		return err
	}

	if jsonOutput {
		_ = writeJSON(report)
	} else {
		_ = writeUsageReport(report)
	}
	return err
}
