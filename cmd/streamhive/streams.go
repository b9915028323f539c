package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamhive/watchparty/internal/api"
)

func newCreateCmd() *cobra.Command {
	var params api.CreateStreamParams

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stream you host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			details, err := a.CreateStream(cmd.Context(), &params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %q (%s)\n", details.Title, details.ID)
			if title, err := a.VideoTitle(cmd.Context(), params.VideoURL); err == nil && title != "" {
				fmt.Fprintf(out, "video: %s\n", title)
			}
			fmt.Fprintf(out, "share: %s\n", a.ShareLink(details.ID))
			fmt.Fprintf(out, "start it with: streamhive watch %s\n", details.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.Title, "title", "", "Stream title")
	flags.StringVar(&params.Description, "description", "", "Stream description")
	flags.BoolVar(&params.IsPublic, "public", false, "List the stream publicly")
	flags.StringVar(&params.VideoURL, "url", "", "HLS or YouTube url to play")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("url")

	return cmd
}

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Manage streams",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stream you host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.DeleteStream(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}
