// Package growthctl implements the growthctl command line client.
package growthctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/growthdesk/internal/domain/types"
)

// Default flag values.
const (
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
	outputFileMode = 0o644
)

type rootOptions struct {
	url     string
	timeout time.Duration
}

func (o *rootOptions) client() *Client {
	return NewClient(o.url, o.timeout)
}

// NewRootCommand builds the growthctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "growthctl",
		Short: "Talk to a growthdesk server",
		Long: `growthctl filters candidate lists against a client's invite history
and records new invites on a running growthdesk server.

Profile files are JSON arrays of objects with name, profile_url, title,
organization, location, followers and attributes. Use "-" to read stdin.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", defaultURL, "Base URL of the server")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "HTTP request timeout")

	root.AddCommand(
		newFilterCommand(opts),
		newLogInvitesCommand(opts),
		newRecentCommand(opts),
		newOverviewCommand(opts),
		newClientsCommand(opts),
		newSearchesCommand(opts),
	)
	return root
}

func newFilterCommand(opts *rootOptions) *cobra.Command {
	var client, file, out, part string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Remove already invited or connected candidates",
		Long: `Filter a candidate list for one client.

Without --part the full result is printed as JSON. With --part clean, urls
or stats the matching CSV export is written to --out or stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := readProfiles(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req := types.FilterRequest{Client: client, Candidates: profiles}
			c := opts.client()

			if part != "" {
				data, err := c.Export(cmd.Context(), req, part)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), out, data)
			}

			resp, err := c.Filter(cmd.Context(), req)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if err := writeOutput(cmd.OutOrStdout(), out, append(data, '\n')); err != nil {
				return err
			}
			s := resp.Stats
			fmt.Fprintf(cmd.ErrOrStderr(), "%d in, %d kept (%d invited, %d connected, %d by name), %.2f%% duplicates\n",
				s.Original, s.Final, s.ExcludedInvited, s.ExcludedConnected, s.ExcludedByName, s.DuplicateRate)
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Client name")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with candidate profiles")
	cmd.Flags().StringVar(&out, "out", "", "Write output to this file instead of stdout")
	cmd.Flags().StringVar(&part, "part", "", "CSV export part: clean, urls or stats")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLogInvitesCommand(opts *rootOptions) *cobra.Command {
	var req types.InviteRequest
	var file string
	cmd := &cobra.Command{
		Use:   "log-invites",
		Short: "Record a batch of sent invites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := readProfiles(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Profiles = profiles
			receipt, err := opts.client().LogInvites(cmd.Context(), req)
			if err != nil {
				return err
			}
			if receipt.Replayed {
				fmt.Fprintf(cmd.OutOrStdout(), "batch %s already logged: %s\n", receipt.BatchID, receipt.Summary)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %s\n", receipt.BatchID, receipt.Summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Client, "client", "", "Client name")
	cmd.Flags().StringVar(&req.Category, "category", "", "Invite category")
	cmd.Flags().StringVar(&req.GroupName, "group", "", "Group name")
	cmd.Flags().StringVar(&req.DateCollected, "date", "", "Collection date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&req.GrowthListURL, "list-url", "", "Growth list URL")
	cmd.Flags().StringVar(&req.BatchID, "batch-id", "", "Batch UUID; rerunning with the same ID stores nothing new (default generated)")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with invited profiles")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRecentCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently collected invites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			invites, err := opts.client().RecentInvites(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tCLIENT\tCATEGORY\tNAME\tPROFILE")
			for _, inv := range invites {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inv.DateCollected, inv.Client, inv.Category, inv.Name, inv.ProfileURL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 uses the server default)")
	return cmd
}

func newOverviewCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show invite totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ov, err := opts.client().Overview(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "total invites\t%d\n", ov.TotalInvites)
			fmt.Fprintf(tw, "unique clients\t%d\n", ov.UniqueClients)
			fmt.Fprintf(tw, "invites today\t%d\n", ov.TodayInvites)
			if ov.TopClient != "" {
				fmt.Fprintf(tw, "top client\t%s (%d)\n", ov.TopClient, ov.TopClientInvites)
			}
			fmt.Fprintf(tw, "connections\t%d\n", ov.TotalConnections)
			return tw.Flush()
		},
	}
}

func newClientsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List known clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			clients, err := opts.client().Clients(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(clients, "\n"))
			return err
		},
	}
}

func newSearchesCommand(opts *rootOptions) *cobra.Command {
	var (
		client string
		remove int64
	)
	cmd := &cobra.Command{
		Use:   "searches",
		Short: "List or delete saved engagement searches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			if remove > 0 {
				if err := c.DeleteSearch(cmd.Context(), remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted search %d\n", remove)
				return nil
			}
			searches, err := c.SavedSearches(cmd.Context(), client)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCLIENT\tNAME\tCATEGORIES")
			for _, ss := range searches {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ss.ID, ss.Query.Client, ss.Name, strings.Join(ss.Query.Categories, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Only list searches of this client")
	cmd.Flags().Int64Var(&remove, "delete", 0, "Delete the search with this ID")
	return cmd
}

// readProfiles decodes a JSON array of profiles from path, or stdin for "-".
func readProfiles(path string, stdin io.Reader) ([]types.Profile, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open profiles: %w", err)
		}
		defer f.Close()
		r = f
	}
	var profiles []types.Profile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("decode profiles from %s: %w", path, err)
	}
	return profiles, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, outputFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
