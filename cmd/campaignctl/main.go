// Command campaignctl drives the voice campaign API from a terminal.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

type rootOptions struct {
	server  string
	tenant  string
	user    string
	role    string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
	client *apiClient
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "campaignctl",
		Short:         "Submit, inspect, cancel and retry voice campaigns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger

			if strings.TrimSpace(opts.tenant) == "" {
				return errors.New("a tenant is required (--tenant or CAMPAIGNCTL_TENANT)")
			}
			opts.client = newAPIClient(opts.server, opts.tenant, opts.user, opts.role, opts.timeout, logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("CAMPAIGNCTL_SERVER", "http://localhost:8080"), "campaign API base URL")
	flags.StringVar(&opts.tenant, "tenant", os.Getenv("CAMPAIGNCTL_TENANT"), "tenant id sent as X-Tenant-ID")
	flags.StringVar(&opts.user, "user", os.Getenv("CAMPAIGNCTL_USER"), "user id sent as X-User-ID")
	flags.StringVar(&opts.role, "role", os.Getenv("CAMPAIGNCTL_ROLE"), "role sent as X-User-Role")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSubmitCmd(opts),
		newListCmd(opts),
		newGetCmd(opts),
		newStatusCmd(opts),
		newCancelCmd(opts),
		newRetryCmd(opts),
		newSetCredentialCmd(opts),
	)
	return root
}

func printData(w io.Writer, resp *apiResponse) error {
	var out bytes.Buffer
	if err := json.Indent(&out, resp.Data, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid campaign id %q", arg)
	}
	return id, nil
}

// parseAgent reads "agent_id:phone_number_id".
func parseAgent(raw string) (model.RoutingAgent, error) {
	agentID, phoneID, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(agentID) == "" || strings.TrimSpace(phoneID) == "" {
		return model.RoutingAgent{}, fmt.Errorf("agent %q must look like agent_id:phone_number_id", raw)
	}
	return model.RoutingAgent{AgentID: strings.TrimSpace(agentID), PhoneNumberID: strings.TrimSpace(phoneID)}, nil
}

func parseDays(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var days []int
	for _, part := range strings.Split(raw, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, d)
	}
	return days, nil
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var (
		name, csvPath, provider, campaignType, schedule, correlationID string
		agents                                                         []string
		amd                                                            bool
		amdTimeout, concurrency                                        int
		windowStart, windowEnd, windowDays, windowTZ                   string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a campaign from a CSV of recipients",
		Long: `Submits a campaign. The CSV needs a phone_number (or phone) column;
every other column is sent as a per-recipient variable.

Example:
  campaignctl submit --name "Renewals" --agent agent-1:pn-1 --csv renewals.csv --amd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()
			recipients, err := readRecipientsCSV(f)
			if err != nil {
				return err
			}

			body := map[string]any{
				"name":        name,
				"recipients":  recipients,
				"amd_enabled": amd,
				"amd_timeout": amdTimeout,
				"concurrency": concurrency,
			}
			routing := make([]model.RoutingAgent, 0, len(agents))
			for _, raw := range agents {
				a, err := parseAgent(raw)
				if err != nil {
					return err
				}
				routing = append(routing, a)
			}
			body["agents"] = routing
			if provider != "" {
				body["phone_provider"] = provider
			}
			if campaignType != "" {
				body["campaign_type"] = campaignType
			}
			if correlationID != "" {
				body["correlation_id"] = correlationID
			}
			if schedule != "" {
				at, err := time.Parse(time.RFC3339, schedule)
				if err != nil {
					return fmt.Errorf("--schedule must be RFC3339: %w", err)
				}
				body["scheduled_at"] = at
			}
			if windowStart != "" || windowEnd != "" || windowDays != "" || windowTZ != "" {
				days, err := parseDays(windowDays)
				if err != nil {
					return err
				}
				body["time_window"] = model.TimeWindow{StartTime: windowStart, EndTime: windowEnd, DaysOfWeek: days, Timezone: windowTZ}
			}

			resp, err := opts.client.do(cmd.Context(), http.MethodPost, "/campaigns", body)
			if err != nil {
				// A partial submission still carries the created campaign.
				if resp != nil && len(resp.Data) > 0 {
					_ = printData(cmd.OutOrStdout(), resp)
				}
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "campaign name")
	f.StringVar(&csvPath, "csv", "", "recipients CSV file")
	f.StringArrayVar(&agents, "agent", nil, "routing agent as agent_id:phone_number_id (repeatable)")
	f.BoolVar(&amd, "amd", false, "enable answering machine detection")
	f.IntVar(&amdTimeout, "amd-timeout", 20, "AMD timeout in seconds (1-30)")
	f.IntVar(&concurrency, "concurrency", 10, "parallel calls (1-100)")
	f.StringVar(&provider, "provider", "", "phone provider hint")
	f.StringVar(&campaignType, "type", "", "campaign type tag")
	f.StringVar(&schedule, "schedule", "", "start time (RFC3339)")
	f.StringVar(&correlationID, "correlation-id", "", "explicit correlation id")
	f.StringVar(&windowStart, "window-start", "", "daily window start HH:MM")
	f.StringVar(&windowEnd, "window-end", "", "daily window end HH:MM")
	f.StringVar(&windowDays, "window-days", "", "weekdays 1-7, comma separated (1=Monday)")
	f.StringVar(&windowTZ, "window-tz", "", "IANA timezone of the window")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var page, pageSize int
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("page_size", strconv.Itoa(pageSize))
			if status != "" {
				q.Set("status", status)
			}
			resp, err := opts.client.do(cmd.Context(), http.MethodGet, "/campaigns?"+q.Encode(), nil)
			if err != nil {
				return err
			}

			var campaigns []model.Campaign
			if err := json.Unmarshal(resp.Data, &campaigns); err != nil {
				return fmt.Errorf("decode campaigns: %w", err)
			}
			w := cmd.OutOrStdout()
			for _, c := range campaigns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n", c.ID, c.Status, c.Name, c.ProcessedRecipients, c.TotalRecipients)
			}
			fmt.Fprintf(w, "page %d of %d (%d campaigns)\n", resp.Pagination["page"], resp.Pagination["total_pages"], resp.Pagination["total_count"])
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size (max 100)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func idCommand(opts *rootOptions, use, short, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := opts.client.do(cmd.Context(), method, "/campaigns/"+strconv.FormatInt(id, 10)+suffix, nil)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return idCommand(opts, "get", "Show the stored campaign record", http.MethodGet, "")
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return idCommand(opts, "status", "Reconcile with the dispatch service and show recipients", http.MethodGet, "/status")
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return idCommand(opts, "cancel", "Cancel a running campaign", http.MethodPost, "/cancel")
}

func newRetryCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "retry ID",
		Short: "Start a new campaign for recipients that did not complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body := map[string]any{}
			if name != "" {
				body["name"] = name
			}
			resp, err := opts.client.do(cmd.Context(), http.MethodPost, "/campaigns/"+strconv.FormatInt(id, 10)+"/retry", body)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the retry campaign")
	return cmd
}

func newSetCredentialCmd(opts *rootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "set-credential",
		Short: "Store the tenant's dispatch API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("DISPATCH_API_KEY")
			}
			resp, err := opts.client.do(cmd.Context(), http.MethodPut, "/settings/dispatch-credential", map[string]string{"api_key": key})
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "API key (defaults to $DISPATCH_API_KEY)")
	return cmd
}
