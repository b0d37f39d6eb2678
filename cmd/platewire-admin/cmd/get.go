package cmd

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "List resources",
}

var getWebhooksCmd = &cobra.Command{
	Use:     "webhooks",
	Aliases: []string{"webhook", "wh"},
	Short:   "List webhooks",
	RunE:    runGetWebhooks,
}

var getIntegrationsCmd = &cobra.Command{
	Use:     "integrations",
	Aliases: []string{"integration", "intg"},
	Short:   "List delivery integrations",
	RunE:    runGetIntegrations,
}

var getLogsCmd = &cobra.Command{
	Use:     "logs WEBHOOK_ID",
	Aliases: []string{"log"},
	Short:   "List dispatch log entries for a webhook",
	Args:    cobra.ExactArgs(1),
	RunE:    runGetLogs,
}

func init() {
	// webhooks flags
	getWebhooksCmd.Flags().String("source-type", "", "Filter by source type (shopify, woocommerce, custom)")
	getWebhooksCmd.Flags().String("active", "", "Filter by active status (true/false)")

	// integrations flags
	getIntegrationsCmd.Flags().String("type", "", "Filter by integration type (delivery, payment, pos)")

	// logs flags
	getLogsCmd.Flags().Int("page", 1, "Page number")
	getLogsCmd.Flags().Int("per-page", 20, "Items per page")

	getCmd.AddCommand(getWebhooksCmd)
	getCmd.AddCommand(getIntegrationsCmd)
	getCmd.AddCommand(getLogsCmd)
}

func runGetWebhooks(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetString("source-type"); v != "" {
		params.Set("source_type", v)
	}
	if v, _ := cmd.Flags().GetString("active"); v != "" {
		params.Set("is_active", v)
	}

	path := "/api/v1/webhooks"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resp WebhookListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	case outputWide:
		t := newTable("ID", "NAME", "SOURCE", "DESTINATION", "EVENTS", "ACTIVE", "CALLBACK URL")
		for _, w := range resp.Data {
			t.AddRow(w.ID, truncate(w.Name, 30), w.SourceType, destinationStr(w), strings.Join(w.EventTypes, ","), boolToStr(w.IsActive), w.CallbackURL)
		}
		t.Flush()
	default:
		t := newTable("ID", "NAME", "SOURCE", "DESTINATION", "ACTIVE", "CREATED")
		for _, w := range resp.Data {
			t.AddRow(w.ID, truncate(w.Name, 30), w.SourceType, destinationStr(w), boolToStr(w.IsActive), shortTime(w.CreatedAt))
		}
		t.Flush()
	}
	return nil
}

func destinationStr(w WebhookResponse) string {
	if w.DestinationProvider != "" {
		return w.DestinationType + "/" + w.DestinationProvider
	}
	return w.DestinationType
}

func runGetIntegrations(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		params.Set("type", v)
	}

	path := "/api/v1/integrations"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resp IntegrationListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		t := newTable("ID", "TYPE", "PROVIDER", "ENV", "CREDS", "ACTIVE", "CREATED")
		for _, i := range resp.Data {
			t.AddRow(i.ID, i.Type, i.Provider, i.Environment, boolToStr(i.HasCredentials), boolToStr(i.IsActive), shortTime(i.CreatedAt))
		}
		t.Flush()
	}
	return nil
}

func runGetLogs(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		params.Set("page", strconv.Itoa(v))
	}
	if v, _ := cmd.Flags().GetInt("per-page"); v > 0 {
		params.Set("per_page", strconv.Itoa(v))
	}

	path := "/api/v1/webhooks/" + args[0] + "/logs"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resp DispatchLogListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		t := newTable("ID", "EVENT", "EVENT ID", "STATUS", "OK", "MS", "TIME")
		for _, l := range resp.Data {
			t.AddRow(l.ID, l.EventType, truncate(l.EventID, 24), strconv.Itoa(l.StatusCode), successStr(l.Success), strconv.FormatInt(l.ProcessingTimeMs, 10), shortTime(l.CreatedAt))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	}
	return nil
}
