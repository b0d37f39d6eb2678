package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show details of a resource",
}

var describeWebhookCmd = &cobra.Command{
	Use:     "webhook ID",
	Aliases: []string{"wh"},
	Short:   "Show webhook details",
	Args:    cobra.ExactArgs(1),
	RunE:    runDescribeWebhook,
}

var describeIntegrationCmd = &cobra.Command{
	Use:     "integration ID",
	Aliases: []string{"intg"},
	Short:   "Show integration details",
	Args:    cobra.ExactArgs(1),
	RunE:    runDescribeIntegration,
}

func init() {
	describeCmd.AddCommand(describeWebhookCmd)
	describeCmd.AddCommand(describeIntegrationCmd)
}

func runDescribeWebhook(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Get("/api/v1/webhooks/" + args[0])
	if err != nil {
		return err
	}

	var resp WebhookResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("Name:           %s\n", resp.Name)
		fmt.Printf("ID:             %s\n", resp.ID)
		if resp.Description != "" {
			fmt.Printf("Description:    %s\n", resp.Description)
		}
		fmt.Printf("Callback URL:   %s\n", resp.CallbackURL)
		if resp.EndpointURL != "" {
			fmt.Printf("Endpoint URL:   %s\n", resp.EndpointURL)
		}
		fmt.Printf("Source:         %s", resp.SourceType)
		if resp.SourceProvider != "" {
			fmt.Printf(" (%s)", resp.SourceProvider)
		}
		fmt.Println()
		fmt.Printf("Destination:    %s", resp.DestinationType)
		if resp.DestinationProvider != "" {
			fmt.Printf(" (%s)", resp.DestinationProvider)
		}
		fmt.Println()
		fmt.Printf("Event Types:    %s\n", strings.Join(resp.EventTypes, ", "))
		fmt.Printf("Active:         %s\n", boolToStr(resp.IsActive))
		fmt.Printf("Created:        %s\n", shortTime(resp.CreatedAt))
		fmt.Printf("Updated:        %s\n", shortTime(resp.UpdatedAt))
	}
	return nil
}

func runDescribeIntegration(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Get("/api/v1/integrations/" + args[0])
	if err != nil {
		return err
	}

	var resp IntegrationResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("ID:             %s\n", resp.ID)
		fmt.Printf("Type:           %s\n", resp.Type)
		fmt.Printf("Provider:       %s\n", resp.Provider)
		fmt.Printf("Environment:    %s\n", resp.Environment)
		fmt.Printf("Credentials:    %s\n", credsStr(resp.HasCredentials))
		if resp.WebhookURL != "" {
			fmt.Printf("Webhook URL:    %s\n", resp.WebhookURL)
		}
		fmt.Printf("Active:         %s\n", boolToStr(resp.IsActive))
		fmt.Printf("Created:        %s\n", shortTime(resp.CreatedAt))
		fmt.Printf("Updated:        %s\n", shortTime(resp.UpdatedAt))
		if len(resp.Settings) > 0 {
			fmt.Println("Settings:")
			for k, v := range resp.Settings {
				fmt.Printf("  %s: %v\n", k, v)
			}
		}
	}
	return nil
}

func credsStr(has bool) string {
	if has {
		return "configured (write-only)"
	}
	return "not configured"
}
