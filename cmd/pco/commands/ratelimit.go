package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewRateLimitCommand creates the ratelimit command.
func NewRateLimitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Show rate limit status",
		Long:  "Display the current API rate limit window as reported by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			// The limiter only learns the server's window from response
			// headers, so probe with the cheapest authenticated request.
			_, err = client.People().Me(context.Background())
			if err != nil {
				return fmt.Errorf("failed to probe the API: %w", err)
			}

			info := client.RateLimit()

			rendered, err := renderStructured(info)
			if rendered {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Property", "Value")

			_ = table.Append("Limit", strconv.Itoa(info.Max))
			_ = table.Append("Remaining", strconv.Itoa(info.Remaining))

			resetsIn := time.Until(info.Reset).Round(time.Second)
			if resetsIn < 0 {
				resetsIn = 0
			}

			_ = table.Append("Resets in", resetsIn.String())

			_ = table.Render()

			return nil
		},
	}
}
