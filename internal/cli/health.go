package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			out := NewOutput(cfg.Output)

			err := client.Get("/api/v1/health", &result)
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.Status == http.StatusServiceUnavailable {
				// Unhealthy servers still describe themselves
				if json.Unmarshal(httpErr.Body, &result) == nil && result.Status != "" {
					out.Print(result)
					return fmt.Errorf("server is %s", result.Status)
				}
			}
			if err != nil {
				return err
			}

			out.Print(result)
			return nil
		},
	}
}
