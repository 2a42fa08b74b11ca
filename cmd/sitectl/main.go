// Command sitectl is the operator tool for the site database: schema
// migrations, the read-only switch, the reader allow-list and gifts.
package main

import (
	"os"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/logging"
)

func main() {
	logger := logging.NewLogger(logging.Config{
		ServiceName: "sitectl",
		Environment: os.Getenv("ENVIRONMENT"),
		Level:       os.Getenv("LOG_LEVEL"),
		Output:      os.Stderr,
	})
	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
