// TinyDesk - Telegram support-desk relay bot

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal"
	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal/audit"
	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal/gateway"
	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal/version"
)

func NewTinydeskCommand() *cobra.Command {
	short := fmt.Sprintf("%s tinydesk - Support Desk Relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "tinydesk",
		Short:   short,
		Example: "tinydesk gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		audit.NewAuditCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTinydeskCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
