package audit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal"
	"github.com/tinyland-inc/tinydesk/pkg/audit"
)

func NewAuditCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the conversation audit log",
		Args:  cobra.NoArgs,
		Example: `  tinydesk audit
  tinydesk audit --limit 10`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return auditCmd(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N turns")

	return cmd
}

func auditCmd(limit int) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	journal, err := audit.Open(cfg.Storage.AuditPath)
	if err != nil {
		return fmt.Errorf("error opening audit log: %w", err)
	}

	turns := journal.Turns()
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	if len(turns) == 0 {
		fmt.Println("No conversation turns recorded yet.")
		return nil
	}

	for _, t := range turns {
		fmt.Printf("[%s] %s\n", t.Timestamp.Format("2006-01-02 15:04:05"), t.Question)
		if t.Autoreply != "" {
			fmt.Printf("  autoreply: %s\n", t.Autoreply)
		}
		if t.ManualReply != "" {
			fmt.Printf("  manual:    %s\n", t.ManualReply)
		}
		if t.Outcome != "" {
			fmt.Printf("  outcome:   %s\n", t.Outcome)
		}
	}
	fmt.Printf("\n%d turn(s)\n", len(turns))

	return nil
}
