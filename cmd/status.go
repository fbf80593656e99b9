// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/pkg/repo"
	"github.com/benkuhn/migrator/pkg/state"
)

type statusReport struct {
	SchemaInitialized bool   `json:"schema_initialized"`
	OnDiskRevisions   int    `json:"on_disk_revisions"`
	LastPhase         string `json:"last_phase,omitempty"`
	InProgress        bool   `json:"in_progress"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the migrator schema is initialized and where the audit log last left off",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		report, err := buildStatusReport(ctx, s.state, s.revisions)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func buildStatusReport(ctx context.Context, st *state.State, revisions []repo.Revision) (*statusReport, error) {
	setUp, err := st.IsSetUp(ctx)
	if err != nil {
		return nil, err
	}
	report := &statusReport{
		SchemaInitialized: setUp,
		OnDiskRevisions:   len(revisions),
	}
	if !setUp {
		return report, nil
	}

	last, err := st.GetLatestAudit(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return report, nil
	}

	report.InProgress = last.FinishedAt == nil
	report.LastPhase = fmt.Sprintf("revision %d, change %d, phase %d (revert=%t)",
		last.Index.Revision, last.Index.Change, last.Index.Phase, last.IsRevert)
	return report, nil
}
