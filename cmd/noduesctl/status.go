package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appModels "github.com/yigit/nodues/internal/app/models"
	appServices "github.com/yigit/nodues/internal/app/services"
	"github.com/yigit/nodues/internal/bootstrap"
)

var statusCmd = &cobra.Command{
	Use:   "status <student-id>",
	Short: "Show the per-unit clearance status of a student's latest request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := bootstrap.SetupStore(cmd.Context(), cfg, lgr)
		if err != nil {
			return err
		}
		defer store.Close()

		references := appServices.NewReferenceService(store, cfg.ReferenceCacheTTL(), lgr)
		clearance := appServices.NewClearanceService(store, references, bootstrap.WorkflowPolicy(cfg), lgr)

		req, err := clearance.GetLatest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(req)
		}

		fmt.Printf("Request %d  status: %s  submitted: %s\n", req.ID, req.Status, req.SubmittedAt.Format("2006-01-02 15:04"))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tUNIT\tSTATUS\tOPEN QUERIES")
		for _, t := range req.Tracks {
			open := 0
			for _, q := range t.Queries {
				if q.Status == appModels.QueryPending {
					open++
				}
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", t.StepNumber, t.UnitType, t.Status, open)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if req.Final != nil {
			fmt.Printf("Final decision: %s at %s\n", req.Final.FinalStatus, req.Final.IssuedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
