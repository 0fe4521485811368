package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/partystat/internal/oplog"
	"github.com/kalambet/partystat/internal/report"
)

// --- units ---

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Manage the unit list",
}

var unitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured units",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/units")
		if err != nil {
			return err
		}

		var result struct {
			Data []struct {
				Name     string `json:"name"`
				FullName string `json:"fullName"`
			} `json:"data"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Data) == 0 {
			fmt.Println("no units configured")
			return nil
		}
		for _, u := range result.Data {
			if u.FullName != "" {
				fmt.Printf("%s\t%s\n", u.Name, u.FullName)
			} else {
				fmt.Println(u.Name)
			}
		}
		return nil
	},
}

var unitsSetCmd = &cobra.Command{
	Use:   "set <units.json>",
	Short: "Replace the unit list from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading units file: %w", err)
		}
		var units []map[string]any
		if err := json.Unmarshal(data, &units); err != nil {
			return fmt.Errorf("parsing units file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/units", map[string]any{"units": units})
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Updated unit list (%d units)", len(units))
		return nil
	},
}

func init() {
	unitsCmd.AddCommand(unitsListCmd)
	unitsCmd.AddCommand(unitsSetCmd)
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Upload a roster spreadsheet for one unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, _ := cmd.Flags().GetString("unit")
		dataType, _ := cmd.Flags().GetString("type")
		if unit == "" || dataType == "" {
			return fmt.Errorf("--unit and --type are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.postFile(cmd.Context(), "/data/upload", args[0], map[string]string{
			"unit": unit,
			"type": dataType,
		})
		if err != nil {
			return err
		}
		var result struct {
			RecordCount int `json:"recordCount"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Uploaded %d records for %s", result.RecordCount, unit)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("unit", "", "unit the spreadsheet belongs to")
	uploadCmd.Flags().String("type", "", "roster category code (1, 2, 4, 5, 6, 7, 10)")
}

// --- summary ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the aggregated summary as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/data/summary")
		if err != nil {
			return err
		}
		var result struct {
			Data json.RawMessage `json:"data"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		var out map[string]any
		if err := json.Unmarshal(result.Data, &out); err != nil {
			return err
		}
		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the consolidated report workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = report.Filename(time.Now())
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.login(cmd.Context()); err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/data/export")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}

		printSuccess("Exported report to %s", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file path (default: dated report name)")
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Rebuild all stored data from a consolidated report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.login(cmd.Context()); err != nil {
			return err
		}

		resp, err := client.postFile(cmd.Context(), "/data/import", args[0], nil)
		if err != nil {
			return err
		}
		var result struct {
			RecordCount int `json:"recordCount"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Imported %d rows", result.RecordCount)
		printWarning("Existing detail data was replaced with synthesized records")
		return nil
	},
}

// --- clear ---

var clearCmd = &cobra.Command{
	Use:   "clear <unit>",
	Short: "Delete all stored data for one unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.login(cmd.Context()); err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/data/unit/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Cleared data for %s", args[0])
		return nil
	},
}

// --- operations ---

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Show recent operation log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.login(cmd.Context()); err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/admin/operations?limit=%d", limit))
		if err != nil {
			return err
		}
		var result struct {
			Data []oplog.Entry `json:"data"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Data) == 0 {
			fmt.Println("no operations recorded")
			return nil
		}
		for _, e := range result.Data {
			fmt.Printf("%s\t%s\t%s\n", e.Timestamp, e.Operation, e.User)
		}
		return nil
	},
}

func init() {
	operationsCmd.Flags().Int("limit", 50, "number of entries to show")
}
