// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/pedramholi/iran-memorial/internal/config"
	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/models"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the canonical store and progress state.",
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-invalid",
		Short: "Remove records with no usable name",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			preview, _ := cmd.Flags().GetBool("dry-run")
			return runCleanupInvalidVictims(force, preview)
		},
	}

	progressQueryCmd = &cobra.Command{
		Use:   "progress",
		Short: "Inspect raw progress tracker keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			return runRawProgressQuery(limit, prefix)
		},
	}
)

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	cleanupCmd.Flags().Bool("dry-run", false, "List invalid records without deleting")

	progressQueryCmd.Flags().Int("limit", 20, "Number of keys to display")
	progressQueryCmd.Flags().String("prefix", "processed:", "Key prefix to inspect")

	diagnosticsCmd.AddCommand(cleanupCmd)
	diagnosticsCmd.AddCommand(progressQueryCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func runCleanupInvalidVictims(force, preview bool) error {
	if err := openStore(); err != nil {
		return err
	}
	defer database.CloseStore()

	fmt.Printf("Inspecting records in %s\n", config.AppConfig.DatabasePath)

	victims, err := database.GlobalStore.GetAllVictims()
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	invalid := make([]*models.Victim, 0)
	for _, v := range victims {
		if strings.TrimSpace(v.NameLatin) == "" && (v.NameFarsi == nil || strings.TrimSpace(*v.NameFarsi) == "") {
			invalid = append(invalid, v)
		}
	}

	if len(invalid) == 0 {
		fmt.Println("No invalid records detected.")
		return nil
	}

	fmt.Printf("Found %d invalid records:\n", len(invalid))
	for i, v := range invalid {
		fmt.Printf("%2d. ID: %s\n", i+1, v.ID)
		fmt.Printf("    Slug: %s\n", v.Slug)
	}

	if preview {
		fmt.Println("Dry run enabled; no deletions were performed.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Delete %d records", len(invalid)))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted. No records deleted.")
			return nil
		}
	}

	deleted := 0
	for _, v := range invalid {
		if err := database.GlobalStore.DeleteVictim(v.ID); err != nil {
			fmt.Printf("Failed to delete %s: %v\n", v.ID, err)
			continue
		}
		deleted++
	}

	fmt.Printf("Deleted %d invalid records.\n", deleted)
	return nil
}

func runRawProgressQuery(limit int, prefix string) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	db, err := pebble.Open(config.AppConfig.ProgressDir(), &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open progress database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Printf("%s = %s\n", string(iter.Key()), string(iter.Value()))
		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Println("No keys matched the requested prefix.")
	}
	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}
