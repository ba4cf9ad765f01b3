package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/croplab/paddyfield/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage stored run snapshots",
	Long: `Manage run snapshots including listing and cleaning old runs.
Snapshots allow resuming long-running optimizations from saved state.`,
}

var listSnapshotsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored runs",
	Long:  `Display all stored runs with objective, generations, best fitness, age, and on-disk size.`,
	RunE:  runListSnapshots,
}

var cleanSnapshotsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old run snapshots",
	Long: `Delete old runs based on retention policy.
You can keep the most recent N runs or delete runs older than N days.`,
	RunE: runCleanSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(listSnapshotsCmd)
	snapshotsCmd.AddCommand(cleanSnapshotsCmd)

	cleanSnapshotsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N runs (0 = keep all)")
	cleanSnapshotsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanSnapshotsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListSnapshots(cmd *cobra.Command, args []string) error {
	snapshotStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := snapshotStore.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tOBJECTIVE\tTYPE\tGENERATIONS\tBEST FITNESS\tSAVED\tSIZE")
	fmt.Fprintln(w, "------\t---------\t----\t-----------\t------------\t-----\t----")

	for _, info := range infos {
		sizeStr := "-"
		if storeKind == "fs" {
			runDir := filepath.Join(dataDir, "runs", info.RunID)
			if size, err := getDirSize(runDir); err == nil {
				sizeStr = humanize.Bytes(uint64(size))
			}
		}

		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6f\t%s\t%s\n",
			displayID,
			info.Objective,
			info.PaddyType,
			info.Generations,
			info.BestFitness,
			humanize.Time(info.SavedAt),
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

func runCleanSnapshots(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	snapshotStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := snapshotStore.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs to clean.")
		return nil
	}

	toDelete := selectSnapshotsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Printf("  - %s (%d generations, saved %s)\n",
			displayID,
			info.Generations,
			humanize.Time(info.SavedAt),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := snapshotStore.DeleteSnapshot(info.RunID); err != nil {
			slog.Error("failed to delete run", "run_id", info.RunID, "error", err)
			failed++
		} else {
			slog.Info("deleted run", "run_id", info.RunID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectSnapshotsForDeletion applies the retention policy: runs older than
// the cutoff go first, then the oldest runs beyond the keep-last count.
func selectSnapshotsForDeletion(infos []store.SnapshotInfo, keepLast int, olderThanDays int) []store.SnapshotInfo {
	var toDelete []store.SnapshotInfo
	marked := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.SavedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
				marked[info.RunID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.SnapshotInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].SavedAt.Before(sorted[j].SavedAt)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !marked[info.RunID] {
				toDelete = append(toDelete, info)
				marked[info.RunID] = true
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
