package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chalkboard/internal/config"
	"chalkboard/internal/locks"
	"chalkboard/internal/session"
	"chalkboard/internal/storage"
	"chalkboard/internal/teacher"
)

// Emergency tool for a classroom stuck behind a stale claim: drops group
// locks (or the teacher seat) straight from the device store, no client
// needed.
var (
	clearGroup   int
	clearAll     bool
	clearTeacher bool
	storagePath  string
)

var clearLocksCmd = &cobra.Command{
	Use:   "clear-locks",
	Short: "Drop advisory locks from the device store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearAll && !clearTeacher && clearGroup == 0 {
			return fmt.Errorf("nothing to clear: pass --all, --teacher or --group N")
		}

		if storagePath == "" {
			storagePath = config.Load().StoragePath
		}
		st, err := storage.NewSQLiteStore(storagePath)
		if err != nil {
			return fmt.Errorf("failed to open device store: %w", err)
		}
		defer st.Close()

		groupLocks := locks.NewStore(st, session.KeyLocks)
		switch {
		case clearAll:
			groupLocks.ClearAll()
			fmt.Println("Cleared all group locks")
		case clearGroup != 0:
			if groupLocks.Clear(strconv.Itoa(clearGroup)) {
				fmt.Printf("Cleared lock for group %d\n", clearGroup)
			} else {
				fmt.Printf("Group %d was not locked\n", clearGroup)
			}
		}

		if clearTeacher {
			seat := locks.NewStore(st, teacher.KeyLock)
			if seat.Clear(locks.TeacherSeat) {
				fmt.Println("Cleared the teacher seat lock")
			} else {
				fmt.Println("The teacher seat was not locked")
			}
		}
		return nil
	},
}

func init() {
	clearLocksCmd.Flags().IntVar(&clearGroup, "group", 0, "group whose lock should be dropped")
	clearLocksCmd.Flags().BoolVar(&clearAll, "all", false, "drop every group lock")
	clearLocksCmd.Flags().BoolVar(&clearTeacher, "teacher", false, "drop the teacher seat lock")
	clearLocksCmd.Flags().StringVar(&storagePath, "storage", "", "device store path (defaults to configuration)")
	rootCmd.AddCommand(clearLocksCmd)
}
