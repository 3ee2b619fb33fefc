package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"roster-go/internal/app"
	"roster-go/internal/config"
	"roster-go/internal/roster"
	"roster-go/internal/solver"
)

// jsonOutput switches every command to the uniform {success, error, data}
// envelope on stdout, the format the desktop front-end consumes.
var jsonOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// finish reports a command's outcome. In --json mode it always writes the
// envelope to stdout and exits non-zero on failure; otherwise the error is
// handed back to cobra for normal reporting.
func finish(data any, err error) error {
	if jsonOutput {
		res := app.OK(data)
		if err != nil {
			res = app.Fail(err)
		}
		res.WriteJSON(os.Stdout)
		if err != nil {
			os.Exit(1)
		}
		return nil
	}
	return err
}

// promptPassphrase reads a passphrase from the terminal without echo.
// When confirm is true it asks twice and requires both entries to match.
func promptPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(first), nil
}

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Exam surveillance roster manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Type)
		fmt.Printf("Archive:   %s\n", cfg.Archive.Type)
		return nil
	},
}

// session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved roster sessions",
}

var sessionSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save the current solution as a named session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		semester, _ := cmd.Flags().GetString("semester")
		file, _ := cmd.Flags().GetString("file")

		a, err := newApp("SaveSession")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		id, err := a.SaveSession(cmd.Context(), args[0], typ, semester, file)
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Session saved with id %d\n", id)
		}
		return finish(map[string]any{"sessionId": id}, nil)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSessions")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		sessions, err := a.ListSessions(cmd.Context())
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			if len(sessions) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}
			for _, s := range sessions {
				fmt.Printf("#%d  %-30s  %-11s  %s %d  %s  %d assignments, %d teachers\n",
					s.ID, s.Name, s.Type, s.Semester, s.Year,
					s.CreatedAt.Format("2006-01-02 15:04:05"),
					s.TotalAssignments, s.TeacherCount)
			}
		}
		return finish(map[string]any{"sessions": sessions}, nil)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a session with its assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return finish(nil, fmt.Errorf("invalid session id: %s", args[0]))
		}

		a, err := newApp("SessionDetails")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		details, err := a.SessionDetails(cmd.Context(), id)
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			s := details.Session
			fmt.Printf("#%d %s (%s, %s %d) saved %s\n\n",
				s.ID, s.Name, s.Type, s.Semester, s.Year,
				s.CreatedAt.Format("2006-01-02 15:04:05"))
			for _, as := range details.Assignments {
				fmt.Printf("%-12s day %d  %-10s %s-%s  %-8s %s %s (%s)\n",
					as.Date, as.DayNumber, as.Slot, as.TimeStart, as.TimeEnd,
					as.TeacherID, as.FirstName, as.LastName, as.Grade)
			}
		}
		return finish(details, nil)
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a session and its mirror file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return finish(nil, fmt.Errorf("invalid session id: %s", args[0]))
		}

		a, err := newApp("DeleteSession")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		if err := a.DeleteSession(cmd.Context(), id); err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Session %d deleted\n", id)
		}
		return finish(nil, nil)
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export ID DEST",
	Short: "Export a session's spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return finish(nil, fmt.Errorf("invalid session id: %s", args[0]))
		}

		dest, err := filepath.Abs(args[1])
		if err != nil {
			return finish(nil, fmt.Errorf("resolving path: %w", err))
		}

		a, err := newApp("ExportSession")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		if err := a.ExportSession(cmd.Context(), id, dest); err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Exported to %s\n", dest)
		}
		return finish(map[string]any{"path": dest}, nil)
	},
}

var sessionArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Push a session's spreadsheet to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return finish(nil, fmt.Errorf("invalid session id: %s", args[0]))
		}

		a, err := newApp("ArchiveSession")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		name, err := a.ArchiveSession(cmd.Context(), id)
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Archived as %s\n", name)
		}
		return finish(map[string]any{"object": name}, nil)
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the latest session",
}

var editSwapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap two teachers between their slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		t1 := roster.TeacherSlot{}
		t2 := roster.TeacherSlot{}
		t1.TeacherID, _ = cmd.Flags().GetString("teacher1")
		t1.Day, _ = cmd.Flags().GetInt("day1")
		t1.Slot, _ = cmd.Flags().GetString("slot1")
		t2.TeacherID, _ = cmd.Flags().GetString("teacher2")
		t2.Day, _ = cmd.Flags().GetInt("day2")
		t2.Slot, _ = cmd.Flags().GetString("slot2")

		a, err := newApp("SwapTeachers")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		if err := a.SwapTeachers(cmd.Context(), t1, t2); err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Swapped teacher %s (day %d, %s) with teacher %s (day %d, %s)\n",
				t1.TeacherID, t1.Day, t1.Slot, t2.TeacherID, t2.Day, t2.Slot)
		}
		return finish(nil, nil)
	},
}

var editMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a teacher to a different slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		teacher, _ := cmd.Flags().GetString("teacher")
		from := roster.SlotRef{}
		to := roster.SlotRef{}
		from.Day, _ = cmd.Flags().GetInt("from-day")
		from.Slot, _ = cmd.Flags().GetString("from-slot")
		to.Day, _ = cmd.Flags().GetInt("to-day")
		to.Slot, _ = cmd.Flags().GetString("to-slot")

		a, err := newApp("MoveTeacher")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		if err := a.MoveTeacher(cmd.Context(), teacher, from, to); err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Moved teacher %s from (day %d, %s) to (day %d, %s)\n",
				teacher, from.Day, from.Slot, to.Day, to.Slot)
		}
		return finish(nil, nil)
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics for the latest session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DashboardStats")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		stats, err := a.DashboardStats(cmd.Context())
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			printStats(stats)
		}
		return finish(stats, nil)
	},
}

func printStats(stats *roster.DashboardStats) {
	s := stats.Session
	fmt.Printf("Latest session: #%d %s (%s, %s %d)\n\n", s.ID, s.Name, s.Type, s.Semester, s.Year)

	o := stats.Overview
	fmt.Printf("Assignments: %d   Teachers: %d   Days: %d   Responsible: %d   Hours: %d\n\n",
		o.TotalAssignments, o.UniqueTeachers, o.TotalDays,
		o.TeachersWithResponsibility, o.TotalHours)

	fmt.Println("By grade:")
	for _, g := range stats.StatsByGrade {
		fmt.Printf("  %-12s %3d teachers  %4d assignments  %3d responsible  %4dh\n",
			g.Grade, g.TeacherCount, g.TotalAssignments, g.ResponsibleCount, g.TotalHours)
	}

	fmt.Println("\nTop teachers:")
	for _, t := range stats.TopTeachers {
		fmt.Printf("  %-8s %-25s %-12s %3d assignments  %4dh\n",
			t.TeacherID, t.FirstName+" "+t.LastName, t.Grade, t.AssignmentCount, t.TotalHours)
	}

	fmt.Println("\nBy day:")
	for _, d := range stats.AssignmentsByDay {
		fmt.Printf("  day %2d  %-12s %3d teachers  %4d assignments\n",
			d.DayNumber, d.Date, d.TeacherCount, d.AssignmentCount)
	}

	fmt.Println("\nBy slot:")
	for _, sl := range stats.AssignmentsBySlot {
		fmt.Printf("  %-10s %4d assignments  %3d teachers\n", sl.Slot, sl.Count, sl.UniqueTeachers)
	}

	fmt.Println("\nExam counts:")
	for _, e := range stats.ExamStats {
		fmt.Printf("  %2d exams  used %3d times over %2d days\n", e.ExamCount, e.UsageCount, e.DaysUsed)
	}
}

// solve command
var solveCmd = &cobra.Command{
	Use:   "solve TEACHERS WISHES EXAMS",
	Short: "Run the optimization solver over the three input spreadsheets",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		gradeHoursJSON, _ := cmd.Flags().GetString("grade-hours")

		in := solver.SolveInput{
			TeachersFile: args[0],
			WishesFile:   args[1],
			ExamsFile:    args[2],
		}
		if gradeHoursJSON != "" {
			if err := json.Unmarshal([]byte(gradeHoursJSON), &in.GradeHours); err != nil {
				return finish(nil, fmt.Errorf("invalid --grade-hours JSON: %w", err))
			}
		}

		a, err := newApp("Solve")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		if err := a.Solve(cmd.Context(), in); err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Println("Solution generated")
		}
		return finish(nil, nil)
	},
}

// docs command
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate surveillance documents",
}

var docsGlobalCmd = &cobra.Command{
	Use:   "global",
	Short: "Generate all per-slot sheets and convocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GenerateGlobalDocs")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		report, err := a.GenerateGlobalDocs(cmd.Context())
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("%s\n", report)
		}
		return finish(report, nil)
	},
}

var docsTeacherCmd = &cobra.Command{
	Use:   "teacher ID",
	Short: "Generate one teacher's convocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		teacherID, err := strconv.Atoi(args[0])
		if err != nil {
			return finish(nil, fmt.Errorf("invalid teacher id: %s", args[0]))
		}

		a, err := newApp("GenerateTeacherDoc")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		report, err := a.GenerateTeacherDoc(cmd.Context(), teacherID)
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("%s\n", report)
		}
		return finish(report, nil)
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Store an input spreadsheet in the uploads directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := filepath.Abs(args[0])
		if err != nil {
			return finish(nil, fmt.Errorf("resolving path: %w", err))
		}

		a, err := newApp("Upload")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		dest, err := a.Upload(src)
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Stored at %s\n", dest)
		}
		return finish(map[string]any{"path": dest}, nil)
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the history database",
}

var dbSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the snapshot encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptPassphrase(true)
		if err != nil {
			return err
		}

		if err := a.SetupEncryption(passphrase); err != nil {
			return err
		}

		fmt.Println("Encryption keys generated")
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot, encrypt, and archive the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupDatabase")
		if err != nil {
			return finish(nil, err)
		}
		defer a.Close()

		name, err := a.BackupDatabase()
		if err != nil {
			return finish(nil, err)
		}

		if !jsonOutput {
			fmt.Printf("Snapshot stored as %s\n", name)
		}
		return finish(map[string]any{"object": name}, nil)
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore OBJECT DEST",
	Short: "Retrieve and decrypt an archived snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		a, err := newApp("RestoreDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptPassphrase(false)
		if err != nil {
			return err
		}

		if err := a.RestoreDatabase(args[0], passphrase, dest); err != nil {
			return err
		}

		fmt.Printf("Snapshot restored to %s\n", dest)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON envelopes")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// session subcommands
	sessionSaveCmd.Flags().String("type", "principale", "Session type: principale or rattrapage")
	sessionSaveCmd.Flags().String("semester", "S1", "Semester: S1 or S2")
	sessionSaveCmd.Flags().String("file", "", "Roster spreadsheet to save (default: active solution)")
	sessionCmd.AddCommand(sessionSaveCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionExportCmd)
	sessionCmd.AddCommand(sessionArchiveCmd)

	// edit subcommands
	editSwapCmd.Flags().String("teacher1", "", "First teacher id")
	editSwapCmd.Flags().Int("day1", 0, "First teacher's day number")
	editSwapCmd.Flags().String("slot1", "", "First teacher's slot label")
	editSwapCmd.Flags().String("teacher2", "", "Second teacher id")
	editSwapCmd.Flags().Int("day2", 0, "Second teacher's day number")
	editSwapCmd.Flags().String("slot2", "", "Second teacher's slot label")
	editSwapCmd.MarkFlagRequired("teacher1")
	editSwapCmd.MarkFlagRequired("teacher2")
	editMoveCmd.Flags().String("teacher", "", "Teacher id to move")
	editMoveCmd.Flags().Int("from-day", 0, "Current day number")
	editMoveCmd.Flags().String("from-slot", "", "Current slot label")
	editMoveCmd.Flags().Int("to-day", 0, "Destination day number")
	editMoveCmd.Flags().String("to-slot", "", "Destination slot label")
	editMoveCmd.MarkFlagRequired("teacher")
	editCmd.AddCommand(editSwapCmd)
	editCmd.AddCommand(editMoveCmd)

	// solve flags
	solveCmd.Flags().String("grade-hours", "", "Per-grade hour targets as JSON, e.g. '{\"MCA\": 12}'")

	// docs subcommands
	docsCmd.AddCommand(docsGlobalCmd)
	docsCmd.AddCommand(docsTeacherCmd)

	// db subcommands
	dbCmd.AddCommand(dbSetupCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbRestoreCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(dbCmd)
}
