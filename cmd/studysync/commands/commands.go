package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/config"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/sync/localstore"
	"github.com/studyflow/core/internal/sync/remote"
	"github.com/studyflow/core/internal/sync/service"
)

// DefaultStorePath returns the default location of the local database.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "studysync.db"
	}
	return filepath.Join(home, ".studysync", "studysync.db")
}

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the StudyFlow server",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			if email == "" || password == "" {
				log.Fatal("Email and password are required")
			}

			runLogin(cmd, email, password)
		},
	}

	loginCmd.Flags().String("email", "", "Account email (required)")
	loginCmd.Flags().String("password", "", "Account password (required)")

	return loginCmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore(cmd)
			defer store.Close()

			ctx := context.Background()
			userID, _, err := store.Session(ctx)
			if err != nil {
				fmt.Println("No active session")
				return
			}

			if err := store.ClearSession(ctx, userID); err != nil {
				log.Fatalf("Failed to clear session: %v", err)
			}
			fmt.Println("Logged out")
		},
	}
}

// NewPullCommand creates the pull command
func NewPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch the remote study plan and merge local edits into it",
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			local, err := env.Store.GetSnapshot(ctx, env.UserID)
			if err != nil && !errors.Is(err, entities.ErrSnapshotNotFound) {
				log.Fatalf("Failed to read local snapshot: %v", err)
			}

			snap, err := env.Sync.PullChanges(ctx, service.PullRequest{
				UserID:    env.UserID,
				LocalData: local,
			})
			if err != nil {
				log.Fatalf("Pull failed: %v", err)
			}

			if snap == nil {
				fmt.Println("No remote plan yet; push to create one")
				return
			}
			fmt.Printf("Pulled plan: %d tasks\n", snap.TaskCount())
		},
	}
}

// NewPushCommand creates the push command
func NewPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the local study plan to the server",
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap := loadOrSeedSnapshot(ctx, env)

			err := env.Sync.PushChanges(ctx, service.PushRequest{
				UserID: env.UserID,
				Data:   snap,
			})
			if err != nil {
				log.Fatalf("Push failed: %v", err)
			}
			fmt.Printf("Pushed plan: %d tasks\n", snap.TaskCount())
		},
	}
}

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local plan and whether the server has newer data",
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap, err := env.Store.GetSnapshot(ctx, env.UserID)
			if err != nil {
				if errors.Is(err, entities.ErrSnapshotNotFound) {
					fmt.Println("Local plan: empty")
				} else {
					log.Fatalf("Failed to read local snapshot: %v", err)
				}
			} else {
				fmt.Printf("Local plan: %d tasks, %d pending deletions\n",
					snap.TaskCount(), len(snap.Tombstones))
			}

			lastSync, err := env.Store.LastSync(ctx, env.UserID)
			if err == nil && lastSync > 0 {
				fmt.Printf("Last sync: %s\n", time.UnixMilli(lastSync).Local().Format(time.RFC1123))
			}

			if env.Sync.CheckForUpdates(ctx, env.UserID) {
				fmt.Println("Server has newer data; run pull")
			} else {
				fmt.Println("Up to date with server")
			}
		},
	}
}

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync cycle, or keep syncing on an interval",
		Run: func(cmd *cobra.Command, args []string) {
			every, _ := cmd.Flags().GetDuration("every")

			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()

			if every > 0 {
				fmt.Printf("Syncing every %s, Ctrl-C to stop\n", every)
				env.Sync.RunPeriodic(ctx, env.UserID, every)
				return
			}

			local, err := env.Store.GetSnapshot(ctx, env.UserID)
			if err != nil && !errors.Is(err, entities.ErrSnapshotNotFound) {
				log.Fatalf("Failed to read local snapshot: %v", err)
			}

			snap, err := env.Sync.PullChanges(ctx, service.PullRequest{
				UserID:    env.UserID,
				LocalData: local,
			})
			if err != nil {
				log.Fatalf("Sync failed: %v", err)
			}

			if snap == nil {
				snap = loadOrSeedSnapshot(ctx, env)
				err = env.Sync.PushChanges(ctx, service.PushRequest{
					UserID: env.UserID,
					Data:   snap,
				})
				if err != nil {
					log.Fatalf("Sync failed: %v", err)
				}
			}
			fmt.Printf("Synced: %d tasks\n", snap.TaskCount())
		},
	}

	syncCmd.Flags().Duration("every", 0, "Keep syncing on this interval instead of once")

	return syncCmd
}

// NewTaskCommand creates the task management command
func NewTaskCommand() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks in the local study plan",
		Long:  "Add, complete, remove and list tasks. Every change syncs to the server immediately.",
	}

	addCmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task to a subtopic",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			subtopicID, _ := cmd.Flags().GetString("subtopic")
			dueDate, _ := cmd.Flags().GetString("due")
			reminder, _ := cmd.Flags().GetString("reminder")

			if subtopicID == "" {
				log.Fatal("A subtopic is required")
			}

			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap := loadOrSeedSnapshot(ctx, env)

			task := entities.NewTask(args[0], time.Now())
			task.DueDate = dueDate
			if reminder != "" {
				offset := entities.ReminderOffset(reminder)
				if !entities.ValidReminderOffset(offset) {
					log.Fatalf("Unknown reminder offset %q", reminder)
				}
				task.Reminder = offset
			}

			if err := snap.AddTask(subtopicID, task); err != nil {
				log.Fatalf("Failed to add task: %v", err)
			}

			syncNow(ctx, env, snap)
			fmt.Printf("Added task %s\n", task.ID)
		},
	}
	addCmd.Flags().String("subtopic", "", "Subtopic ID, e.g. math-1-1 (required)")
	addCmd.Flags().String("due", "", "Due date, ISO format")
	addCmd.Flags().String("reminder", "", "Reminder offset (at_time, 15_min_before, 1_hour_before, 1_day_before)")

	doneCmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap := loadOrSeedSnapshot(ctx, env)

			if err := snap.ToggleTask(args[0], time.Now()); err != nil {
				log.Fatalf("Failed to toggle task: %v", err)
			}

			syncNow(ctx, env, snap)
			fmt.Println("Task updated")
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap := loadOrSeedSnapshot(ctx, env)

			if err := snap.RemoveTask(args[0], time.Now()); err != nil {
				log.Fatalf("Failed to remove task: %v", err)
			}

			syncNow(ctx, env, snap)
			fmt.Println("Task removed")
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in the local study plan",
		Run: func(cmd *cobra.Command, args []string) {
			env := openEnv(cmd)
			defer env.Close()

			ctx := context.Background()
			snap := loadOrSeedSnapshot(ctx, env)

			printTasks(snap)
		},
	}

	taskCmd.AddCommand(addCmd)
	taskCmd.AddCommand(doneCmd)
	taskCmd.AddCommand(rmCmd)
	taskCmd.AddCommand(listCmd)
	return taskCmd
}

// env bundles everything a client command needs.
type env struct {
	Store  *localstore.Store
	Sync   *service.Service
	UserID string
	logger *logger.Logger
}

func (e *env) Close() {
	e.Store.Close()
	e.logger.Close()
}

func openStore(cmd *cobra.Command) *localstore.Store {
	dbPath, _ := cmd.Flags().GetString("db")

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	store, err := localstore.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	return store
}

func openEnv(cmd *cobra.Command) *env {
	store := openStore(cmd)

	ctx := context.Background()
	userID, token, err := store.Session(ctx)
	if err != nil {
		store.Close()
		log.Fatal("Not logged in; run studysync login first")
	}

	serverURL, _ := cmd.Flags().GetString("server")
	client := remote.New(serverURL, token)

	// Quiet console logger; the CLI reports outcomes itself.
	appLogger, err := logger.New(config.LoggerConfig{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		store.Close()
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Success feedback goes to stdout; the policy keeps it quiet right
	// after login and at most once per interval.
	policy := service.NewPolicy()
	svc := service.New(store, client, policy, appLogger)

	return &env{Store: store, Sync: svc, UserID: userID, logger: appLogger}
}

func runLogin(cmd *cobra.Command, email, password string) {
	store := openStore(cmd)
	defer store.Close()

	serverURL, _ := cmd.Flags().GetString("server")
	client := remote.New(serverURL, "")

	ctx := context.Background()
	resp, err := client.Login(ctx, email, password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	if err := store.SetSession(ctx, resp.UserID, resp.AccessToken); err != nil {
		log.Fatalf("Failed to store session: %v", err)
	}

	// Seed the local plan from the catalog on first login so task commands
	// have subtopics to hang tasks on.
	if _, err := store.GetSnapshot(ctx, resp.UserID); errors.Is(err, entities.ErrSnapshotNotFound) {
		if err := store.PutSnapshot(ctx, resp.UserID, entities.DefaultCatalog()); err != nil {
			log.Fatalf("Failed to seed local plan: %v", err)
		}
	}

	fmt.Printf("Logged in as %s\n", email)
}

// loadOrSeedSnapshot returns the local snapshot, falling back to the static
// catalog for a fresh install.
func loadOrSeedSnapshot(ctx context.Context, e *env) *entities.Snapshot {
	snap, err := e.Store.GetSnapshot(ctx, e.UserID)
	if err != nil {
		if errors.Is(err, entities.ErrSnapshotNotFound) {
			return entities.DefaultCatalog()
		}
		log.Fatalf("Failed to read local snapshot: %v", err)
	}
	return snap
}

// syncNow mirrors the snapshot locally, then pushes it write-through.
func syncNow(ctx context.Context, e *env, snap *entities.Snapshot) {
	if err := e.Store.PutSnapshot(ctx, e.UserID, snap); err != nil {
		log.Fatalf("Failed to write local snapshot: %v", err)
	}

	err := e.Sync.ImmediateSync(ctx, service.SyncRequest{
		UserID: e.UserID,
		Data:   snap,
		OnSuccess: func() {
			fmt.Println("Synced with server")
		},
	})
	if err != nil {
		// The edit is safe locally; the next push or pull carries it.
		fmt.Fprintf(os.Stderr, "Warning: sync failed, changes kept locally: %v\n", err)
	}
}

func printTasks(snap *entities.Snapshot) {
	for _, subj := range snap.Subjects {
		for _, unit := range subj.Units {
			for _, st := range unit.Subtopics {
				if len(st.Tasks) == 0 {
					continue
				}
				fmt.Printf("%s / %s / %s (%s)\n", subj.Name, unit.Name, st.Name, st.ID)
				for _, t := range st.Tasks {
					mark := " "
					if t.Completed {
						mark = "x"
					}
					fmt.Printf("  [%s] %s  %s", mark, t.ID, t.Text)
					if t.DueDate != "" {
						fmt.Printf("  (due %s)", t.DueDate)
					}
					fmt.Println()
				}
			}
		}
	}
}
