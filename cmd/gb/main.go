package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gigboard/internal/config"
	"gigboard/internal/db"
	"gigboard/internal/domain"
	"gigboard/internal/engine"
	"gigboard/internal/migrate"
	"gigboard/internal/repo"
	"gigboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "gb",
	Short: "Gigboard CLI",
	Long: `Gigboard runs a freelance marketplace: requesters post projects, workers
apply, and accepted applications turn into contracts. Projects flow
draft -> open -> in_progress -> review -> completed (or cancelled); completed
projects get two-way ratings that feed worker reputation.

Most commands act as a platform user; pass --actor with that user's id.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GIGBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int64("actor", 0, "acting user id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(applicationCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(ratingCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(leaderboardCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() int64 {
	return viper.GetInt64("actor")
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage workspace config",
		Long:  "Config is the rulebook: platform name, fee rate, contract terms template, and page size. Stored as gigboard.yml in the workspace.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default gigboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- users ---

func userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	user.AddCommand(userRegisterCmd())
	user.AddCommand(userShowCmd())
	user.AddCommand(userUpdateCmd())
	user.AddCommand(userDeactivateCmd())
	user.AddCommand(userRatingsCmd())
	user.AddCommand(workersCmd())
	return user
}

func userRegisterCmd() *cobra.Command {
	var opts engine.RegisterOptions
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role (worker, requester, operator)")
	cmd.Flags().StringVar(&opts.Bio, "bio", "", "bio")
	cmd.Flags().StringArrayVar(&opts.Skills, "skill", []string{}, "skill (repeatable)")
	cmd.Flags().StringVar(&opts.AvatarURL, "avatar-url", "", "avatar URL")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func userShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Repo.GetUser(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var firstName, lastName, bio, avatarURL string
	var skills []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.ProfileUpdateOptions{
				UserID:   id,
				CallerID: actorID(),
			}
			if cmd.Flags().Changed("first-name") {
				opts.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				opts.LastName = &lastName
			}
			if cmd.Flags().Changed("bio") {
				opts.Bio = &bio
			}
			if cmd.Flags().Changed("avatar-url") {
				opts.AvatarURL = &avatarURL
			}
			if cmd.Flags().Changed("skill") {
				opts.SetSkills = true
				opts.Skills = skills
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.UpdateUserProfile(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&bio, "bio", "", "bio")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "avatar URL")
	cmd.Flags().StringArrayVar(&skills, "skill", []string{}, "skill (repeatable, replaces the list)")
	return cmd
}

func userDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate an account (operator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.DeactivateUser(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	return cmd
}

func userRatingsCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "ratings <id>",
		Short: "List ratings received by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListRatingsForUser(ctx, id, limit, offset)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset")
	return cmd
}

func workersCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List active workers by reputation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkers(ctx, limit, offset)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderUserTable(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset")
	return cmd
}

// --- projects ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Projects are posted by requesters. They flow draft -> open -> in_progress -> review -> completed, with cancelled reachable from any non-terminal state.",
	}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectPublishCmd())
	prj.AddCommand(projectAssignCmd())
	prj.AddCommand(projectRequestReviewCmd())
	prj.AddCommand(projectCompleteCmd())
	prj.AddCommand(projectCancelCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OwnerID = actorID()
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Requirements, "requirements", "", "requirements")
	cmd.Flags().Float64Var(&opts.Budget, "budget", 0, "budget")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC3339)")
	cmd.Flags().StringArrayVar(&opts.TechStack, "tech", []string{}, "tech stack entry (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.Limit == 0 {
					f.Limit = e.Config.Limits.PageSize
				}
				items, err := e.Repo.ListProjects(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Budget", "Owner", "Assignee"})
				for _, p := range items {
					assignee := ""
					if p.AssigneeID != nil {
						assignee = strconv.FormatInt(*p.AssigneeID, 10)
					}
					tw.AppendRow(table.Row{p.ID, p.Title, p.Status, p.Budget, p.OwnerID, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().Int64Var(&f.OwnerID, "owner", 0, "owner filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "offset")
	return cmd
}

func projectShowCmd() *cobra.Command {
	var withTasks bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, id)
				if err != nil {
					return err
				}
				if !withTasks {
					return printJSONOrTable(p)
				}
				tasks, err := e.Repo.ListTasks(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"project": p, "tasks": tasks})
			})
		},
	}
	cmd.Flags().BoolVar(&withTasks, "tasks", false, "include the task board")
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var title, description, requirements, deadline string
	var budget float64
	var tech []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a draft or open project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.ProjectUpdateOptions{ID: id, CallerID: actorID()}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("requirements") {
				opts.Requirements = &requirements
			}
			if cmd.Flags().Changed("budget") {
				opts.Budget = &budget
			}
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			if cmd.Flags().Changed("tech") {
				opts.SetTechStack = true
				opts.TechStack = tech
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&requirements, "requirements", "", "requirements")
	cmd.Flags().Float64Var(&budget, "budget", 0, "budget")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC3339, empty clears)")
	cmd.Flags().StringArrayVar(&tech, "tech", []string{}, "tech stack entry (repeatable, replaces the list)")
	return cmd
}

func projectTransitionCmd(use, short string, run func(engine.Engine, context.Context, int64, int64) (domain.Project, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := run(e, ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectPublishCmd() *cobra.Command {
	return projectTransitionCmd("publish <id>", "Publish a draft project", engine.Engine.PublishProject)
}

func projectRequestReviewCmd() *cobra.Command {
	return projectTransitionCmd("request-review <id>", "Request review (assignee)", engine.Engine.RequestReview)
}

func projectCompleteCmd() *cobra.Command {
	return projectTransitionCmd("complete <id>", "Complete a project (owner)", engine.Engine.CompleteProject)
}

func projectCancelCmd() *cobra.Command {
	return projectTransitionCmd("cancel <id>", "Cancel a project (owner or operator)", engine.Engine.CancelProject)
}

func projectAssignCmd() *cobra.Command {
	var workerID int64
	var unassign bool
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign or unassign the project worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var target *int64
			if !unassign {
				if !cmd.Flags().Changed("worker") {
					return fmt.Errorf("--worker or --unassign required")
				}
				target = &workerID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AssignWorker(ctx, id, target, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().Int64Var(&workerID, "worker", 0, "worker id")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "clear the assignee")
	return cmd
}

// --- tasks ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage the task board",
		Long:  "Tasks break a project into ordered board items. They flow pending -> in_progress -> review -> completed; review can step back to in_progress for rework.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskStatusCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var hours int
	var deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CallerID = actorID()
			if cmd.Flags().Changed("hours") {
				opts.EstimatedHours = &hours
			}
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().IntVar(&opts.Complexity, "complexity", 1, "complexity 1-5")
	cmd.Flags().IntVar(&hours, "hours", 0, "estimated hours")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC3339)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's tasks in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.Repo.ListTasks(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "ID", "Title", "Status", "Complexity", "Assignee"})
				for _, t := range tasks {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = strconv.FormatInt(*t.AssigneeID, 10)
					}
					tw.AppendRow(table.Row{t.Order, t.ID, t.Title, t.Status, t.Complexity, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var workerID int64
	var unassign bool
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign or unassign a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var target *int64
			if !unassign {
				if !cmd.Flags().Changed("worker") {
					return fmt.Errorf("--worker or --unassign required")
				}
				target = &workerID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AssignTask(ctx, id, target, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&workerID, "worker", 0, "worker id")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "clear the assignee")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Move a task on the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTaskStatus(ctx, id, status, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// --- applications ---

func applicationCmd() *cobra.Command {
	app := &cobra.Command{
		Use:   "application",
		Short: "Manage applications",
		Long:  "Workers apply to open projects. The owner accepts one application, which assigns the worker, moves the project to in_progress, rejects the rest, and drafts a contract.",
	}
	app.AddCommand(applicationApplyCmd())
	app.AddCommand(applicationListCmd())
	app.AddCommand(applicationMineCmd())
	app.AddCommand(applicationAcceptCmd())
	app.AddCommand(applicationRejectCmd())
	return app
}

func applicationApplyCmd() *cobra.Command {
	var opts engine.ApplyOptions
	var rate float64
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply to an open project (worker)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.WorkerID = actorID()
			if cmd.Flags().Changed("rate") {
				opts.ProposedRate = &rate
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Apply(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id")
	cmd.Flags().StringVar(&opts.CoverLetter, "cover-letter", "", "cover letter")
	cmd.Flags().Float64Var(&rate, "rate", 0, "proposed rate")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func applicationListCmd() *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListApplications(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func applicationMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List my applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListApplicationsByWorker(ctx, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func applicationDecideCmd(use, short string, accept bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.DecideApplication(ctx, projectID, id, actorID(), accept)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func applicationAcceptCmd() *cobra.Command {
	return applicationDecideCmd("accept <project-id> <id>", "Accept an application (owner)", true)
}

func applicationRejectCmd() *cobra.Command {
	return applicationDecideCmd("reject <project-id> <id>", "Reject an application (owner)", false)
}

// --- contracts ---

func contractCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "contract",
		Short: "Manage contracts",
		Long:  "Contracts are drafted when an application is accepted. Both parties sign; operators can force status changes, including disputes.",
	}
	c.AddCommand(contractShowCmd())
	c.AddCommand(contractForProjectCmd())
	c.AddCommand(contractSignCmd())
	c.AddCommand(contractSetStatusCmd())
	return c
}

func contractShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetContract(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func contractForProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "for-project <project-id>",
		Short: "Show a project's latest contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetContractByProject(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func contractSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <id>",
		Short: "Sign a contract (party)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SignContract(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func contractSetStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Override a contract status (operator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SetContractStatus(ctx, id, status, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (active, completed, cancelled, disputed)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// --- ratings ---

func ratingCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "rating",
		Short: "Manage ratings",
	}
	r.AddCommand(ratingAddCmd())
	return r
}

func ratingAddCmd() *cobra.Command {
	var opts engine.RatingOptions
	var quality, communication, deadline int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Rate a completed project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ReviewerID = actorID()
			if cmd.Flags().Changed("quality") {
				opts.QualityScore = &quality
			}
			if cmd.Flags().Changed("communication") {
				opts.CommunicationScore = &communication
			}
			if cmd.Flags().Changed("deadline") {
				opts.DeadlineScore = &deadline
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rt, err := e.SubmitRating(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rt)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id")
	cmd.Flags().IntVar(&opts.Score, "score", 0, "overall score 1-5")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "comment")
	cmd.Flags().IntVar(&quality, "quality", 0, "quality sub-score 1-5")
	cmd.Flags().IntVar(&communication, "communication", 0, "communication sub-score 1-5")
	cmd.Flags().IntVar(&deadline, "deadline", 0, "deadline sub-score 1-5")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

// --- api keys ---

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyDeleteCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var userID int64
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetUser(ctx, userID); err != nil {
					return err
				}
				raw := uuid.NewString()
				key := domain.APIKey{
					ID:      uuid.NewString(),
					UserID:  userID,
					Name:    name,
					KeyHash: repo.HashAPIKey(raw),
				}
				if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "user_id": userID, "key": raw})
				}
				fmt.Printf("API key %s created for user %d.\nKey (shown once): %s\n", key.ID, userID, raw)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "filter by user id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

// --- platform ---

func leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Top workers by rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderUserTable(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Platform statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Repo.PlatformStats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: status changes, applications, signatures, ratings.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var projectID int64
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, projectID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().Int64Var(&projectID, "project", 0, "project filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("GIGBOARD_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("GIGBOARD_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Gigboard API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func renderUserTable(items []domain.User) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Rating", "Completed", "Skills"})
	for _, u := range items {
		tw.AppendRow(table.Row{u.ID, u.FullName(), fmt.Sprintf("%.2f", u.RatingScore), u.CompletedProjects, strings.Join(u.Skills, ", ")})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
