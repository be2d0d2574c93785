package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveljko/timetick/internal/config"
	"github.com/steveljko/timetick/internal/model"
)

// commands annotated with skipLoad only need the config
const skipLoad = "skip-load"

func SetupCommands(a *App) *cobra.Command {
	var configFile string

	// loads the config and opens the app; with sync it also refreshes from
	// the server, which makes every invocation a cold start
	prepare := func(cmd *cobra.Command, sync bool) (*config.Config, error) {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if cmd.Annotations[skipLoad] == "true" {
			return cfg, nil
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := a.Open(cfg, newLogger(a.errOut, verbose)); err != nil {
			return nil, err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if !sync {
			_, err := a.tracker.Projects.View().LoadCache(ctx)
			return cfg, err
		}
		return cfg, a.Load(ctx)
	}

	// completes project names from the local store
	completeProjects := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if _, err := prepare(cmd, false); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var names []string
		for _, p := range a.tracker.Projects.List() {
			if !p.Provisional() {
				names = append(names, p.Name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}

	// root command
	rootCmd := &cobra.Command{
		Use:           "timetick",
		Short:         "An offline-first time tracking CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := prepare(cmd, true)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/timetick/timetick.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL")
	rootCmd.PersistentFlags().String("token-file", "", "file holding the API token")
	rootCmd.PersistentFlags().String("data-dir", "", "directory of the local store")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	// command for starting the timer, optionally for a project
	startCmd := &cobra.Command{
		Use:               "start [project]",
		Short:             "Start tracking time",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeProjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			var project string
			if len(args) > 0 {
				project = args[0]
			}
			return a.StartTracking(cmd.Context(), project)
		},
	}

	// command for stopping the timer
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop tracking time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.StopTracking(cmd.Context())
		},
	}

	// command for showing the timer and today's total
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running timer and today's total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Status()
		},
	}

	// command for following the running timer until interrupted
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the running timer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Watch(cmd.Context())
		},
	}

	// command for listing today's entries
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "List today's entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Log()
		},
	}

	// command for pulling the latest data from the server
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull projects and entries from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Sync(cmd.Context())
		},
	}

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, watchCmd, logCmd, syncCmd)
	rootCmd.AddCommand(projectCommands(a, completeProjects))
	rootCmd.AddCommand(profileCommands(a))

	// command for showing the leaderboard
	rootCmd.AddCommand(&cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Leaderboard(cmd.Context())
		},
	})

	// command for printing the effective configuration
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := prepare(cmd, false)
			if err != nil {
				return err
			}
			return a.ShowConfig(cfg)
		},
	})
	rootCmd.AddCommand(configCmd)

	return rootCmd
}

func projectCommands(a *App, complete func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	// command for listing projects
	projectCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ListProjects()
		},
	})

	// command for creating a project
	var color, description string
	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.AddProject(cmd.Context(), args[0], description, color)
		},
	}
	addCmd.Flags().StringVar(&color, "color", model.Swatch[0], "project color as #rrggbb")
	addCmd.Flags().StringVar(&description, "description", "", "project description")
	projectCmd.AddCommand(addCmd)

	// command for renaming a project
	projectCmd.AddCommand(&cobra.Command{
		Use:               "rename [project] [name]",
		Short:             "Rename a project",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: complete,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RenameProject(cmd.Context(), args[0], args[1])
		},
	})

	// command for changing a project's color
	projectCmd.AddCommand(&cobra.Command{
		Use:               "color [project] [#rrggbb]",
		Short:             "Change a project's color",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: complete,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RecolorProject(cmd.Context(), args[0], args[1])
		},
	})

	// command for deleting a project
	projectCmd.AddCommand(&cobra.Command{
		Use:               "rm [project]",
		Short:             "Delete a project",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: complete,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RemoveProject(cmd.Context(), args[0])
		},
	})

	// command for picking a project from a menu and printing its id
	projectCmd.AddCommand(&cobra.Command{
		Use:   "select",
		Short: "Pick a project and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.SelectProject()
		},
	})

	return projectCmd
}

func profileCommands(a *App) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	profileCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your profile and stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ShowProfile(cmd.Context())
		},
	})

	profileCmd.AddCommand(&cobra.Command{
		Use:   "create [name]",
		Short: "Create your profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.CreateProfile(cmd.Context(), args[0])
		},
	})

	var mimeType string
	pictureCmd := &cobra.Command{
		Use:   "picture [path]",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.UploadPicture(cmd.Context(), args[0], mimeType)
		},
	}
	pictureCmd.Flags().StringVar(&mimeType, "mime", "", "mime type (guessed from the extension by default)")
	profileCmd.AddCommand(pictureCmd)

	return profileCmd
}
