package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nexidian/gocliselect"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/config"
	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/store"
	"github.com/steveljko/timetick/internal/tracker"
)

// App wires the config, the local store, the API client and the tracker for
// one invocation.
type App struct {
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	repo    *store.Repo
	client  *api.Client
	tracker *tracker.Tracker

	// interactive reports whether menus may be shown
	interactive func() bool
}

func NewApp(out, errOut io.Writer) *App {
	return &App{out: out, errOut: errOut, interactive: stdinIsTerminal}
}

// Open builds the app from cfg without touching the network.
func (a *App) Open(cfg *config.Config, logger *slog.Logger) error {
	if a.tracker != nil {
		return nil
	}

	repo, err := store.NewRepo(cfg.DBPath())
	if err != nil {
		return err
	}

	var tokens api.TokenSource = api.NewSession(cfg.Token)
	if cfg.TokenFile != "" {
		tokens = api.FileToken(cfg.TokenFile)
	}
	client := api.NewClient(cfg.APIURL, tokens, api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(logger))

	a.cfg, a.logger, a.repo, a.client = cfg, logger, repo, client
	a.tracker = tracker.New(tracker.Options{
		Gateway:      client,
		Backend:      repo,
		Logger:       logger,
		PageLimit:    cfg.PageLimit,
		Reachability: client,
	})
	return nil
}

func (a *App) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

// loads the local store, syncs with the server and resumes a running session
func (a *App) Load(ctx context.Context) error {
	report, err := a.tracker.Load(ctx)
	if err != nil {
		return err
	}
	for _, err := range []error{report.Projects.Err, report.Entries.Err} {
		if api.IsAuth(err) {
			fmt.Fprintln(a.errOut, "Not signed in, showing saved data. Set token or token_file in", a.cfg.File)
			break
		}
	}
	return nil
}

func (a *App) StartTracking(ctx context.Context, project string) error {
	projectID, err := a.resolveProject(project)
	if err != nil {
		return err
	}
	if project == "" && a.interactive() && len(a.tracker.Projects.List()) > 0 {
		if projectID, err = a.pickProject("Track time for", true); err != nil {
			return err
		}
	}

	entry, err := a.tracker.Timer.Start(ctx, projectID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Started tracking %s at %s\n", entry.ProjectName, entry.StartTime.Local().Format(time.TimeOnly))
	return nil
}

func (a *App) StopTracking(ctx context.Context) error {
	entry, err := a.tracker.Timer.Stop(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Tracking stopped! %s: %s\n", entry.ProjectName, FormatDuration(entry.Duration))
	return nil
}

func (a *App) Status() error {
	status := a.tracker.Status()
	session := status.Timer

	if session.State == tracker.Running {
		project := model.GeneralLabel
		if e, ok := a.tracker.Entries.Find(session.EntryID); ok {
			project = e.ProjectName
		}
		fmt.Fprintf(a.out, "Tracking %s for %s (since %s)\n",
			project, FormatDuration(session.Elapsed), session.Start.Local().Format(time.TimeOnly))
	} else {
		fmt.Fprintln(a.out, "Not tracking")
	}

	entries, now := a.tracker.Entries.List(), time.Now()
	fmt.Fprintf(a.out, "Today: %s in %d sessions\n",
		FormatDuration(tracker.TodayTotal(entries, now)), tracker.TodaySessions(entries, now))

	var notes []string
	if !status.Online {
		notes = append(notes, "offline")
	}
	if status.Syncing {
		notes = append(notes, "syncing")
	}
	if status.ProjectsStale || status.EntriesStale {
		notes = append(notes, "showing saved data")
	}
	if len(notes) > 0 {
		fmt.Fprintf(a.out, "(%s)\n", strings.Join(notes, ", "))
	}
	return nil
}

// shows the running timer every tick and keeps the collections fresh until
// ctx is done
func (a *App) Watch(ctx context.Context) error {
	refresher := tracker.NewRefresher(a.tracker, a.cfg.ProjectsRefresh, a.cfg.EntriesRefresh, a.cfg.LeaderboardRefresh)
	go func() {
		if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("refresher stopped", "err", err)
		}
	}()

	err := a.tracker.Timer.Tick(ctx, a.cfg.Tick, func(s tracker.Session) {
		label := "idle"
		if s.State == tracker.Running {
			label = "tracking"
			if e, ok := a.tracker.Entries.Find(s.EntryID); ok {
				label = e.ProjectName
			}
		}
		fmt.Fprintf(a.out, "\r%-24s %s", label, FormatDuration(s.Elapsed))
	})
	fmt.Fprintln(a.out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Log() error {
	PrintEntryLog(a.out, a.tracker.Entries.List(), time.Now())
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	report := a.tracker.Refresh(ctx)
	if report.Stale() {
		err := report.Projects.Err
		if err == nil {
			err = report.Entries.Err
		}
		return fmt.Errorf("sync failed, showing saved data: %w", err)
	}
	fmt.Fprintf(a.out, "Synced %d projects and %d entries\n", len(report.Projects.Records), len(report.Entries.Records))
	return nil
}

func (a *App) ListProjects() error {
	PrintProjects(a.out, a.tracker.Projects.List())
	return nil
}

func (a *App) AddProject(ctx context.Context, name, description, color string) error {
	p, err := a.tracker.Projects.Create(ctx, tracker.NewProject{Name: name, Description: description, Color: color})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

func (a *App) RenameProject(ctx context.Context, ref, name string) error {
	id, err := a.requireProject(ref)
	if err != nil {
		return err
	}
	p, err := a.tracker.Projects.Update(ctx, id, tracker.ProjectChanges{Name: &name})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed project to %s\n", p.Name)
	return nil
}

func (a *App) RecolorProject(ctx context.Context, ref, color string) error {
	id, err := a.requireProject(ref)
	if err != nil {
		return err
	}
	p, err := a.tracker.Projects.Update(ctx, id, tracker.ProjectChanges{Color: &color})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Project %s is now %s\n", p.Name, p.Color)
	return nil
}

func (a *App) RemoveProject(ctx context.Context, ref string) error {
	id, err := a.requireProject(ref)
	if err != nil {
		return err
	}
	if err := a.tracker.Projects.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Project deleted")
	return nil
}

func (a *App) SelectProject() error {
	if len(a.tracker.Projects.List()) == 0 {
		return errors.New("no projects yet, use 'project add' to create one")
	}
	id, err := a.pickProject("Select a project", false)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *App) ShowProfile(ctx context.Context) error {
	p, stale, err := a.tracker.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s <%s>\n", p.Name, p.Email)
	fmt.Fprintf(a.out, "Level:     %s (rank %s)\n", p.Level, p.Rank)
	fmt.Fprintf(a.out, "Total:     %.1fh in %d sessions\n", p.TotalHours, p.TotalSessions)
	fmt.Fprintf(a.out, "Streak:    %d days\n", p.CurrentStreak)
	fmt.Fprintf(a.out, "Daily avg: %.1fh\n", p.DailyAverage)
	if p.ProfilePictureURL != "" {
		fmt.Fprintf(a.out, "Picture:   %s\n", p.ProfilePictureURL)
	}
	if stale {
		fmt.Fprintln(a.out, "(showing saved data)")
	}
	return nil
}

func (a *App) CreateProfile(ctx context.Context, name string) error {
	p, err := a.tracker.CreateProfile(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile created for %s\n", p.Name)
	return nil
}

func (a *App) UploadPicture(ctx context.Context, path, mimeType string) error {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}
	p, err := a.tracker.UploadProfilePicture(ctx, api.ImageAsset{
		URI:      path,
		FileName: filepath.Base(path),
		MimeType: mimeType,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile picture updated: %s\n", p.ProfilePictureURL)
	return nil
}

func (a *App) Leaderboard(ctx context.Context) error {
	board, stale, err := a.tracker.Leaderboard(ctx)
	if err != nil {
		return err
	}
	PrintLeaderboard(a.out, board)
	if stale {
		fmt.Fprintln(a.out, "(showing saved data)")
	}
	return nil
}

func (a *App) ShowConfig(cfg *config.Config) error {
	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "# %s\n", cfg.File)
	_, err = a.out.Write(out)
	return err
}

// resolveProject maps an id or a project name to a project id. An empty ref
// means General.
func (a *App) resolveProject(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return a.requireProject(ref)
}

func (a *App) requireProject(ref string) (string, error) {
	if p, ok := a.tracker.Projects.Find(ref); ok {
		return p.ID, nil
	}
	if p, ok := a.tracker.Projects.FindByName(ref); ok {
		return p.ID, nil
	}
	return "", fmt.Errorf("project %q not found", ref)
}

const generalChoice = "general"

func (a *App) pickProject(prompt string, withGeneral bool) (string, error) {
	menu := gocliselect.NewMenu(prompt)
	if withGeneral {
		menu.AddItem(model.GeneralLabel, generalChoice)
	}
	for _, p := range a.tracker.Projects.List() {
		if !p.Provisional() {
			menu.AddItem(p.Name, p.ID)
		}
	}

	picked, err := menu.Display()
	if err != nil {
		return "", err
	}
	choice, _ := picked.(string)
	switch choice {
	case "":
		return "", errors.New("no project selected")
	case generalChoice:
		return "", nil
	default:
		return choice, nil
	}
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
