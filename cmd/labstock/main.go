// ABOUTME: Entry point for the labstock inventory CLI
// ABOUTME: Wires the store, inventory service and backup manager for terminal use

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/chemlab/labstock/internal/backup"
	"github.com/chemlab/labstock/internal/config"
	"github.com/chemlab/labstock/internal/inventory"
	"github.com/chemlab/labstock/internal/notify"
	"github.com/chemlab/labstock/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the labstock config file.
// Priority: LABSTOCK_CONFIG env var > XDG_CONFIG_HOME/labstock/labstock.yaml > ~/.config/labstock/labstock.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LABSTOCK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "labstock.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "labstock", "labstock.yaml")
}

// getDataPath returns the path to the labstock data directory.
// Priority: XDG_DATA_HOME/labstock > ~/.local/share/labstock
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "labstock")
}

func usage() {
	fmt.Println("Usage: labstock <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chemicals [search TEXT] [--hazard N]   List or search chemicals")
	fmt.Println("  add-chemical NAME QTY [UNIT]           Register a chemical")
	fmt.Println("  del-chemical ID                        Delete a chemical and its placements")
	fmt.Println("  zones                                  List storage zones")
	fmt.Println("  add-zone NAME CAPACITY                 Register a storage zone")
	fmt.Println("  del-zone ID                            Delete an empty storage zone")
	fmt.Println("  batches                                List placements")
	fmt.Println("  place CHEM ZONE QTY [notes]            Place chemical quantity into a zone")
	fmt.Println("  return BATCH QTY                       Return quantity from a batch to stock")
	fmt.Println("  backup create [comment]                Snapshot the database")
	fmt.Println("  backup list                            List backups")
	fmt.Println("  backup restore PATH                    Restore from a backup file")
	fmt.Println("  backup delete ID                       Delete a backup and its record")
	fmt.Println("  log [N]                                Show the N most recent activity entries")
	fmt.Println("  prune DAYS                             Prune activity entries older than DAYS")
	fmt.Println("  stats                                  Show register statistics")
	fmt.Println("  export PATH                            Export chemicals to CSV")
	fmt.Println("  reconcile [--repair]                   Cross-check zone loads against batches")
	fmt.Println("  version                                Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if os.Args[1] == "version" {
		fmt.Printf("labstock %s\n", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the constructed service set.
type app struct {
	store   *store.SQLiteStore
	service *inventory.Service
	backups *backup.Manager
}

func newApp(ctx context.Context) (*app, func(), error) {
	cfg := config.Default(getDataPath())
	if configPath := getConfigPath(); fileExists(configPath) {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	if cfg.Database.Seed {
		empty, err := st.Empty(ctx)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		if empty {
			if err := st.Seed(ctx); err != nil {
				st.Close()
				return nil, nil, fmt.Errorf("seeding database: %w", err)
			}
		}
	}

	events := notify.NewBroadcaster(logger)
	a := &app{
		store:   st,
		service: inventory.NewService(st, events, logger, ""),
		backups: backup.NewManager(st, cfg.Backup.Dir, events, logger),
	}
	cleanup := func() {
		events.Close()
		st.Close()
	}
	return a, cleanup, nil
}

func run(ctx context.Context, command string, args []string) error {
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	switch command {
	case "chemicals":
		return a.runChemicals(ctx, args)
	case "add-chemical":
		return a.runAddChemical(ctx, args)
	case "del-chemical":
		return a.runDelChemical(ctx, args)
	case "zones":
		return a.runZones(ctx)
	case "add-zone":
		return a.runAddZone(ctx, args)
	case "del-zone":
		return a.runDelZone(ctx, args)
	case "batches":
		return a.runBatches(ctx)
	case "place":
		return a.runPlace(ctx, args)
	case "return":
		return a.runReturn(ctx, args)
	case "backup":
		return a.runBackup(ctx, args)
	case "log":
		return a.runLog(ctx, args)
	case "prune":
		return a.runPrune(ctx, args)
	case "stats":
		return a.runStats(ctx)
	case "export":
		return a.runExport(ctx, args)
	case "reconcile":
		return a.runReconcile(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *app) runChemicals(ctx context.Context, args []string) error {
	text := ""
	hazard := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "search":
			if i+1 < len(args) {
				i++
				text = args[i]
			}
		case "--hazard":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil {
					return fmt.Errorf("invalid hazard class: %q", args[i])
				}
				hazard = n
			}
		}
	}

	chemicals, err := a.service.SearchChemicals(ctx, text, hazard)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	for _, c := range chemicals {
		bold.Printf("%4d  %-30s", c.ID, c.Name)
		fmt.Printf("  %-12s  %10.2f %-3s  hazard %d\n", c.Formula, c.Quantity, c.Unit, c.HazardClass)
	}
	color.New(color.FgHiBlack).Printf("%d chemicals\n", len(chemicals))
	return nil
}

func (a *app) runAddChemical(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add-chemical NAME QTY [UNIT]")
	}
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid quantity: %q", args[1])
	}
	c := &store.Chemical{Name: args[0], Quantity: qty}
	if len(args) > 2 {
		c.Unit = args[2]
	}

	id, err := a.service.AddChemical(ctx, c)
	if err != nil {
		return err
	}
	color.Green("Chemical %d registered: %s", id, c.Name)
	return nil
}

func (a *app) runDelChemical(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: del-chemical ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chemical id: %q", args[0])
	}

	if err := a.service.DeleteChemical(ctx, id); err != nil {
		return err
	}
	color.Green("Chemical %d deleted", id)
	return nil
}

func (a *app) runAddZone(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add-zone NAME CAPACITY")
	}
	capacity, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid capacity: %q", args[1])
	}

	id, err := a.service.AddZone(ctx, &store.StorageZone{
		Name:        args[0],
		MaxCapacity: capacity,
		Active:      true,
	})
	if err != nil {
		return err
	}
	color.Green("Zone %d registered: %s", id, args[0])
	return nil
}

func (a *app) runDelZone(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: del-zone ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid zone id: %q", args[0])
	}

	if err := a.service.DeleteZone(ctx, id); err != nil {
		return err
	}
	color.Green("Zone %d deleted", id)
	return nil
}

func (a *app) runZones(ctx context.Context) error {
	zones, err := a.service.Zones(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	for _, z := range zones {
		status := color.GreenString("active")
		if !z.Active {
			status = color.RedString("inactive")
		}
		bold.Printf("%4d  %-30s", z.ID, z.Name)
		fmt.Printf("  %8.1f / %8.1f (%5.1f%%)  %d batches  %s\n",
			z.CurrentLoad, z.MaxCapacity, z.LoadPercentage, z.BatchCount, status)
	}
	return nil
}

func (a *app) runBatches(ctx context.Context) error {
	batches, err := a.service.Batches(ctx)
	if err != nil {
		return err
	}

	for _, b := range batches {
		fmt.Printf("%4d  %-25s -> %-25s  %10.2f %-3s  %s\n",
			b.ID, b.ChemicalName, b.ZoneName, b.Quantity, b.Unit,
			b.PlacedDate.Format("2006-01-02"))
	}
	return nil
}

func (a *app) runPlace(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: place CHEM ZONE QTY [notes]")
	}
	chemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chemical id: %q", args[0])
	}
	zoneID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid zone id: %q", args[1])
	}
	qty, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid quantity: %q", args[2])
	}
	notes := strings.Join(args[3:], " ")

	batchID, err := a.service.PlaceInZone(ctx, chemID, zoneID, qty, notes)
	if err != nil {
		return err
	}

	color.Green("Placed %v of chemical %d into zone %d (batch %d)", qty, chemID, zoneID, batchID)
	return nil
}

func (a *app) runReturn(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: return BATCH QTY")
	}
	batchID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid batch id: %q", args[0])
	}
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid quantity: %q", args[1])
	}

	if err := a.service.ReturnFromZone(ctx, batchID, qty); err != nil {
		return err
	}

	color.Green("Returned %v from batch %d to stock", qty, batchID)
	return nil
}

func (a *app) runBackup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: backup create|list|restore|delete")
	}

	switch args[0] {
	case "create":
		comment := strings.Join(args[1:], " ")
		path, err := a.backups.CreateBackup(ctx, comment)
		if err != nil {
			return err
		}
		color.Green("Backup created: %s", path)
		return nil

	case "list":
		records, err := a.backups.ListBackups(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			marker := " "
			if r.Restored {
				marker = "r"
			}
			missing := ""
			if !r.FileExists {
				missing = color.RedString(" [missing]")
			}
			fmt.Printf("%4d %s %-30s %10d bytes  %s%s\n",
				r.ID, marker, r.Filename, r.SizeBytes,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), missing)
		}
		return nil

	case "restore":
		if len(args) < 2 {
			return fmt.Errorf("usage: backup restore PATH")
		}
		if err := a.backups.RestoreBackup(ctx, args[1]); err != nil {
			return err
		}
		color.Green("Database restored from %s", args[1])
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: backup delete ID")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid backup id: %q", args[1])
		}
		if err := a.backups.DeleteBackup(ctx, id); err != nil {
			return err
		}
		color.Green("Backup %d deleted", id)
		return nil

	default:
		return fmt.Errorf("unknown backup subcommand: %s", args[0])
	}
}

func (a *app) runLog(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid limit: %q", args[0])
		}
		limit = n
	}

	entries, err := a.service.RecentActivity(ctx, limit)
	if err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		gray.Printf("%s  ", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%-25s %s", e.Action, e.Detail)
		gray.Printf("  (%s)\n", e.User)
	}
	return nil
}

func (a *app) runPrune(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: prune DAYS")
	}
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid day count: %q", args[0])
	}

	removed, err := a.service.PruneActivityOlderThan(ctx, days)
	if err != nil {
		return err
	}
	color.Green("Pruned %d activity entries older than %d days", removed, days)
	return nil
}

func (a *app) runStats(ctx context.Context) error {
	stats, err := a.service.Statistics(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Chemicals:      %d\n", stats.ChemicalCount)
	fmt.Printf("Zones:          %d\n", stats.ZoneCount)
	fmt.Printf("Total quantity: %.2f\n", stats.TotalQuantity)
	fmt.Printf("Average hazard: %.2f\n", stats.AverageHazard)
	return nil
}

func (a *app) runExport(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: export PATH")
	}
	if err := a.service.ExportChemicalsCSV(ctx, args[0]); err != nil {
		return err
	}
	color.Green("Exported chemicals to %s", args[0])
	return nil
}

func (a *app) runReconcile(ctx context.Context, args []string) error {
	repair := len(args) > 0 && args[0] == "--repair"

	drifts, err := a.service.ReconcileZoneLoads(ctx, repair)
	if err != nil {
		return err
	}

	if len(drifts) == 0 {
		color.Green("All zone loads consistent with batches")
		return nil
	}
	for _, d := range drifts {
		color.Yellow("zone %d (%s): stored %v, computed %v", d.ZoneID, d.ZoneName, d.Stored, d.Computed)
	}
	if repair {
		color.Green("Repaired %d zones", len(drifts))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
