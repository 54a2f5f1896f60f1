package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kalambet/nutriwheel/internal/api"
	"github.com/kalambet/nutriwheel/internal/config"
	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/session"
)

// spinTimeout bounds how long the CLI follows a spin.
const spinTimeout = 60 * time.Second

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// startWait shows a spinner on stderr until the returned func is called.
// Nothing is drawn when stderr is not a terminal.
func startWait(suffix string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stderr))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func outputFlag(cmd *cobra.Command) (string, error) {
	f, _ := cmd.Flags().GetString("output")
	return f, checkFormat(f, true)
}

// --- spin ---

var spinCmd = &cobra.Command{
	Use:       "spin [main_dish|snack|drink|all]",
	Short:     "Spin one wheel, or all three, and watch it land",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(menu.MainDish), string(menu.Snack), string(menu.Drink), "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "all"
		if len(args) == 1 {
			target = args[0]
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmdContext(cmd), spinTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		sel, err := followSpin(ctx, client, out, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		renderSelection(out, sel)
		if sel.Complete() {
			printStep("next: nutriwheel analyze, then nutriwheel save")
		}
		return nil
	},
}

// followSpin starts a spin and draws its frames from the event stream
// until every requested wheel has landed.
func followSpin(ctx context.Context, client *apiClient, w io.Writer, target string) (menu.Selection, error) {
	cats := menu.Categories
	path := "/spin"
	if target != "all" {
		cat, err := menu.ParseCategory(target)
		if err != nil {
			return menu.Selection{}, err
		}
		cats = []menu.Category{cat}
		path = "/spin/" + string(cat)
	}

	conn, _, err := websocket.Dial(ctx, client.wsURL("/ws"), nil)
	if err != nil {
		return menu.Selection{}, fmt.Errorf("connecting to event stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20)

	var ev session.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		return menu.Selection{}, fmt.Errorf("reading event stream: %w", err)
	}
	if ev.Type != session.EventSnapshot || ev.State == nil {
		return menu.Selection{}, fmt.Errorf("unexpected first event %q", ev.Type)
	}

	var want []menu.Category
	for _, c := range cats {
		if len(ev.State.Catalog.Items(c)) == 0 {
			printWarning("%s has no items; skipping", c.Label())
			continue
		}
		want = append(want, c)
	}
	if len(want) == 0 {
		return menu.Selection{}, errors.New("nothing to spin: the menu is empty")
	}

	resp, err := client.post(ctx, path, nil)
	if err == nil {
		err = decodeJSON(resp, nil)
	}
	if err != nil {
		if errorType(err) != "busy" {
			return menu.Selection{}, err
		}
		printWarning("already spinning; following the current spin")
	}

	f := newSpinFollower(w, want)
	for !f.done() {
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return menu.Selection{}, fmt.Errorf("reading event stream: %w", err)
		}
		if ev.Type == session.EventCatalog {
			return menu.Selection{}, errors.New("the menu was replaced during the spin")
		}
		f.handle(ev)
	}

	var sr api.SelectionResponse
	resp, err = client.get(ctx, "/selection")
	if err != nil {
		return menu.Selection{}, err
	}
	if err := decodeJSON(resp, &sr); err != nil {
		return menu.Selection{}, err
	}
	return sr.Selection, nil
}

// --- menu ---

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Show, regenerate, export or import the menu",
}

var menuShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		c, err := fetchCatalog(cmdContext(cmd))
		if err != nil {
			return err
		}
		if format == formatHuman {
			renderCatalog(cmd.OutOrStdout(), c)
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, c)
	},
}

var menuRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Ask the advisor for a fresh menu (clears the selection)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		stop := startWait("generating a new menu...")
		var c menu.Catalog
		resp, err := client.post(cmdContext(cmd), "/catalog/regenerate", nil)
		if err == nil {
			err = decodeJSON(resp, &c)
		}
		stop()
		if err != nil {
			return err
		}

		printSuccess("New menu %s: %d main dishes, %d snacks, %d drinks",
			c.Version, len(c.Categories.MainDish), len(c.Categories.Snack), len(c.Categories.Drink))
		return nil
	},
}

var menuExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current menu as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format, false); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")

		c, err := fetchCatalog(cmdContext(cmd))
		if err != nil {
			return err
		}

		if path == "" {
			return writeStructured(cmd.OutOrStdout(), format, c)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := writeStructured(f, format, c); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printSuccess("Exported %d items to %s", c.Size(), path)
		return nil
	},
}

var menuImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the menu with a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.doRaw(cmdContext(cmd), "PUT", "/catalog", catalogContentType(args[0]), data)
		if err != nil {
			return err
		}
		var c menu.Catalog
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}
		printSuccess("Imported menu %s (%d items)", c.Version, c.Size())
		return nil
	},
}

func catalogContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "application/yaml"
	}
	return "application/json"
}

func fetchCatalog(ctx context.Context) (menu.Catalog, error) {
	client, err := newAPIClient()
	if err != nil {
		return menu.Catalog{}, err
	}
	resp, err := client.get(ctx, "/catalog")
	if err != nil {
		return menu.Catalog{}, err
	}
	var c menu.Catalog
	err = decodeJSON(resp, &c)
	return c, err
}

func init() {
	menuShowCmd.Flags().StringP("output", "o", formatHuman, "output format: human, json or yaml")
	menuExportCmd.Flags().String("format", formatJSON, "json or yaml")
	menuExportCmd.Flags().String("file", "", "write to this file instead of stdout")
	menuCmd.AddCommand(menuShowCmd, menuRegenerateCmd, menuExportCmd, menuImportCmd)
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Get a nutrition critique of the current selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		stop := startWait("asking the nutrition advisor...")
		var st session.AnalysisState
		resp, err := client.post(cmdContext(cmd), "/analysis", nil)
		if err == nil {
			err = decodeJSON(resp, &st)
		}
		stop()
		if err != nil {
			if errorType(err) == "incomplete_selection" {
				return fmt.Errorf("%w (run \"nutriwheel spin\" first)", err)
			}
			return err
		}

		if format == formatHuman {
			renderAnalysisState(cmd.OutOrStdout(), st)
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, st)
	},
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", formatHuman, "output format: human, json or yaml")
}

// --- save ---

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the current selection to the meal journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		skip, _ := cmd.Flags().GetBool("skip-analysis")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmdContext(cmd), "/meals", api.SaveMealRequest{Note: note, SkipAnalysis: skip})
		if err != nil {
			return err
		}
		var saved api.SaveMealResponse
		if err := decodeJSON(resp, &saved); err != nil {
			return err
		}

		printSuccess("Saved meal %s", saved.Entry.ID)
		renderFeedback(cmd.OutOrStdout(), saved.Feedback)
		if saved.Entry.AnalysisStatus == "pending" {
			printStep("critique queued; see it with: nutriwheel meals show %s", saved.Entry.ID)
		}
		return nil
	},
}

func init() {
	saveCmd.Flags().String("note", "", "note stored with the meal")
	saveCmd.Flags().Bool("skip-analysis", false, "do not attach the current analysis")
}

// --- meals ---

var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "Browse the meal journal",
}

var mealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved meals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmdContext(cmd), "/meals?limit="+strconv.Itoa(limit))
		if err != nil {
			return err
		}
		var entries []journal.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if format != formatHuman {
			return writeStructured(cmd.OutOrStdout(), format, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No meals saved yet.")
			return nil
		}
		for _, e := range entries {
			renderEntryRow(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var mealsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved meal and its critique",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmdContext(cmd), "/meals/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var e journal.Entry
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}
		if format == formatHuman {
			renderEntry(cmd.OutOrStdout(), e)
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, e)
	},
}

var mealsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmdContext(cmd), "/meals/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted meal %s", args[0])
		return nil
	},
}

var mealsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize saved meals",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmdContext(cmd), "/stats?days="+strconv.Itoa(days))
		if err != nil {
			return err
		}
		var st journal.Stats
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}
		if format == formatHuman {
			renderStats(cmd.OutOrStdout(), st)
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, st)
	},
}

func init() {
	mealsListCmd.Flags().Int("limit", 20, "maximum number of meals")
	mealsStatsCmd.Flags().Int("days", 7, "look back this many days (0 for all time)")
	for _, c := range []*cobra.Command{mealsListCmd, mealsShowCmd, mealsStatsCmd} {
		c.Flags().StringP("output", "o", formatHuman, "output format: human, json or yaml")
	}
	mealsCmd.AddCommand(mealsListCmd, mealsShowCmd, mealsDeleteCmd, mealsStatsCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the health profile used for critiques",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmdContext(cmd), "/profile")
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		if format == formatHuman {
			fmt.Fprintln(cmd.OutOrStdout(), profile.Summarize(p))
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile field",
	Long:  "Set a profile field. Keys: " + strings.Join(profile.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmdContext(cmd), "/profile", map[string]string{key: value})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	profileShowCmd.Flags().StringP("output", "o", formatHuman, "output format: human, json or yaml")
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorFaint, k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		if config.SecretHint(key) != "" {
			printSuccess("Stored %s in the secret store", key)
			return nil
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
