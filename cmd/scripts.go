package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/keyforge/keyforge/internal/output"
	"github.com/keyforge/keyforge/internal/script"
	"github.com/spf13/cobra"
)

// ScriptsResult is the output of scripts list.
type ScriptsResult struct {
	OK      bool         `yaml:"ok"      json:"ok"`
	Action  string       `yaml:"action"  json:"action"`
	Count   int          `yaml:"count"   json:"count"`
	Scripts []ScriptInfo `yaml:"scripts" json:"scripts"`
}

// ScriptDetail is the output of scripts show: listing info plus the full
// action sequence.
type ScriptDetail struct {
	OK      bool         `yaml:"ok"      json:"ok"`
	Action  string       `yaml:"action"  json:"action"`
	Script  ScriptInfo   `yaml:"script"  json:"script"`
	Actions []ActionInfo `yaml:"actions" json:"actions"`
}

// ActionInfo is one action rendered for display.
type ActionInfo struct {
	Index    int    `yaml:"index"    json:"index"`
	OffsetMs int64  `yaml:"offsetMs" json:"offsetMs"`
	Detail   string `yaml:"detail"   json:"detail"`
}

// OpResult is the output of mutations (delete, export, import).
type OpResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	Script string `yaml:"script,omitempty" json:"script,omitempty"`
	Path   string `yaml:"path,omitempty"   json:"path,omitempty"`
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Manage recorded scripts",
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded scripts",
	RunE:  runScriptsList,
}

var scriptsShowCmd = &cobra.Command{
	Use:   "show <script>",
	Short: "Show a script's metadata and action sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsShow,
}

var scriptsDeleteCmd = &cobra.Command{
	Use:   "delete <script>",
	Short: "Delete a script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsDelete,
}

var scriptsExportCmd = &cobra.Command{
	Use:   "export <script> <file>",
	Short: "Export a script to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runScriptsExport,
}

var scriptsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a script from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsImport,
}

func init() {
	rootCmd.AddCommand(scriptsCmd)
	scriptsCmd.AddCommand(scriptsListCmd, scriptsShowCmd, scriptsDeleteCmd,
		scriptsExportCmd, scriptsImportCmd)
	scriptsDeleteCmd.Flags().Bool("yes", false, "Skip confirmation")
}

func runScriptsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	scripts, err := st.ListAll()
	if err != nil {
		return err
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].UpdatedAt.After(scripts[j].UpdatedAt)
	})

	infos := make([]ScriptInfo, len(scripts))
	for i, s := range scripts {
		infos[i] = scriptInfo(s)
	}
	return output.Print(ScriptsResult{OK: true, Action: "list", Count: len(infos), Scripts: infos})
}

func runScriptsShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := resolveScript(st, args[0])
	if err != nil {
		return err
	}

	actions := s.Actions()
	infos := make([]ActionInfo, len(actions))
	for i, a := range actions {
		infos[i] = ActionInfo{Index: i, OffsetMs: a.Offset.Milliseconds(), Detail: a.String()}
	}
	return output.Print(ScriptDetail{OK: true, Action: "show", Script: scriptInfo(s), Actions: infos})
}

func runScriptsDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := resolveScript(st, args[0])
	if err != nil {
		return err
	}

	if !yes {
		fmt.Fprintf(os.Stderr, "delete script %q (%s)? [y/N] ", s.Name, s.ID)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			return fmt.Errorf("aborted")
		}
	}

	if err := st.Delete(s.ID); err != nil {
		return err
	}
	return output.Print(OpResult{OK: true, Action: "delete", Script: s.Name})
}

func runScriptsExport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := resolveScript(st, args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", args[1], err)
	}
	return output.Print(OpResult{OK: true, Action: "export", Script: s.Name, Path: args[1]})
}

func runScriptsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var s script.Script
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(&s); err != nil {
		return err
	}
	return output.Print(OpResult{OK: true, Action: "import", Script: s.Name, Path: args[0]})
}
