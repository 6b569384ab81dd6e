package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/platform"
	"github.com/mj1618/page-tracker/internal/platform/static"
	"github.com/mj1618/page-tracker/internal/session"
	"github.com/mj1618/page-tracker/internal/tracker"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ReplayResult is the output of a replay run.
type ReplayResult struct {
	OK        bool                `yaml:"ok"                  json:"ok"`
	Action    string              `yaml:"action"              json:"action"`
	Steps     int                 `yaml:"steps"               json:"steps"`
	Completed int                 `yaml:"completed"           json:"completed"`
	Error     string              `yaml:"error,omitempty"     json:"error,omitempty"`
	Results   []StepResult        `yaml:"results"             json:"results"`
	Summary   *model.Summary      `yaml:"summary,omitempty"   json:"summary,omitempty"`
	Bundle    *model.ExportBundle `yaml:"bundle,omitempty"    json:"bundle,omitempty"`
}

// StepResult is the output for a single replay step.
type StepResult struct {
	Step     int            `yaml:"step"               json:"step"`
	OK       bool           `yaml:"ok"                 json:"ok"`
	Action   string         `yaml:"action"             json:"action"`
	Error    string         `yaml:"error,omitempty"    json:"error,omitempty"`
	Target   string         `yaml:"target,omitempty"   json:"target,omitempty"`
	Recorded int            `yaml:"recorded"           json:"recorded"` // events added by this step
	Events   int            `yaml:"events"             json:"events"`   // log length after the step
	Path     string         `yaml:"path,omitempty"     json:"path,omitempty"`
	Summary  *model.Summary `yaml:"summary,omitempty"  json:"summary,omitempty"`
	Elapsed  string         `yaml:"elapsed,omitempty"  json:"elapsed,omitempty"`
}

var replayCmd = &cobra.Command{
	Use:   "replay <page.html> [script.yaml]",
	Short: "Replay a scripted interaction against a static HTML page",
	Long: `Load an HTML document without a browser, track it, and run a YAML list of
synthetic events against it. The script is read from the second argument or
from stdin.

Each step is an action name with its parameters as a map. Steps execute
sequentially, and by default execution stops on the first error.

Supported step types:
  click       { selector, x, y, button, alt, ctrl, shift, meta }
  scroll      { x, y, settle }          settle: false leaves the scroll debounce running
  key         { selector, key, alt, ctrl, shift, meta }
  submit      { selector, values: { name: value } }
  visibility  { hidden }
  pause, resume, clear, flush, summary
  export      { format }                json, yaml or sqlite into the export dir
  sleep       { ms }

Example:
  page-tracker replay shop.html <<'EOF'
  - click: { selector: "button.buy", x: 120, y: 40 }
  - scroll: { y: 900 }
  - key: { selector: "#q", key: "Enter" }
  - submit: { selector: "form#signup", values: { email: "a@b.test" } }
  - summary:
  EOF`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("url", "", "Document URL (default: file:// URL of the page)")
	replayCmd.Flags().String("referrer", "", "document.referrer for the page view")
	replayCmd.Flags().Int("width", 1280, "Viewport width")
	replayCmd.Flags().Int("height", 720, "Viewport height")
	replayCmd.Flags().Float64("scroll-height", 0, "Document height (default: viewport height)")
	replayCmd.Flags().Float64("scroll-width", 0, "Document width (default: viewport width)")
	replayCmd.Flags().String("export-dir", "", "Directory for export steps")
	replayCmd.Flags().Bool("stop-on-error", true, "Stop execution on first error")
	replayCmd.Flags().Bool("bundle", false, "Include the full export bundle in the output")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("export-dir") {
		cfg.Export.Dir, _ = cmd.Flags().GetString("export-dir")
	}
	opts := static.DefaultOptions()
	opts.URL, _ = cmd.Flags().GetString("url")
	opts.Referrer, _ = cmd.Flags().GetString("referrer")
	opts.Viewport.Width, _ = cmd.Flags().GetInt("width")
	opts.Viewport.Height, _ = cmd.Flags().GetInt("height")
	opts.ScrollHeight, _ = cmd.Flags().GetFloat64("scroll-height")
	opts.ScrollWidth, _ = cmd.Flags().GetFloat64("scroll-width")
	opts.DownloadDir = cfg.Export.Dir
	opts.Logger = logger.Named("static")
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")
	withBundle, _ := cmd.Flags().GetBool("bundle")

	var data []byte
	var err error
	if len(args) == 2 {
		data, err = os.ReadFile(args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	steps, err := parseScript(data)
	if err != nil {
		return err
	}

	page, err := static.Open(args[0], opts)
	if err != nil {
		return err
	}
	tr := tracker.New(page,
		tracker.WithLogger(logger.Named("tracker")),
		tracker.WithScrollDebounce(cfg.Tracker.ScrollDebounce),
	)
	defer tr.Close()
	cancelEcho := tr.Observe(console.Event)
	defer cancelEcho()
	tr.Start()

	res := runScript(page, tr, steps, stopOnError)
	tr.FlushScroll()
	if sum, err := tr.GetTrackingSummary(); err == nil {
		res.Summary = &sum
	}
	if withBundle {
		if b, err := tr.Bundle(); err == nil {
			res.Bundle = &b
		}
	}
	if err := output.Print(res); err != nil {
		return err
	}
	if !res.OK {
		return errors.New(res.Error)
	}
	return nil
}

// parseScript decodes a YAML list of single-key step maps.
func parseScript(data []byte) ([]map[string]map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no steps provided: pipe a YAML list of actions")
	}
	var steps []map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse YAML steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps provided: expected a YAML list of actions")
	}
	return steps, nil
}

// runScript executes steps in order against page.
func runScript(page *static.Page, tr *tracker.Tracker, steps []map[string]map[string]interface{}, stopOnError bool) ReplayResult {
	res := ReplayResult{Action: "replay", Steps: len(steps), Results: make([]StepResult, 0, len(steps))}
	hasFailure := false

	for i, step := range steps {
		stepNum := i + 1
		if len(step) != 1 {
			errMsg := fmt.Sprintf("step %d: expected exactly one action key, got %d", stepNum, len(step))
			res.Results = append(res.Results, StepResult{Step: stepNum, Error: errMsg})
			hasFailure = true
			if stopOnError {
				res.Error = errMsg
				break
			}
			continue
		}

		var result StepResult
		var err error
		for action, params := range step {
			before := tr.Session().Len()
			result, err = executeStep(page, tr, action, params)
			result.Step = stepNum
			result.Action = action
			result.Events = tr.Session().Len()
			if d := result.Events - before; d > 0 {
				result.Recorded = d
			}
		}
		if err != nil {
			result.Error = err.Error()
			res.Results = append(res.Results, result)
			hasFailure = true
			if stopOnError {
				res.Error = fmt.Sprintf("step %d: %s", stepNum, err)
				break
			}
			continue
		}
		result.OK = true
		res.Completed++
		res.Results = append(res.Results, result)
	}

	res.OK = !hasFailure
	if res.OK {
		res.Completed = len(res.Results)
	}
	return res
}

func executeStep(page *static.Page, tr *tracker.Tracker, action string, params map[string]interface{}) (StepResult, error) {
	switch action {
	case "click":
		selector := stringParam(params, "selector", "")
		if selector == "" {
			return StepResult{}, fmt.Errorf("click needs a selector")
		}
		button, err := platform.ParseMouseButton(stringParam(params, "button", "left"))
		if err != nil {
			return StepResult{}, err
		}
		err = page.Click(selector, static.ClickOptions{
			X:         floatParam(params, "x", 0),
			Y:         floatParam(params, "y", 0),
			Button:    button,
			Buttons:   intParam(params, "buttons", 0),
			Modifiers: modifierParams(params),
		})
		return StepResult{Target: selector}, err

	case "scroll":
		st := page.Scroll()
		page.ScrollTo(floatParam(params, "x", st.X), floatParam(params, "y", st.Y))
		if boolParam(params, "settle", true) {
			tr.FlushScroll()
		}
		return StepResult{}, nil

	case "key":
		key := stringParam(params, "key", "")
		if key == "" {
			return StepResult{}, fmt.Errorf("key needs a key")
		}
		selector := stringParam(params, "selector", "")
		return StepResult{Target: selector}, page.Key(selector, key, modifierParams(params))

	case "submit":
		selector := stringParam(params, "selector", "form")
		values := map[string]string{}
		if m, ok := params["values"].(map[string]interface{}); ok {
			for k, v := range m {
				values[k] = fmt.Sprintf("%v", v)
			}
		}
		return StepResult{Target: selector}, page.Submit(selector, values)

	case "visibility":
		page.SetVisibility(boolParam(params, "hidden", true))
		return StepResult{}, nil

	case "pause":
		tr.PauseTracking()
		return StepResult{}, nil

	case "resume":
		tr.ResumeTracking()
		return StepResult{}, nil

	case "clear":
		tr.ClearTrackingData()
		return StepResult{}, nil

	case "flush":
		tr.FlushScroll()
		return StepResult{}, nil

	case "summary":
		sum, err := tr.GetTrackingSummary()
		if errors.Is(err, session.ErrNoData) {
			return StepResult{}, nil
		}
		return StepResult{Summary: &sum}, err

	case "export":
		path, err := exportSession(tr, stringParam(params, "format", cfg.Export.Format), cfg.Export.Dir)
		return StepResult{Path: path}, err

	case "sleep":
		ms := intParam(params, "ms", 0)
		if ms <= 0 {
			return StepResult{}, fmt.Errorf("ms must be > 0")
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return StepResult{Elapsed: fmt.Sprintf("%dms", ms)}, nil
	}
	return StepResult{}, fmt.Errorf("unknown step type %q", action)
}

// Parameter extraction helpers for step maps

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		// Handle numeric values that YAML may parse as int/float
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

func floatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return float64(n)
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return defaultVal
}

func boolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

func modifierParams(params map[string]interface{}) platform.Modifiers {
	return platform.Modifiers{
		Alt:   boolParam(params, "alt", false),
		Ctrl:  boolParam(params, "ctrl", false),
		Shift: boolParam(params, "shift", false),
		Meta:  boolParam(params, "meta", false),
	}
}
