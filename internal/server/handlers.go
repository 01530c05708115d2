package server

import (
	"context"
	"fmt"
	"image"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/keyforge/keyforge/internal/imagematch"
	"github.com/keyforge/keyforge/internal/player"
	"github.com/keyforge/keyforge/internal/script"
)

// scriptSummary is the per-script entry in list_scripts and play results.
type scriptSummary struct {
	ID          string `yaml:"id"                    json:"id"`
	Name        string `yaml:"name"                  json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Actions     int    `yaml:"actions"               json:"actions"`
	RepeatCount int    `yaml:"repeatCount"           json:"repeatCount"`
	Loop        bool   `yaml:"loop,omitempty"        json:"loop,omitempty"`
	UpdatedAt   string `yaml:"updatedAt"             json:"updatedAt"`
	Version     uint64 `yaml:"version"               json:"version"`
}

func summarize(s *script.Script) scriptSummary {
	return scriptSummary{
		ID:          s.ID.String(),
		Name:        s.Name,
		Description: s.Description,
		Actions:     s.Len(),
		RepeatCount: s.RepeatCount,
		Loop:        s.Loop,
		UpdatedAt:   s.UpdatedAt.Format("2006-01-02 15:04:05"),
		Version:     s.Version,
	}
}

// playbackStatus is the serialized player snapshot shared by several tools.
type playbackStatus struct {
	State       string               `yaml:"state"                json:"state"`
	Script      string               `yaml:"script,omitempty"     json:"script,omitempty"`
	ScriptID    string               `yaml:"scriptId,omitempty"   json:"scriptId,omitempty"`
	ActionIndex int                  `yaml:"actionIndex"          json:"actionIndex"`
	Iterations  int                  `yaml:"iterations"           json:"iterations"`
	Errors      []player.ActionError `yaml:"errors,omitempty"     json:"errors,omitempty"`
}

func (s *Server) playerStatus() playbackStatus {
	st := s.eng.Player().Status()
	out := playbackStatus{
		State:       st.State.String(),
		Script:      st.ScriptName,
		ActionIndex: st.ActionIndex,
		Iterations:  st.Iterations,
		Errors:      st.Errors,
	}
	if st.ScriptName != "" {
		out.ScriptID = st.ScriptID.String()
	}
	return out
}

// resultToText serializes a result to YAML for the MCP response body.
func resultToText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	return string(b)
}

func (s *Server) handlePlayScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	ref := stringParam(params, "script", "")
	speed := floatParam(params, "speed", 0)
	repeat := intParam(params, "repeat", 0)
	wait := boolParam(params, "wait", false)

	var stopOnError *bool
	if _, ok := params["stop-on-error"]; ok {
		v := boolParam(params, "stop-on-error", false)
		stopOnError = &v
	}

	if ref == "" {
		return mcp.NewToolResultError("script is required"), nil
	}

	s.engineMu.Lock()
	sc, err := s.eng.Resolve(ref)
	if err != nil {
		s.engineMu.Unlock()
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := s.eng.PlayOpts(speed, repeat, stopOnError)
	// Playback outlives the tool call; the request context must not cancel it.
	if err := s.eng.Player().Play(context.Background(), sc, opts); err != nil {
		s.engineMu.Unlock()
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.engineMu.Unlock()

	if wait {
		select {
		case <-s.eng.Player().Wait():
		case <-ctx.Done():
		}
	}

	result := struct {
		OK     bool           `yaml:"ok"`
		Action string         `yaml:"action"`
		Script scriptSummary  `yaml:"script"`
		Status playbackStatus `yaml:"status"`
	}{true, "play_script", summarize(sc), s.playerStatus()}
	return mcp.NewToolResultText(resultToText(result)), nil
}

// transportControl wraps Stop/Pause/Resume: locks the engine, applies the
// transition, returns the resulting status.
func (s *Server) transportControl(action string, fn func() error) (*mcp.CallToolResult, error) {
	s.engineMu.Lock()
	err := fn()
	s.engineMu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := struct {
		OK     bool           `yaml:"ok"`
		Action string         `yaml:"action"`
		Status playbackStatus `yaml:"status"`
	}{true, action, s.playerStatus()}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func (s *Server) handleStopPlayback(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transportControl("stop_playback", func() error {
		if err := s.eng.Player().Stop(); err != nil {
			return err
		}
		<-s.eng.Player().Wait()
		return nil
	})
}

func (s *Server) handlePausePlayback(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transportControl("pause_playback", s.eng.Player().Pause)
}

func (s *Server) handleResumePlayback(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transportControl("resume_playback", s.eng.Player().Resume)
}

func (s *Server) handleListScripts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scripts, err := s.eng.Store().ListAll()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries := make([]scriptSummary, 0, len(scripts))
	for _, sc := range scripts {
		entries = append(entries, summarize(sc))
	}
	return mcp.NewToolResultText(resultToText(entries)), nil
}

func (s *Server) handleGetScript(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := stringParam(request.GetArguments(), "script", "")
	if ref == "" {
		return mcp.NewToolResultError("script is required"), nil
	}

	sc, err := s.eng.Resolve(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type actionEntry struct {
		Index    int    `yaml:"index"`
		OffsetMs int64  `yaml:"offsetMs"`
		Detail   string `yaml:"detail"`
	}
	actions := sc.Actions()
	entries := make([]actionEntry, len(actions))
	for i, a := range actions {
		entries[i] = actionEntry{Index: i, OffsetMs: a.Offset.Milliseconds(), Detail: a.String()}
	}

	result := struct {
		Script  scriptSummary `yaml:"script"`
		Actions []actionEntry `yaml:"actions"`
	}{summarize(sc), entries}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func (s *Server) handleDeleteScript(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := stringParam(request.GetArguments(), "script", "")
	if ref == "" {
		return mcp.NewToolResultError("script is required"), nil
	}

	sc, err := s.eng.Resolve(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.eng.Store().Delete(sc.ID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := struct {
		OK     bool   `yaml:"ok"`
		Action string `yaml:"action"`
		Script string `yaml:"script"`
	}{true, "delete_script", sc.Name}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func (s *Server) handleFindImage(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	path := stringParam(params, "template", "")
	minConf := floatParam(params, "min-confidence", 0.8)
	region := stringParam(params, "region", "")

	if path == "" {
		return mcp.NewToolResultError("template is required"), nil
	}
	if err := imagematch.Validate(minConf); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tmpl, err := imagematch.LoadTemplate(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var img image.Image
	if region != "" {
		b, err := imagematch.ParseRegion(region)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		img, err = s.provider.Screenshotter.CaptureRegion(b[0], b[1], b[2], b[3])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		img, err = s.provider.Screenshotter.CaptureScreen()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	m, found := imagematch.FindMatch(img, tmpl, minConf)
	result := struct {
		Found      bool    `yaml:"found"`
		X          int     `yaml:"x,omitempty"`
		Y          int     `yaml:"y,omitempty"`
		Confidence float64 `yaml:"confidence,omitempty"`
	}{Found: found}
	if found {
		result.X, result.Y, result.Confidence = m.X, m.Y, m.Confidence
	}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func (s *Server) handleEngineStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engineMu.Lock()
	recording := s.eng.Recording()
	recorded := s.eng.RecordedActions()
	status := s.playerStatus()
	s.engineMu.Unlock()

	result := struct {
		Recording       bool           `yaml:"recording"`
		RecordedActions int            `yaml:"recordedActions,omitempty"`
		Playback        playbackStatus `yaml:"playback"`
	}{recording, recorded, status}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
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
		case float64:
			return n
		case int:
			return float64(n)
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
