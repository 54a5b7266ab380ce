package config

import (
	"path/filepath"

	"github.com/dstube1/Bot2.0/internal/dispatch"
	"github.com/dstube1/Bot2.0/internal/vision"
)

// Templates loads every declared state's reference image from templates_dir
// into immutable records. An unreadable asset aborts startup.
func (c *Config) Templates() ([]vision.Template, error) {
	out := make([]vision.Template, 0, len(c.States))
	for _, s := range c.States {
		img, err := vision.LoadImage(filepath.Join(c.TemplatesDir, s.Template))
		if err != nil {
			return nil, err
		}
		out = append(out, vision.Template{
			Label:     s.Label,
			Image:     img,
			Region:    Rect(s.Region),
			Threshold: s.Threshold,
			Resource:  s.Resource,
			Yield:     s.Yield,
		})
	}
	return out, nil
}

// Policy builds the per-state action table.
func (c *Config) Policy() dispatch.Policy {
	p := make(dispatch.Policy, len(c.States))
	for _, s := range c.States {
		if len(s.Actions) == 0 {
			continue
		}
		actions := make([]dispatch.Action, 0, len(s.Actions))
		for _, a := range s.Actions {
			actions = append(actions, a.Action())
		}
		p[s.Label] = actions
	}
	return p
}

// Action converts the declaration into a dispatchable action.
func (a ActionConfig) Action() dispatch.Action {
	return dispatch.Action{
		Kind:      dispatch.ActionKind(a.Kind),
		X:         a.X,
		Y:         a.Y,
		Button:    a.Button,
		Key:       a.Key,
		Wait:      a.Wait.Duration,
		MaxIssues: a.MaxIssues,
	}
}
