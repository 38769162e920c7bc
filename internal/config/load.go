package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "gstage", "config.json")
}

// Load reads a JSON config file and overlays it onto the defaults. A
// missing file is not an error; a present but unreadable one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	doc := gjson.ParseBytes(data)

	if v := doc.Get("theme"); v.Exists() {
		cfg.ThemePreset = ThemePreset(v.String())
		cfg.Theme = ThemeForPreset(cfg.ThemePreset)
	}
	if v := doc.Get("debounce_ms"); v.Exists() {
		cfg.DebounceDelay = time.Duration(v.Int()) * time.Millisecond
	}
	if v := doc.Get("log_file"); v.Exists() {
		cfg.LogFile = v.String()
	}
	if v := doc.Get("confirm_discard"); v.Exists() {
		cfg.ConfirmDiscard = v.Bool()
	}

	if v := doc.Get("keybindings"); v.IsObject() {
		overrides := make(Keybindings)
		v.ForEach(func(action, keys gjson.Result) bool {
			var seqs []string
			if keys.IsArray() {
				for _, k := range keys.Array() {
					seqs = append(seqs, k.String())
				}
			} else {
				seqs = append(seqs, keys.String())
			}
			overrides[action.String()] = seqs
			return true
		})
		cfg.Keybindings = MergeKeybindings(overrides)
	}

	return cfg, nil
}
