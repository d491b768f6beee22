package config

import (
	"fmt"
	"path/filepath"

	"seidefi/pkg/confkit"
	"seidefi/pkg/llm"
	"seidefi/pkg/perp"
)

// MustLoadLLM loads etc/llm.yaml from the project root and panics on error.
// It isolates the LLM section so tests that only need a client do not have
// to load the full application config.
func MustLoadLLM() *llm.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "llm.yaml")
	cfg, err := llm.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load llm config %s: %w", path, err))
	}
	return cfg
}

// MustLoadPerp loads etc/perp.yaml from the project root and panics on error.
func MustLoadPerp() *perp.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "perp.yaml")
	cfg, err := perp.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load perp config %s: %w", path, err))
	}
	return cfg
}

// MustBuildPerpProviders loads perp config from the default path and builds
// provider instances; returns the map and default provider name.
func MustBuildPerpProviders() (map[string]perp.Provider, string) {
	cfg := MustLoadPerp()
	providers, err := cfg.BuildProviders()
	if err != nil {
		panic(err)
	}
	return providers, cfg.Default
}
