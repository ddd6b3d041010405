// Package app provides the application layer that wires configuration, the
// generation backend, storage and the stage machine. The CLI and the HTTP
// server are thin adapters over it.
package app

import (
	"context"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Context holds shared dependencies for all app services.
type Context struct {
	Cfg    types.AppConfig
	LLMCfg llm.Config
	Script *config.Script
	Stores *store.Stores
}

// NewContext loads the script and LLM settings and opens the stores cfg names.
// Every failure here is fatal at startup.
func NewContext(ctx context.Context, cfg types.AppConfig) (*Context, error) {
	script, err := config.LoadScript(cfg.Script)
	if err != nil {
		return nil, err
	}

	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		return nil, types.ConfigurationError("load llm config", "invalid llm settings", err)
	}

	stores, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	return &Context{Cfg: cfg, LLMCfg: llmCfg, Script: script, Stores: stores}, nil
}

// Close releases the stores.
func (c *Context) Close() error {
	if c.Stores == nil {
		return nil
	}
	return c.Stores.Close()
}
