package state

import (
	"errors"
	"fmt"
	"time"

	"pagestyle/tree"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// Prepare derives styling options and traversal keys from loaded
// configuration. Must be called after Cfg is set.
func (e *LocalEnv) Prepare() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	opts, err := e.Cfg.Styling.Options()
	if err != nil {
		return fmt.Errorf("unable to prepare styling options: %w", err)
	}
	e.Opts = opts
	e.Keys = tree.Keys{
		Fields: e.Cfg.Batch.Fields,
		Lists:  e.Cfg.Batch.ListFields,
	}
	return nil
}
