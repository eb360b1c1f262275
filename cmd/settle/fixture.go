package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trentd187/golf-wagers/internal/settlement"
)

// loadRound reads a round fixture. Unknown keys are rejected so a typo in an
// option name doesn't silently fall back to a default. A fixture without an id
// is named after its file.
func loadRound(path string) (settlement.Round, error) {
	f, err := os.Open(path)
	if err != nil {
		return settlement.Round{}, err
	}
	defer f.Close()

	var round settlement.Round
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&round); err != nil {
		if errors.Is(err, io.EOF) {
			return settlement.Round{}, fmt.Errorf("%s: empty fixture", path)
		}
		return settlement.Round{}, fmt.Errorf("%s: %w", path, err)
	}
	if round.ID == "" {
		round.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return round, nil
}
