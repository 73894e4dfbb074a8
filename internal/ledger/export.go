// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// RunDetail is a run together with its job results.
type RunDetail struct {
	Run     Run               `json:"run" yaml:"run"`
	Results []types.JobResult `json:"results" yaml:"results"`
}

// Detail loads a run and its results.
func (s *Store) Detail(ctx context.Context, id uuid.UUID) (RunDetail, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	results, err := s.Results(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{Run: run, Results: results}, nil
}

// Export writes a run and its results to w as YAML or JSON.
func (s *Store) Export(ctx context.Context, id uuid.UUID, format string, w io.Writer) error {
	d, err := s.Detail(ctx, id)
	if err != nil {
		return err
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
