// Package index loads the prebuilt rule index and checks its freshness
// against the upstream rule repository.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"rulescope/core"
)

// ErrIndexMissing reports that the index file does not exist yet. Callers
// degrade to an inert UI with a "regenerate the index" status instead of
// failing startup.
var ErrIndexMissing = errors.New("rule index not found")

// Load reads, validates and sorts the index payload at path. The returned
// corpus is ordered by recency (ties broken by title) and ready to serve.
func Load(path string, logger *zap.SugaredLogger) (*core.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexMissing, path)
		}
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}

	if err := core.ValidateIndexPayload(data); err != nil {
		return nil, fmt.Errorf("index %s is not a valid rule index: %w", path, err)
	}

	var idx core.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index %s: %w", path, err)
	}

	core.SortRules(idx.Rules)

	if idx.Count != len(idx.Rules) {
		logger.Warnw("Index count disagrees with rule list",
			"declared", idx.Count,
			"actual", len(idx.Rules))
		idx.Count = len(idx.Rules)
	}

	logger.Infow("Rule index loaded",
		"path", path,
		"rules", len(idx.Rules),
		"generated_from", idx.GeneratedFrom)

	return &idx, nil
}
