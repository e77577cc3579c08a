package repository

import (
	"fmt"
	"path/filepath"

	"josekiminer/internal/apperrors"
)

// ModelInfo describes one known KataGo network. The registry keeps the
// original filenames so network lineage stays traceable while logs and output
// carry readable aliases.
type ModelInfo struct {
	Alias        string
	Role         string
	Elo          int
	Architecture string
	FilePath     string
}

// modelRegistry maps known network filenames to aliases and metadata.
var modelRegistry = map[string]ModelInfo{
	"STR_CONF_RTD_20251002__ELO14079_kata1-b28c512nbt-adam-s11165M-d5387M.bin.gz": {
		Alias:        "The_High_Referee",
		Role:         "referee",
		Elo:          14079,
		Architecture: "b28c512nbt",
	},
	"b18c384nbt-humanv0.bin.gz": {
		Alias:        "The_Chameleon",
		Role:         "player",
		Architecture: "b18c384nbt",
	},
	"20220421_ELO13504_kata1-b60c320-s5943629568-d2852985812.bin.gz": {
		Alias:        "The_Titan",
		Role:         "player",
		Elo:          13504,
		Architecture: "b60c320",
	},
	"20201128_ELO12520_kata1-b20c256x2-s1610809600-d384128195.txt.gz": {
		Alias:        "The_Veteran",
		Role:         "player",
		Elo:          12520,
		Architecture: "b20c256x2",
	},
	"20201128_ELO9023_kata1-b6c96-s73091584-d10630987.txt.gz": {
		Alias:        "The_Apprentice",
		Role:         "player",
		Elo:          9023,
		Architecture: "b6c96",
	},
}

// GetModelInfo looks up metadata by filename. Unregistered models get a
// derived alias so they can still be used and logged.
func GetModelInfo(path string) ModelInfo {
	base := filepath.Base(path)
	if info, ok := modelRegistry[base]; ok {
		info.FilePath = path
		return info
	}
	alias := base
	if len(alias) > 20 {
		alias = alias[:20]
	}
	return ModelInfo{
		Alias:    "Unknown_" + alias,
		Role:     "unknown",
		FilePath: path,
	}
}

// ScanModels lists every model file in dir with its registry metadata.
func ScanModels(dir string) ([]ModelInfo, error) {
	var found []ModelInfo
	for _, pattern := range []string{"*.bin.gz", "*.txt.gz", "*.bin", "*.txt"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, path := range matches {
			found = append(found, GetModelInfo(path))
		}
	}
	return found, nil
}

// FindRefereeModel picks the analysis model: an explicitly marked referee if
// present, otherwise the highest-rated network available.
func FindRefereeModel(dir string) (ModelInfo, error) {
	available, err := ScanModels(dir)
	if err != nil {
		return ModelInfo{}, err
	}

	for _, model := range available {
		if model.Role == "referee" {
			return model, nil
		}
	}

	best := ModelInfo{Elo: -1}
	for _, model := range available {
		if model.Elo > best.Elo {
			best = model
		}
	}
	if best.FilePath == "" {
		return ModelInfo{}, fmt.Errorf("%w in %s", apperrors.ErrNoModelFound, dir)
	}
	return best, nil
}
