package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lumina-backend/internal/models"
)

// Raw containers the metadata extractor can read.
var rawExtensions = map[string]struct{}{
	".nef": {},
	".cr2": {},
	".arw": {},
	".dng": {},
	".raf": {},
	".orf": {},
	".rw2": {},
}

// preferred first
var previewExtensions = []string{".jpg", ".jpeg", ".png"}

type bundlePair struct {
	RawPath     string
	PreviewPath string
}

// findPairs matches every raw file in dir with a preview sharing its base
// name, case-insensitively. Raw files without a preview are returned
// separately.
func findPairs(dir string) ([]bundlePair, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read directory: %w", err)
	}

	raws := make(map[string]string)
	previews := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		key := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if _, ok := rawExtensions[ext]; ok {
			raws[key] = filepath.Join(dir, name)
			continue
		}
		for _, pe := range previewExtensions {
			if ext == pe {
				if previews[key] == nil {
					previews[key] = make(map[string]string)
				}
				previews[key][ext] = filepath.Join(dir, name)
			}
		}
	}

	var pairs []bundlePair
	var unmatched []string
	for key, rawPath := range raws {
		preview := ""
		for _, pe := range previewExtensions {
			if p, ok := previews[key][pe]; ok {
				preview = p
				break
			}
		}
		if preview == "" {
			unmatched = append(unmatched, rawPath)
			continue
		}
		pairs = append(pairs, bundlePair{RawPath: rawPath, PreviewPath: preview})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].RawPath < pairs[j].RawPath })
	sort.Strings(unmatched)
	return pairs, unmatched, nil
}

func loadBundle(p bundlePair) (models.BundleInput, error) {
	raw, err := os.ReadFile(p.RawPath)
	if err != nil {
		return models.BundleInput{}, fmt.Errorf("read raw: %w", err)
	}
	preview, err := os.ReadFile(p.PreviewPath)
	if err != nil {
		return models.BundleInput{}, fmt.Errorf("read preview: %w", err)
	}
	return models.BundleInput{
		Raw: models.RawAsset{Filename: filepath.Base(p.RawPath), Data: raw},
		Preview: models.PreviewAsset{
			Filename:    filepath.Base(p.PreviewPath),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p.PreviewPath))),
			Data:        preview,
		},
	}, nil
}
