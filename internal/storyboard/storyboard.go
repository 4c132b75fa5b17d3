// Package storyboard converts remote shot records into the presentation
// schema shown once a text stage completes.
package storyboard

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ShotRecord is a shot as the remote task service reports it.
type ShotRecord struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Order       int     `json:"order"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Prompt      string  `json:"prompt"`
	Narration   string  `json:"narration"`
	Status      string  `json:"status"`
	ImagePath   string  `json:"image_path"`
	AudioPath   string  `json:"audio_path"`
	Transition  string  `json:"transition"`
	Duration    float64 `json:"duration"`
}

// Shot is one storyboard entry in presentation form.
type Shot struct {
	ShotID          string  `json:"shotId"`
	ShotOrder       int     `json:"shotOrder"`
	ShotTitle       string  `json:"shotTitle"`
	ShotDescription string  `json:"shotDescription"`
	ShotPrompt      string  `json:"shotPrompt"`
	Narration       string  `json:"narration"`
	Transition      string  `json:"transition"`
	Duration        float64 `json:"duration"`
	Status          string  `json:"status"`
	ImageURL        string  `json:"imageUrl"`
	AudioURL        string  `json:"audioUrl"`
}

// Storyboard is the ordered shot list of one project.
type Storyboard struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Shots []Shot `json:"shots"`
}

// Normalize builds a storyboard from raw records. Shots are ordered by
// ShotOrder with ties kept in arrival order; text fields are NFC-normalized
// and resource paths are resolved against resourceBase.
func Normalize(projectID, title string, records []ShotRecord, resourceBase string) Storyboard {
	shots := make([]Shot, 0, len(records))
	for _, rec := range records {
		shots = append(shots, Shot{
			ShotID:          strings.TrimSpace(rec.ID),
			ShotOrder:       rec.Order,
			ShotTitle:       cleanText(rec.Title),
			ShotDescription: cleanText(rec.Description),
			ShotPrompt:      cleanText(rec.Prompt),
			Narration:       cleanText(rec.Narration),
			Transition:      strings.TrimSpace(rec.Transition),
			Duration:        rec.Duration,
			Status:          strings.TrimSpace(rec.Status),
			ImageURL:        ResolveURL(resourceBase, rec.ImagePath),
			AudioURL:        ResolveURL(resourceBase, rec.AudioPath),
		})
	}
	slices.SortStableFunc(shots, func(a, b Shot) int {
		return cmp.Compare(a.ShotOrder, b.ShotOrder)
	})
	return Storyboard{ID: projectID, Title: cleanText(title), Shots: shots}
}

// ResolveURL joins a server-relative resource path onto base. Absolute http(s)
// URLs pass through unchanged and an empty path yields an empty URL.
func ResolveURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "/" + strings.TrimLeft(path, "/")
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func cleanText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}
