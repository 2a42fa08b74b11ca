package content

import (
	"net/url"
	"strings"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/audio"
)

// VisualizerBands is the number of bars in the playlist preview.
const VisualizerBands = 8

type Story struct {
	StoryMeta
	Text string `json:"text"`
}

type TrackView struct {
	Title         string    `json:"title"`
	Src           string    `json:"src"`
	Duration      float64   `json:"duration"`
	DurationLabel string    `json:"durationLabel"`
	Bands         []float64 `json:"bands"`
}

type PlaylistView struct {
	Slug          string      `json:"slug"`
	Title         string      `json:"title"`
	TotalDuration string      `json:"totalDuration"`
	Tracks        []TrackView `json:"tracks"`
}

type Library struct {
	catalog *Catalog
	texts   *TextStore
}

func NewLibrary(catalog *Catalog, texts *TextStore) *Library {
	return &Library{catalog: catalog, texts: texts}
}

// Stories merges metadata with text, in catalog order.
func (l *Library) Stories() []Story {
	out := make([]Story, 0, len(l.catalog.Stories))
	for _, meta := range l.catalog.Stories {
		out = append(out, Story{StoryMeta: meta, Text: l.texts.TextOrPlaceholder(meta.Slug)})
	}
	return out
}

func (l *Library) Playlists() []PlaylistView {
	out := make([]PlaylistView, 0, len(l.catalog.Playlists))
	for _, p := range l.catalog.Playlists {
		view := PlaylistView{Slug: p.Slug, Title: p.Title, Tracks: make([]TrackView, 0, len(p.Tracks))}
		var total float64
		for _, t := range p.Tracks {
			total += t.Duration
			view.Tracks = append(view.Tracks, TrackView{
				Title:         t.Title,
				Src:           audioSrc(t.File),
				Duration:      t.Duration,
				DurationLabel: audio.FormatTime(t.Duration),
				Bands:         audio.Bands(t.Spectrum, VisualizerBands),
			})
		}
		view.TotalDuration = audio.FormatTime(total)
		out = append(out, view)
	}
	return out
}

func audioSrc(file string) string {
	parts := strings.Split(strings.TrimLeft(file, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/api/audio/" + strings.Join(parts, "/")
}
