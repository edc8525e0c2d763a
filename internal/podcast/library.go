// Package podcast manages the podcast shadowing episode library: episode
// directories on disk holding chapter audio clips and their transcripts,
// assigned to weeks by cycling the alphabetical episode list.
package podcast

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

var (
	ErrNoEpisodes         = errors.New("no episodes in the library")
	ErrEpisodeNotFound    = errors.New("episode not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrClipNotFound       = errors.New("audio clip not found")
)

// Episode is one episode directory: its name and the chapter names derived
// from the transcript files inside.
type Episode struct {
	Name     string   `json:"name"`
	Chapters []string `json:"chapters"`
}

type Library struct {
	dir string
}

func NewLibrary(dir string) (*Library, error) {
	if dir == "" {
		return nil, errors.New("podcast library dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create podcast library dir: %w", err)
	}
	return &Library{dir: dir}, nil
}

// Episodes lists the library alphabetically. Chapter names come from the
// .txt transcripts in each episode directory, without the extension.
func (l *Library) Episodes() ([]Episode, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read podcast library dir: %w", err)
	}

	var episodes []Episode
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		chapters, err := l.chapters(entry.Name())
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, Episode{
			Name:     entry.Name(),
			Chapters: chapters,
		})
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Name < episodes[j].Name })
	return episodes, nil
}

func (l *Library) chapters(episode string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.dir, episode))
	if err != nil {
		return nil, fmt.Errorf("read episode dir %s: %w", episode, err)
	}

	var chapters []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			chapters = append(chapters, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		}
	}
	sort.Strings(chapters)
	return chapters, nil
}

// Episode returns one episode by name.
func (l *Library) Episode(name string) (Episode, error) {
	episodes, err := l.Episodes()
	if err != nil {
		return Episode{}, err
	}
	for _, e := range episodes {
		if e.Name == name {
			return e, nil
		}
	}
	return Episode{}, fmt.Errorf("%w: %s", ErrEpisodeNotFound, name)
}

// EpisodeForWeek assigns one episode to a week, cycling the alphabetical
// list by week number.
func (l *Library) EpisodeForWeek(key weekcal.WeekKey) (Episode, error) {
	episodes, err := l.Episodes()
	if err != nil {
		return Episode{}, err
	}
	if len(episodes) == 0 {
		return Episode{}, ErrNoEpisodes
	}

	idx := (key.Week - 1) % len(episodes)
	if idx < 0 {
		idx += len(episodes)
	}
	return episodes[idx], nil
}

// NextEpisode returns the episode after the given one in the cycle.
func (l *Library) NextEpisode(current string) (Episode, error) {
	episodes, err := l.Episodes()
	if err != nil {
		return Episode{}, err
	}
	if len(episodes) == 0 {
		return Episode{}, ErrNoEpisodes
	}

	for i, e := range episodes {
		if e.Name == current {
			return episodes[(i+1)%len(episodes)], nil
		}
	}
	return episodes[0], nil
}

// Transcript reads one chapter transcript.
func (l *Library) Transcript(episode, chapter string) (string, error) {
	relPath, err := l.resolve(episode, chapter+".txt")
	if err != nil {
		return "", ErrTranscriptNotFound
	}
	data, err := os.ReadFile(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTranscriptNotFound
		}
		return "", fmt.Errorf("read transcript %s/%s: %w", episode, chapter, err)
	}
	return string(data), nil
}

// TranscriptPath is the library-relative transcript location stored on the
// week record.
func TranscriptPath(episode, chapter string) string {
	return episode + "/" + chapter + ".txt"
}

// ClipPath resolves an "<episode>/<chapter>.mp3" reference to its absolute
// path, rejecting anything that points outside the library.
func (l *Library) ClipPath(relPath string) (string, error) {
	parts := strings.Split(relPath, "/")
	if len(parts) != 2 {
		return "", ErrClipNotFound
	}
	full, err := l.resolve(parts[0], parts[1])
	if err != nil {
		return "", ErrClipNotFound
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrClipNotFound
		}
		return "", err
	}
	return full, nil
}

func (l *Library) resolve(segments ...string) (string, error) {
	for _, s := range segments {
		if s == "" || s != filepath.Base(s) || s == ".." {
			return "", errors.New("invalid path segment")
		}
	}
	return filepath.Join(append([]string{l.dir}, segments...)...), nil
}
