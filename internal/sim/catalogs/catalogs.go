package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalogs is the static content served to clients: the index-stable
// character list, the categorised song list and the allowed backgrounds.
type Catalogs struct {
	Characters  CharacterCatalog
	Music       MusicCatalog
	Backgrounds BackgroundCatalog
}

type CharacterCatalog struct {
	Names  []string
	Index  map[string]int
	Digest string
}

type MusicCatalog struct {
	Categories []MusicCategory
	ByName     map[string]Song
	Digest     string
}

type MusicCategory struct {
	Category string `yaml:"category" json:"category"`
	Songs    []Song `yaml:"songs" json:"songs"`
}

// Song.Length is in seconds; zero or negative means the song does not loop.
type Song struct {
	Name   string  `yaml:"name" json:"name"`
	Length float64 `yaml:"length" json:"length"`
}

func (s Song) Duration() time.Duration {
	if s.Length <= 0 {
		return 0
	}
	return time.Duration(s.Length * float64(time.Second))
}

type BackgroundCatalog struct {
	Names  []string
	set    map[string]struct{}
	Digest string
}

// Allowed reports whether bg may be set. An empty catalog allows anything.
func (b BackgroundCatalog) Allowed(bg string) bool {
	if len(b.set) == 0 {
		return true
	}
	_, ok := b.set[bg]
	return ok
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadCharacters(filepath.Join(configDir, "characters.yaml"), &c.Characters); err != nil {
		return nil, err
	}
	if err := loadMusic(filepath.Join(configDir, "music.yaml"), &c.Music); err != nil {
		return nil, err
	}
	if err := loadBackgrounds(filepath.Join(configDir, "backgrounds.yaml"), &c.Backgrounds); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds catalogs from in-memory lists. Used by tests and tooling.
func New(chars []string, music []MusicCategory, backgrounds []string) *Catalogs {
	c := &Catalogs{}
	c.Characters = buildCharacters(chars)
	c.Music = buildMusic(music)
	c.Backgrounds = buildBackgrounds(backgrounds)
	return c
}

func (c *Catalogs) ValidCharID(id int) bool {
	return id >= 0 && id < len(c.Characters.Names)
}

func (c *Catalogs) CharName(id int) string {
	if !c.ValidCharID(id) {
		return "CHAR_SELECT"
	}
	return c.Characters.Names[id]
}

// Song looks up a song by exact name.
func (c *Catalogs) Song(name string) (Song, bool) {
	s, ok := c.Music.ByName[name]
	return s, ok
}

// MusicList flattens categories and songs in catalog order, the tail of
// the list sent in SM.
func (c *Catalogs) MusicList() []string {
	var out []string
	for _, cat := range c.Music.Categories {
		out = append(out, cat.Category)
		for _, s := range cat.Songs {
			out = append(out, s.Name)
		}
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadCharacters(path string, out *CharacterCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var names []string
	if err := yaml.Unmarshal(raw, &names); err != nil {
		return fmt.Errorf("characters.yaml: %w", err)
	}
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("characters.yaml: empty name at index %d", i)
		}
	}
	if len(names) == 0 {
		return errors.New("characters.yaml: no characters")
	}
	*out = buildCharacters(names)
	return nil
}

func buildCharacters(names []string) CharacterCatalog {
	out := CharacterCatalog{Names: names, Index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := out.Index[n]; !dup {
			out.Index[n] = i
		}
	}
	b, _ := json.Marshal(names)
	out.Digest = sha256Hex(b)
	return out
}

func loadMusic(path string, out *MusicCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// A server without music is still usable.
		if os.IsNotExist(err) {
			*out = buildMusic(nil)
			return nil
		}
		return err
	}
	var cats []MusicCategory
	if err := yaml.Unmarshal(raw, &cats); err != nil {
		return fmt.Errorf("music.yaml: %w", err)
	}
	for _, cat := range cats {
		if cat.Category == "" {
			return errors.New("music.yaml: empty category")
		}
		for _, s := range cat.Songs {
			if s.Name == "" {
				return fmt.Errorf("music.yaml: empty song name in %q", cat.Category)
			}
		}
	}
	*out = buildMusic(cats)
	return nil
}

func buildMusic(cats []MusicCategory) MusicCatalog {
	out := MusicCatalog{Categories: cats, ByName: map[string]Song{}}
	for _, cat := range cats {
		for _, s := range cat.Songs {
			out.ByName[s.Name] = s
		}
	}
	b, _ := json.Marshal(cats)
	out.Digest = sha256Hex(b)
	return out
}

func loadBackgrounds(path string, out *BackgroundCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = buildBackgrounds(nil)
			return nil
		}
		return err
	}
	var names []string
	if err := yaml.Unmarshal(raw, &names); err != nil {
		return fmt.Errorf("backgrounds.yaml: %w", err)
	}
	*out = buildBackgrounds(names)
	return nil
}

func buildBackgrounds(names []string) BackgroundCatalog {
	out := BackgroundCatalog{Names: names, set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		out.set[n] = struct{}{}
	}
	b, _ := json.Marshal(names)
	out.Digest = sha256Hex(b)
	return out
}
