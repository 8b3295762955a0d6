// Package directory is the people/teams/repos data source behind the canvas.
// It resolves a person into a graph of their teams and repositories, laid
// out on rings around them.
package directory

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TFMV/relmap/models"
)

//go:embed people.yml
var builtinFixture []byte

// Fixture is the on-disk form of a directory
type Fixture struct {
	People map[string]PersonRecord `yaml:"people"`
	Teams  map[string]TeamRecord   `yaml:"teams"`
	Repos  map[string]RepoRecord   `yaml:"repos"`
}

// PersonRecord lists a person's team memberships and owned repositories
type PersonRecord struct {
	Name  string   `yaml:"name"`
	Teams []string `yaml:"teams"`
	Repos []string `yaml:"repos"`
}

// TeamRecord lists the repositories a team owns
type TeamRecord struct {
	Name  string   `yaml:"name"`
	Repos []string `yaml:"repos"`
}

// RepoRecord describes one repository
type RepoRecord struct {
	Name string `yaml:"name"`
}

// Person is a resolved person
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Team is a resolved team
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Repo is a resolved repository
type Repo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Builtin returns the fixture compiled into the binary
func Builtin() (Fixture, error) {
	return parseFixture(builtinFixture, "built-in directory")
}

// LoadFixture reads a YAML fixture from path
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseFixture(data, path)
}

func parseFixture(data []byte, source string) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parsing %s: %w", source, err)
	}
	if len(f.People) == 0 {
		return Fixture{}, fmt.Errorf("%s must define at least one person", source)
	}
	return f, nil
}

// Directory answers lookups against a fixture. It is read-only after
// construction and safe for concurrent use.
type Directory struct {
	fixture Fixture
	latency time.Duration
}

// New creates a directory over f. Every lookup waits latency before
// answering, the way a remote service would.
func New(f Fixture, latency time.Duration) *Directory {
	return &Directory{fixture: f, latency: latency}
}

// Open builds a directory from a fixture file, or from the built-in fixture
// when path is empty
func Open(path string, latency time.Duration) (*Directory, error) {
	var (
		f   Fixture
		err error
	)
	if path == "" {
		f, err = Builtin()
	} else {
		f, err = LoadFixture(path)
	}
	if err != nil {
		return nil, err
	}
	return New(f, latency), nil
}

// Person returns the person with the given ID
func (d *Directory) Person(ctx context.Context, id string) (Person, error) {
	rec, err := d.lookup(ctx, id)
	if err != nil {
		return Person{}, err
	}
	return Person{ID: id, Name: rec.Name}, nil
}

// TeamsByPerson returns the teams a person belongs to, in membership order.
// References to teams missing from the fixture are skipped.
func (d *Directory) TeamsByPerson(ctx context.Context, personID string) ([]Team, error) {
	rec, err := d.lookup(ctx, personID)
	if err != nil {
		return nil, err
	}
	teams := make([]Team, 0, len(rec.Teams))
	for _, id := range rec.Teams {
		t, ok := d.fixture.Teams[id]
		if !ok {
			continue
		}
		teams = append(teams, Team{ID: id, Name: t.Name})
	}
	return teams, nil
}

// ReposByPerson returns the unique repositories across a person's teams,
// followed by any directly owned repositories not already listed
func (d *Directory) ReposByPerson(ctx context.Context, personID string) ([]Repo, error) {
	rec, err := d.lookup(ctx, personID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var repos []Repo
	add := func(id string) {
		r, ok := d.fixture.Repos[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		repos = append(repos, Repo{ID: id, Name: r.Name})
	}

	for _, tid := range rec.Teams {
		for _, rid := range d.fixture.Teams[tid].Repos {
			add(rid)
		}
	}
	for _, rid := range rec.Repos {
		add(rid)
	}
	return repos, nil
}

// lookup waits out the configured latency and finds a person record
func (d *Directory) lookup(ctx context.Context, id string) (PersonRecord, error) {
	if err := d.wait(ctx); err != nil {
		return PersonRecord{}, err
	}
	rec, ok := d.fixture.People[id]
	if !ok {
		return PersonRecord{}, fmt.Errorf("person %q: %w", id, models.ErrEntityNotFound)
	}
	return rec, nil
}

func (d *Directory) wait(ctx context.Context) error {
	if d.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
