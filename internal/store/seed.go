package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Seed is the initial content of a Store.
type Seed struct {
	Users    []User    `yaml:"users" validate:"dive"`
	Messages []Message `yaml:"messages" validate:"dive"`
}

var validate = validator.New()

// ErrDuplicateID is returned when a seed repeats an id within a collection.
var ErrDuplicateID = errors.New("duplicate id")

// Validate checks that every entity carries its required fields and that ids
// are unique per collection.
func (s Seed) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}
	seen := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if seen[u.ID] {
			return fmt.Errorf("invalid seed: user %q: %w", u.ID, ErrDuplicateID)
		}
		seen[u.ID] = true
	}
	seen = make(map[string]bool, len(s.Messages))
	for _, m := range s.Messages {
		if seen[m.ID] {
			return fmt.Errorf("invalid seed: message %q: %w", m.ID, ErrDuplicateID)
		}
		seen[m.ID] = true
	}
	return nil
}

// DefaultSeed returns the built-in data set: two users and two messages, each
// message authored by the other user.
func DefaultSeed() Seed {
	return Seed{
		Users: []User{
			{ID: "1", FirstName: "John", LastName: "Doe"},
			{ID: "2", FirstName: "Jane", LastName: "Moe"},
		},
		Messages: []Message{
			{ID: "1", Text: "first tweet", UserID: "2"},
			{ID: "2", Text: "second tweet", UserID: "1"},
		},
	}
}

// LoadSeed reads a YAML seed file. Unknown keys are rejected.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	var seed Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return seed, nil
}
