package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/tavern-engine/pkg/character"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <character.json> [more files...]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &CharacterValidator{}
	failed := false

	for _, filename := range os.Args[1:] {
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid\n", filename)
	}

	if failed {
		os.Exit(1)
	}
}

type CharacterValidator struct {
	errors []string
}

func (v *CharacterValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("character file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidID(nameWithoutExt) {
		return fmt.Errorf("character filename '%s' must be lowercase snake_case (e.g., old_toby.json, not OldToby.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var c character.Character
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&c); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.validateCharacter(&c, nameWithoutExt)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *CharacterValidator) validateCharacter(c *character.Character, fileID string) {
	if c.ID != "" && !isValidID(c.ID) {
		v.addError(fmt.Sprintf("id '%s' should be lowercase snake_case", c.ID))
	}
	if c.ID != "" && c.ID != fileID {
		v.addError(fmt.Sprintf("id '%s' does not match the filename '%s'", c.ID, fileID))
	}
	if c.Name == "" {
		v.addError("name is required")
	}
	if c.Age < 0 {
		v.addError(fmt.Sprintf("age must not be negative, got %d", c.Age))
	}
	if c.MemoryStrength < 0 || c.MemoryStrength > 100 {
		v.addError(fmt.Sprintf("memory_strength must be 0-100, got %d", c.MemoryStrength))
	}
	if c.SocialRank < 0 || c.SocialRank > 10 {
		v.addError(fmt.Sprintf("social_rank must be 0-10, got %d", c.SocialRank))
	}

	for skill, value := range c.Skills {
		if !isValidID(skill) {
			v.addError(fmt.Sprintf("skill name '%s' should be lowercase snake_case", skill))
		}
		if value < 0 || value > 10 {
			v.addError(fmt.Sprintf("skill '%s' must be 0-10, got %d", skill, value))
		}
	}

	for faction, standing := range c.FactionStandings {
		if !isValidID(faction) {
			v.addError(fmt.Sprintf("faction name '%s' should be lowercase snake_case", faction))
		}
		if standing < -100 || standing > 100 {
			v.addError(fmt.Sprintf("faction standing '%s' must be -100 to 100, got %d", faction, standing))
		}
	}

	for _, trait := range c.Traits {
		if strings.TrimSpace(trait) == "" {
			v.addError("traits must not contain empty entries")
		}
	}
	for _, goal := range c.Goals {
		if strings.TrimSpace(goal) == "" {
			v.addError("goals must not contain empty entries")
		}
	}
}

func (v *CharacterValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
