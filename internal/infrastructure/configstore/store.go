// Package configstore persists the user-facing JSON configuration document.
package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const DefaultPath = "config.json"

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the document, writing and returning the default one when the
// file does not exist yet.
func (s *Store) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Document, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := Default()
		if err := s.save(doc); err != nil {
			return Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read config: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, fmt.Errorf("parse config %s: %w", s.path, err)
	}
	if doc.Settings.Discovery == "" {
		doc.Settings.Discovery = DiscoveryBrowser
	}
	return doc, nil
}

func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

func (s *Store) save(doc Document) error {
	b, err := Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Marshal renders the document the way it is stored: indented by four
// spaces with a trailing newline.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Patch lists the fields to change; nil fields are left alone.
type Patch struct {
	FirstName        *string
	LastName         *string
	Email            *string
	DefaultURL       *string
	Times            []string
	DayOfWeek        *int
	StartTime        *string
	EndTime          *string
	CheckInterval    *int
	Headless         *bool
	StopAfterSuccess *bool
	SkipCheck        *bool
	Discovery        *string
	LinkPattern      *string
}

func (p Patch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.DefaultURL == nil && p.Times == nil && p.DayOfWeek == nil &&
		p.StartTime == nil && p.EndTime == nil && p.CheckInterval == nil &&
		p.Headless == nil && p.StopAfterSuccess == nil && p.SkipCheck == nil &&
		p.Discovery == nil && p.LinkPattern == nil
}

// Apply copies the set fields of p onto doc.
func (p Patch) Apply(doc Document) Document {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&doc.User.FirstName, p.FirstName)
	setStr(&doc.User.LastName, p.LastName)
	setStr(&doc.User.Email, p.Email)
	setStr(&doc.URLs.Default, p.DefaultURL)
	setStr(&doc.Settings.Discovery, p.Discovery)
	setStr(&doc.Settings.LinkPattern, p.LinkPattern)
	setBool(&doc.Settings.Headless, p.Headless)
	setBool(&doc.Settings.StopAfterSuccess, p.StopAfterSuccess)
	setBool(&doc.Settings.SkipCheck, p.SkipCheck)
	if p.Times != nil {
		doc.Schedule.Times = append([]string(nil), p.Times...)
	}
	if p.DayOfWeek != nil {
		doc.Schedule.DayOfWeek = intPtr(*p.DayOfWeek)
	}
	if p.StartTime != nil {
		doc.Schedule.StartTime = strPtr(*p.StartTime)
	}
	if p.EndTime != nil {
		doc.Schedule.EndTime = strPtr(*p.EndTime)
	}
	if p.CheckInterval != nil {
		doc.Schedule.CheckInterval = *p.CheckInterval
	}
	return doc
}

// Update loads the document, applies p, validates the schedule and saves.
func (s *Store) Update(p Patch) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Document{}, err
	}
	doc = p.Apply(doc)
	if errs := doc.ValidateSchedule(); errs.HasErrors() {
		return Document{}, errs
	}
	if err := s.save(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
