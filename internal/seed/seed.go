// Package seed loads a church's rotation configuration from YAML.
//
// A seed file describes one church with its organists, cycles and services.
// Cycles reference organists by name and services reference cycles by name,
// so a file can be written by hand. Ids are derived deterministically from
// the church id and each entity's natural key, which makes re-importing the
// same file an in-place update.
//
//	church:
//	  id: central
//	  name: Central
//	  combine_weekday: sunday
//	organists:
//	  - {name: Ana, category: official}
//	  - {name: Bia, category: apprentice}
//	cycles:
//	  - {track: official, number: 1, name: Cycle 1, members: [Ana, Bia]}
//	services:
//	  - {name: Sunday Worship, weekday: sunday, time: "19:00", track: official}
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the root of a seed document.
type File struct {
	Church    Church     `yaml:"church" validate:"required"`
	Organists []Organist `yaml:"organists" validate:"dive"`
	Cycles    []Cycle    `yaml:"cycles" validate:"dive"`
	Services  []Service  `yaml:"services" validate:"dive"`
}

// Church holds the church settings.
type Church struct {
	ID                    string `yaml:"id" validate:"omitempty,max=64"`
	Name                  string `yaml:"name" validate:"required,max=200"`
	SameOrganistBothRoles bool   `yaml:"same_organist_both_roles"`
	CombineWeekday        string `yaml:"combine_weekday" validate:"omitempty,weekday"`
}

// Organist is one schedulable person. Active defaults to true.
type Organist struct {
	Name     string `yaml:"name" validate:"required,max=200"`
	Category string `yaml:"category" validate:"required,oneof=official youth apprentice"`
	Active   *bool  `yaml:"active"`
}

// Cycle is an ordered list of organist names on one track.
type Cycle struct {
	Track     string   `yaml:"track" validate:"required,oneof=official youth"`
	Number    *int     `yaml:"number" validate:"required_if=Track official,omitempty,min=1"`
	Name      string   `yaml:"name" validate:"required,max=200"`
	SortOrder int      `yaml:"sort_order"`
	Members   []string `yaml:"members" validate:"dive,required"`
	Active    *bool    `yaml:"active"`
}

// Service is a recurring weekly slot.
type Service struct {
	Name           string `yaml:"name" validate:"required,max=200"`
	Weekday        string `yaml:"weekday" validate:"required,weekday"`
	Time           string `yaml:"time" validate:"required,datetime=15:04"`
	Track          string `yaml:"track" validate:"required,oneof=official youth"`
	Cycle          string `yaml:"cycle"`
	MonthlyOrdinal *int   `yaml:"monthly_ordinal" validate:"omitempty,monthly_ordinal"`
	Active         *bool  `yaml:"active"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday resolves an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// timeLayout is the time-of-day format of services.
const timeLayout = "15:04"

var validate = mustValidator()

func mustValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	custom := map[string]validator.Func{
		"weekday": func(fl validator.FieldLevel) bool {
			_, ok := ParseWeekday(fl.Field().String())
			return ok
		},
		"monthly_ordinal": func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n == -1 || (n >= 1 && n <= 5)
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("seed: register %s validation: %v", tag, err))
		}
	}
	return v
}

// Load reads and validates a seed file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse seed: empty document")
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field formats and cross references.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	var errs []error

	organists := make(map[string]bool, len(f.Organists))
	for _, o := range f.Organists {
		key := naturalKey(o.Name)
		if organists[key] {
			errs = append(errs, fmt.Errorf("organist %q listed twice", o.Name))
		}
		organists[key] = true
	}

	cycles := make(map[string]bool, len(f.Cycles))
	numbers := make(map[int]string)
	tracks := make(map[string]string, len(f.Organists))
	for _, c := range f.Cycles {
		key := naturalKey(c.Name)
		if cycles[key] {
			errs = append(errs, fmt.Errorf("cycle %q listed twice", c.Name))
		}
		cycles[key] = true

		if c.Track == "official" && isActive(c.Active) {
			if prev, ok := numbers[*c.Number]; ok {
				errs = append(errs, fmt.Errorf("cycles %q and %q share number %d", prev, c.Name, *c.Number))
			}
			numbers[*c.Number] = c.Name
		}

		seen := make(map[string]bool, len(c.Members))
		for _, m := range c.Members {
			mk := naturalKey(m)
			if !organists[mk] {
				errs = append(errs, fmt.Errorf("cycle %q: unknown organist %q", c.Name, m))
			}
			if seen[mk] {
				errs = append(errs, fmt.Errorf("cycle %q: organist %q listed twice", c.Name, m))
			}
			seen[mk] = true

			if track, ok := tracks[mk]; !ok {
				tracks[mk] = c.Track
			} else if track != c.Track {
				errs = append(errs, fmt.Errorf("cycle %q: organist %q is already on the %s track", c.Name, m, track))
			}
		}
	}

	for _, s := range f.Services {
		if s.Cycle != "" && !cycles[naturalKey(s.Cycle)] {
			errs = append(errs, fmt.Errorf("service %q: unknown cycle %q", s.Name, s.Cycle))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid seed: %w", errors.Join(errs...))
	}
	return nil
}

func isActive(p *bool) bool {
	return p == nil || *p
}
