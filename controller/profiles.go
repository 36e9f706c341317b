package controller

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/feeder"
)

// Profile is a named feeding that can be started from the CLI, the UI or HTTP
type Profile struct {
	Name  string  `yaml:"name" json:"name"`
	Grams float32 `yaml:"grams" json:"grams"`
	// Motor is how long the auger doses after the gate closes
	Motor time.Duration `yaml:"motor" json:"motor"`
	// Blower defaults to Motor
	Blower time.Duration `yaml:"blower,omitempty" json:"blower,omitempty"`
}

type Profiles []Profile

type profilesFile struct {
	Profiles Profiles `yaml:"profiles"`
}

// DefaultProfiles are the firmware presets with the default durations
func DefaultProfiles() Profiles {
	defaults := feeder.DefaultParams()

	profiles := make(Profiles, 0, len(feeder.Presets))
	for _, preset := range feeder.Presets {
		profiles = append(profiles, Profile{
			Name:   preset.Name,
			Grams:  preset.Grams,
			Motor:  defaults.Motor,
			Blower: defaults.Blower,
		})
	}
	return profiles
}

// LoadProfilesFile reads profiles from a YAML file like:
//
//	profiles:
//	  - name: small
//	    grams: 40
//	    motor: 4s
//	    blower: 6s
//
// Profiles from the file replace defaults with the same name
func LoadProfilesFile(path string) (Profiles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening profiles file: %w", err)
	}
	defer f.Close()

	return LoadProfiles(f)
}

func LoadProfiles(r io.Reader) (Profiles, error) {
	var file profilesFile
	err := yaml.NewDecoder(r).Decode(&file)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding profiles: %w", err)
	}

	profiles := DefaultProfiles()
	for _, p := range file.Profiles {
		err = p.Validate()
		if err != nil {
			return nil, fmt.Errorf("invalid profile %q: %w", p.Name, err)
		}
		profiles = profiles.set(p)
	}

	return profiles, nil
}

func (ps Profiles) set(p Profile) Profiles {
	for i := range ps {
		if ps[i].Name == p.Name {
			ps[i] = p
			return ps
		}
	}
	return append(ps, p)
}

func (ps Profiles) Get(name string) (Profile, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("missing name")
	case p.Grams <= 0:
		return errors.New("grams must be positive")
	case p.Motor <= 0:
		return errors.New("motor duration must be positive")
	case p.Blower < 0:
		return errors.New("blower duration must not be negative")
	}
	return nil
}

// Command is the firmware command line that runs this profile
func (p Profile) Command() string {
	cmd := autofeed.CommandPrefix + "feeder:start:" +
		strconv.FormatFloat(float64(p.Grams), 'f', -1, 32) + "," + seconds(p.Motor)
	if p.Blower > 0 {
		cmd += "," + seconds(p.Blower)
	}
	return cmd
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
