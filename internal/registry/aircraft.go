// Package registry looks up the static description of an aircraft by its
// ICAO address.
package registry

import (
	"fmt"
	"regexp"
)

// WakeTurbulenceCategory is the ICAO wake turbulence class of an airframe
type WakeTurbulenceCategory int

const (
	WakeUnknown WakeTurbulenceCategory = iota
	WakeLight
	WakeMedium
	WakeHeavy
)

// ParseWakeTurbulenceCategory maps the registry letters L, M and H; anything
// else is unknown.
func ParseWakeTurbulenceCategory(s string) WakeTurbulenceCategory {
	switch s {
	case "L":
		return WakeLight
	case "M":
		return WakeMedium
	case "H":
		return WakeHeavy
	default:
		return WakeUnknown
	}
}

func (c WakeTurbulenceCategory) String() string {
	switch c {
	case WakeLight:
		return "L"
	case WakeMedium:
		return "M"
	case WakeHeavy:
		return "H"
	default:
		return "?"
	}
}

var (
	registrationPattern   = regexp.MustCompile(`^[A-Z0-9 .?/_+-]+$`)
	typeDesignatorPattern = regexp.MustCompile(`^[A-Z0-9]{2,4}$`)
	descriptionPattern    = regexp.MustCompile(`^[ABDGHLPRSTV-][0123468][EJPT-]$`)
)

// Aircraft is the registry record of one airframe. Empty fields are unknown.
type Aircraft struct {
	Registration   string
	TypeDesignator string
	Model          string
	// Description is the ICAO aircraft description, e.g. L2J
	Description    string
	WakeTurbulence WakeTurbulenceCategory
}

// Unknown is returned for addresses missing from the registry
var Unknown = Aircraft{}

// NewAircraft validates a registry record
func NewAircraft(registration, typeDesignator, model, description string, wtc WakeTurbulenceCategory) (Aircraft, error) {
	if !registrationPattern.MatchString(registration) {
		return Unknown, fmt.Errorf("invalid registration %q", registration)
	}
	if typeDesignator != "" && !typeDesignatorPattern.MatchString(typeDesignator) {
		return Unknown, fmt.Errorf("invalid type designator %q", typeDesignator)
	}
	if description != "" && !descriptionPattern.MatchString(description) {
		return Unknown, fmt.Errorf("invalid description %q", description)
	}
	return Aircraft{
		Registration:   registration,
		TypeDesignator: typeDesignator,
		Model:          model,
		Description:    description,
		WakeTurbulence: wtc,
	}, nil
}

// Known reports whether the record came from the registry
func (a Aircraft) Known() bool {
	return a.Registration != ""
}
