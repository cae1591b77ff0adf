package models

import "errors"

// ErrSettingsBoundary is returned when an application-settings value falls
// outside the documented bounds (§8 "Boundary behaviors").
var ErrSettingsBoundary = errors.New("settings value out of bounds")
