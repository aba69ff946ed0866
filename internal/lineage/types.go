// Package lineage is a client for the public LineageOS metadata endpoints:
// the hudson build-target roster, the updater v2 API and the wiki device data.
package lineage

import "time"

// BuildTarget is one roster entry from hudson. Period is the build cadence
// code ("N" nightly, "W" weekly, "M" monthly).
type BuildTarget struct {
	Device string
	Branch string
	Period string
}

type BuildFile struct {
	Filename string
	URL      string
	Size     int64
}

// Build is one published artifact set for a device. Files[0] is the OTA zip;
// the rest are additional files (recovery images etc.) passed through to the
// announcement untouched.
type Build struct {
	Date     string
	Datetime time.Time
	Version  string
	Type     string
	Files    []BuildFile
}

// OTA returns the primary OTA zip file, if present.
func (b Build) OTA() (BuildFile, bool) {
	if len(b.Files) == 0 {
		return BuildFile{}, false
	}
	return b.Files[0], true
}

// Extras returns all files except the primary OTA zip.
func (b Build) Extras() []BuildFile {
	if len(b.Files) < 2 {
		return nil
	}
	return b.Files[1:]
}

type DeviceInfo struct {
	Codename string
	OEM      string
	Name     string
	InfoURL  string
	Versions []string
}
