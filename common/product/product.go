/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

// Package product exposes the name and version of the front-end control
// binaries, as injected at link time or recovered from the source tree.
package product

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var ( // Acquired from -ldflags="-X=..." in Makefile
	VERSION_MAJOR = "0"
	VERSION_MINOR = "0"
	VERSION_PATCH = "0"
	BUILD         = ""
)

var (
	NAME             = "fecctl"
	PRETTY_SHORTNAME = "FECctl"
	PRETTY_FULLNAME  = "O² Front-End Control"
	VERSION          string
	VERSION_SHORT    string
	VERSION_BUILD    string
)

type versionTriple struct {
	major, minor, patch string
}

// parseVersionFile reads VERSION_MAJOR := x style assignments.
// Missing keys keep the values passed in.
func parseVersionFile(contents []byte, v versionTriple) versionTriple {
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "VERSION_MAJOR":
			v.major = value
		case "VERSION_MINOR":
			v.minor = value
		case "VERSION_PATCH":
			v.patch = value
		}
	}
	return v
}

// gitRevision is equivalent to git rev-parse --short HEAD, best effort.
func gitRevision(localRepoPath string) string {
	r, err := git.PlainOpen(localRepoPath)
	if err != nil {
		return ""
	}
	h, err := r.ResolveRevision(plumbing.Revision("HEAD"))
	if err != nil {
		return ""
	}
	return h.String()[:7]
}

func sourceTreeDir() string {
	ex, err := os.Executable()
	if err != nil {
		return ""
	}
	// binaries land in <tree>/bin
	return filepath.Dir(filepath.Dir(ex))
}

func init() {
	// Built with go build directly instead of make.
	if VERSION_MAJOR == "0" && VERSION_MINOR == "0" && VERSION_PATCH == "0" && BUILD == "" {
		base := sourceTreeDir()
		if contents, err := os.ReadFile(filepath.Join(base, "VERSION")); err == nil {
			v := parseVersionFile(contents, versionTriple{VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH})
			VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH = v.major, v.minor, v.patch
		}
		BUILD = gitRevision(base)
	}

	VERSION = strings.Join([]string{VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH}, ".")
	VERSION_SHORT = VERSION
	VERSION_BUILD = VERSION
	if BUILD != "" {
		VERSION_BUILD = strings.Join([]string{VERSION, BUILD}, "-")
	}
}
