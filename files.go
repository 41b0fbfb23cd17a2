package auth

import (
	"embed"
)

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

// GetFixturesFS returns the seed fixtures for this package
func GetFixturesFS() embed.FS {
	return fixturesFS
}

// DefaultFixturesPath is the path of the principal fixtures inside GetFixturesFS.
const DefaultFixturesPath = "data/fixtures/principals.yml"
