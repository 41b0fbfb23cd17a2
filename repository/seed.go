package repository

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	auth "github.com/salesreport/go-auth"
)

// PrincipalFixture is one seeded principal. Manager refers to another
// fixture by email and must appear earlier in the file.
type PrincipalFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Active   *bool  `yaml:"active"`
	Manager  string `yaml:"manager"`
}

// Fixtures is the seed file layout.
type Fixtures struct {
	Principals []PrincipalFixture `yaml:"principals"`
}

// LoadFixtures reads and decodes a fixtures file from fsys.
func LoadFixtures(fsys fs.FS, path string) (*Fixtures, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}

	fixtures := &Fixtures{}
	if err := yaml.Unmarshal(raw, fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}

	for i, p := range fixtures.Principals {
		if p.Email == "" || p.Password == "" || p.Name == "" {
			return nil, fmt.Errorf("fixture %d: name, email and password are required", i)
		}
		if _, ok := auth.ParseRole(p.Role); !ok {
			return nil, fmt.Errorf("fixture %s: unknown role %q", p.Email, p.Role)
		}
	}

	return fixtures, nil
}

// LoadDefaultFixtures loads the fixtures embedded in the auth package.
func LoadDefaultFixtures() (*Fixtures, error) {
	return LoadFixtures(auth.GetFixturesFS(), auth.DefaultFixturesPath)
}

// Seed inserts every fixture not yet present, in a single transaction.
// Existing principals are left untouched.
func Seed(ctx context.Context, manager auth.RepositoryManager, hasher auth.PasswordAuthenticator, fixtures *Fixtures) ([]*auth.Principal, error) {
	if fixtures == nil {
		return nil, nil
	}
	if hasher == nil {
		hasher = auth.NewBcryptHasher(auth.DefaultPasswordCost)
	}

	seeded := make([]*auth.Principal, 0, len(fixtures.Principals))

	err := manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repo := manager.Principals()
		byEmail := make(map[string]*auth.Principal, len(fixtures.Principals))

		for _, f := range fixtures.Principals {
			role, _ := auth.ParseRole(f.Role)

			hash, err := hasher.HashPassword(f.Password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", f.Email, err)
			}

			record := &auth.Principal{
				Name:         f.Name,
				Email:        f.Email,
				PasswordHash: hash,
				Role:         role,
				IsActive:     f.Active == nil || *f.Active,
			}

			if f.Manager != "" {
				mgr, ok := byEmail[f.Manager]
				if !ok {
					existing, err := repo.GetByEmailTx(ctx, tx, f.Manager)
					if err != nil {
						return fmt.Errorf("resolve manager %s for %s: %w", f.Manager, f.Email, err)
					}
					mgr = existing
				}
				record.ManagerID = &mgr.ID
			}

			stored, err := repo.GetOrCreateTx(ctx, tx, record)
			if err != nil {
				return fmt.Errorf("seed %s: %w", f.Email, err)
			}
			byEmail[stored.Email] = stored
			seeded = append(seeded, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return seeded, nil
}
