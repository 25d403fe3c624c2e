// Package auth resolves the roles held by an IRC identity.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/ryanuber/go-glob"
	"gopkg.in/yaml.v3"
)

// Identity is who sent a line.
type Identity struct {
	Nick string
	User string
	Host string
}

// IdentityFromPrefix splits a nick!user@host prefix. A bare nick yields an
// identity with only Nick set.
func IdentityFromPrefix(prefix string) Identity {
	nuh, err := ircmsg.ParseNUH(prefix)
	if err != nil {
		return Identity{Nick: prefix}
	}
	return Identity{Nick: nuh.Name, User: nuh.User, Host: nuh.Host}
}

// Mask renders the identity as nick!user@host.
func (i Identity) Mask() string {
	return fmt.Sprintf("%s!%s@%s", i.Nick, i.User, i.Host)
}

// RoleStore looks up the roles held by an identity.
type RoleStore interface {
	Roles(ctx context.Context, id Identity) ([]string, error)
}

// User is one entry of the roles file
type User struct {
	Nick  string   `yaml:"nick"`
	Masks []string `yaml:"masks"`
	Roles []string `yaml:"roles"`
}

type rolesFile struct {
	Users []User `yaml:"users"`
}

// FileStore serves roles from a YAML file held in memory.
type FileStore struct {
	path string

	mu    sync.RWMutex
	users []User
}

// LoadFileStore reads the roles file at path. A missing file yields an
// empty store, so every identity has no roles.
func LoadFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore builds a store from users directly.
func NewStaticStore(users []User) *FileStore {
	return &FileStore{users: users}
}

// Reload re-reads the roles file from disk.
func (s *FileStore) Reload() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.set(nil)
			return nil
		}
		return fmt.Errorf("failed to read roles file: %w", err)
	}

	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse roles file: %w", err)
	}
	s.set(f.Users)
	return nil
}

func (s *FileStore) set(users []User) {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
}

// Roles returns the union of roles of every user entry matching id.
func (s *FileStore) Roles(ctx context.Context, id Identity) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var roles []string
	for _, u := range s.users {
		if !u.matches(id) {
			continue
		}
		for _, r := range u.Roles {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	}
	return roles, nil
}

// matches requires the nick to match and, when masks are listed, the
// full nick!user@host to match at least one of them.
func (u User) matches(id Identity) bool {
	if !strings.EqualFold(u.Nick, id.Nick) {
		return false
	}
	if len(u.Masks) == 0 {
		return true
	}
	mask := strings.ToLower(id.Mask())
	for _, m := range u.Masks {
		if glob.Glob(strings.ToLower(m), mask) {
			return true
		}
	}
	return false
}
