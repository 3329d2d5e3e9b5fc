// Package fixtures loads YAML manifests of users, groups, pages and
// workflows into a CMS store.
package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// Manifest is one fixture file.
type Manifest struct {
	Groups    []Group    `yaml:"groups"`
	Users     []User     `yaml:"users"`
	Pages     []Page     `yaml:"pages"`
	Workflows []Workflow `yaml:"workflows"`
}

// Group declares a group and its page permissions.
type Group struct {
	Name        string       `yaml:"name"`
	Permissions []Permission `yaml:"permissions,omitempty"`
}

// Permission grants a permission on the page with key Page and its subtree.
type Permission struct {
	Page       string `yaml:"page"`
	Permission string `yaml:"permission"`
}

// User declares an account. Active defaults to true.
type User struct {
	Username  string   `yaml:"username"`
	Email     string   `yaml:"email,omitempty"`
	FirstName string   `yaml:"first_name,omitempty"`
	LastName  string   `yaml:"last_name,omitempty"`
	Active    *bool    `yaml:"active,omitempty"`
	Superuser bool     `yaml:"superuser,omitempty"`
	Groups    []string `yaml:"groups,omitempty"`
	Profile   *Profile `yaml:"profile,omitempty"`
}

// Profile overrides notification preferences. Unset flags stay enabled.
type Profile struct {
	SubmittedNotifications *bool  `yaml:"submitted_notifications,omitempty"`
	ApprovedNotifications  *bool  `yaml:"approved_notifications,omitempty"`
	RejectedNotifications  *bool  `yaml:"rejected_notifications,omitempty"`
	PreferredLanguage      string `yaml:"preferred_language,omitempty"`
}

// Page declares a page and its children. Key defaults to the slug path
// from the root, e.g. "home/blog".
type Page struct {
	Key         string `yaml:"key,omitempty"`
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	ContentType string `yaml:"content_type,omitempty"`
	ForExplorer bool   `yaml:"for_explorer,omitempty"`
	Children    []Page `yaml:"children,omitempty"`
}

// Workflow declares an ordered list of group approval tasks and the pages
// it is assigned to.
type Workflow struct {
	Name  string   `yaml:"name"`
	Pages []string `yaml:"pages,omitempty"`
	Tasks []Task   `yaml:"tasks"`
}

// Task declares one group approval task.
type Task struct {
	Name   string   `yaml:"name"`
	Groups []string `yaml:"groups"`
}

// Parse decodes a manifest, rejecting unknown fields, and validates it.
func Parse(r io.Reader) (Manifest, error) {
	var manifest Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, errors.New("fixture is empty")
		}
		return Manifest{}, fmt.Errorf("decode fixture: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks that every reference resolves within the manifest.
func (m *Manifest) Validate() error {
	groups := map[string]bool{}
	for _, group := range m.Groups {
		name := strings.TrimSpace(group.Name)
		if name == "" {
			return errors.New("group name is required")
		}
		if groups[name] {
			return fmt.Errorf("group %q declared twice", name)
		}
		groups[name] = true
	}

	pages := map[string]bool{}
	var walk func(prefix string, list []Page) error
	walk = func(prefix string, list []Page) error {
		for i := range list {
			page := &list[i]
			slug := domain.NormalizeSlug(page.Slug)
			if page.Key == "" {
				page.Key = prefix + slug
			}
			if pages[page.Key] {
				return fmt.Errorf("page key %q declared twice", page.Key)
			}
			pages[page.Key] = true
			if err := walk(prefix+slug+"/", page.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", m.Pages); err != nil {
		return err
	}

	for _, group := range m.Groups {
		for _, perm := range group.Permissions {
			if !pages[perm.Page] {
				return fmt.Errorf("group %q: unknown page %q", group.Name, perm.Page)
			}
			if !domain.ValidPermission(perm.Permission) {
				return fmt.Errorf("group %q: unknown permission %q", group.Name, perm.Permission)
			}
		}
	}

	users := map[string]bool{}
	for _, user := range m.Users {
		if strings.TrimSpace(user.Username) == "" {
			return errors.New("username is required")
		}
		if users[user.Username] {
			return fmt.Errorf("user %q declared twice", user.Username)
		}
		users[user.Username] = true
		for _, name := range user.Groups {
			if !groups[name] {
				return fmt.Errorf("user %q: unknown group %q", user.Username, name)
			}
		}
	}

	for _, workflow := range m.Workflows {
		if strings.TrimSpace(workflow.Name) == "" {
			return errors.New("workflow name is required")
		}
		for _, key := range workflow.Pages {
			if !pages[key] {
				return fmt.Errorf("workflow %q: unknown page %q", workflow.Name, key)
			}
		}
		for _, task := range workflow.Tasks {
			for _, name := range task.Groups {
				if !groups[name] {
					return fmt.Errorf("workflow %q task %q: unknown group %q", workflow.Name, task.Name, name)
				}
			}
		}
	}
	return nil
}
