// Package imports owns the per-file import binding for the template
// compiler function.
package imports

import (
	"strconv"

	"bennypowers.dev/templatetag/internal/log"
)

const (
	// DefaultImportPath is the module the compiler function is imported from
	DefaultImportPath = "@ember/template-compiler"
	// DefaultImportName is the compiler function's exported name, and the
	// local name tried first
	DefaultImportName = "template"
)

// Scope is the view of the host lexical scope the manager needs
type Scope interface {
	Has(name string) bool
	ImportOf(name string) (source, imported string, ok bool)
}

// Binding is the local name call sites use for the compiler function. Call
// sites hold the pointer and read the name when printed, so a rename after
// they were built still reaches them.
type Binding struct {
	name string
}

// Name returns the current local name
func (b *Binding) Name() string {
	return b.name
}

// Config configures a Manager
type Config struct {
	// ImportPath and ImportName identify the compiler function
	ImportPath string
	ImportName string
	// Lint predicts the binding without ever inserting an import
	Lint bool
	// OnInsert is called once, when the import declaration should be added
	OnInsert func(*Binding)
}

// Manager resolves and tracks the compiler binding of one file. It is not
// safe for concurrent use; each file gets its own.
type Manager struct {
	config   Config
	binding  *Binding
	counter  int
	inserted bool
}

// NewManager creates a manager with no binding chosen yet
func NewManager(config Config) *Manager {
	if config.ImportPath == "" {
		config.ImportPath = DefaultImportPath
	}
	if config.ImportName == "" {
		config.ImportName = DefaultImportName
	}
	return &Manager{config: config, counter: 1}
}

// EnsureBinding returns the binding to use at a template whose host scope is
// scope. The first call picks a name that scope does not already bind and,
// outside lint mode, requests the import. A later call whose scope binds the
// current name renames the binding, which the import and every earlier call
// site follow.
func (m *Manager) EnsureBinding(scope Scope) *Binding {
	name := m.config.ImportName
	if m.binding != nil {
		name = m.binding.name
	}

	for m.collides(scope, name) {
		name = m.config.ImportName + strconv.Itoa(m.counter)
		m.counter++
	}

	switch {
	case m.binding == nil:
		m.binding = &Binding{name: name}
	case m.binding.name != name:
		log.Debug("Renaming template compiler binding %s to %s", m.binding.name, name)
		m.binding.name = name
	}

	if !m.config.Lint && !m.inserted {
		m.inserted = true
		if m.config.OnInsert != nil {
			m.config.OnInsert(m.binding)
		}
	}
	return m.binding
}

// collides reports whether name is taken in scope. In lint mode an existing
// import of the compiler function itself is the binding the patch will use,
// not a collision.
func (m *Manager) collides(scope Scope, name string) bool {
	if scope == nil || !scope.Has(name) {
		return false
	}
	if m.config.Lint {
		source, imported, ok := scope.ImportOf(name)
		if ok && source == m.config.ImportPath && imported == m.config.ImportName {
			return false
		}
	}
	return true
}

// Binding returns the chosen binding, or nil before the first EnsureBinding
func (m *Manager) Binding() *Binding {
	return m.binding
}

// Inserted reports whether the import declaration was requested
func (m *Manager) Inserted() bool {
	return m.inserted
}

// ImportPath returns the module the compiler function comes from
func (m *Manager) ImportPath() string {
	return m.config.ImportPath
}

// ImportName returns the compiler function's exported name
func (m *Manager) ImportName() string {
	return m.config.ImportName
}
