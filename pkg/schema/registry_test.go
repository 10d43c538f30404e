package schema

import (
	"errors"
	"testing"

	"github.com/marlkit/marl/pkg/core"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	reg := NewRegistry()
	person := MustNew("person", WithAttr("name", Text()))

	if err := reg.Register(person); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(person); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	got, err := reg.Lookup("person")
	if err != nil || got != person {
		t.Errorf("Lookup returned %v, %v", got, err)
	}

	_, err = reg.Lookup("ghost")
	if !errors.Is(err, core.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestRegistry_ForwardReferences(t *testing.T) {
	// Mutually referencing models register in either order; names resolve
	// at Check/use time, not declaration time.
	reg := NewRegistry()
	reg.MustRegister(MustNew("recipe",
		WithAttr("title", Text(Required())),
		WithAttr("author", One("person")),
	))
	reg.MustRegister(MustNew("person",
		WithAttr("name", Text(Required())),
		WithAttr("recipes", Many("recipe", "author")),
	))

	if err := reg.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestRegistry_CheckFailures(t *testing.T) {
	t.Run("missing target", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister(MustNew("post", WithAttr("author", One("person"))))
		if err := reg.Check(); !errors.Is(err, core.ErrUnknownModel) {
			t.Errorf("expected ErrUnknownModel, got %v", err)
		}
	})

	t.Run("missing inverse", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister(MustNew("post", WithAttr("tags", ManyToMany("tag", "posts"))))
		reg.MustRegister(MustNew("tag", WithAttr("label", Text())))
		if err := reg.Check(); err == nil {
			t.Error("expected missing inverse to fail Check")
		}
	})

	t.Run("inverse does not point back", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister(MustNew("post", WithAttr("tags", ManyToMany("tag", "posts"))))
		reg.MustRegister(MustNew("tag", WithAttr("posts", ManyToMany("post", "labels"))))
		if err := reg.Check(); err == nil {
			t.Error("expected mispointed inverse to fail Check")
		}
	})

	t.Run("via is not a one reference", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister(MustNew("person", WithAttr("posts", Many("post", "author"))))
		reg.MustRegister(MustNew("post", WithAttr("author", Text())))
		if err := reg.Check(); err == nil {
			t.Error("expected non-reference via attribute to fail Check")
		}
	})
}
