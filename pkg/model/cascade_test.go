package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/marlkit/marl/pkg/adapters/memstore"
	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/model"
	"github.com/marlkit/marl/pkg/schema"
)

func TestDelete_CascadeOne(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.MustNew("account",
		schema.WithAttr("name", schema.Text(schema.Required())),
		schema.WithAttr("profile", schema.One("profile", schema.Cascade())),
	))
	reg.MustRegister(schema.MustNew("profile",
		schema.WithAttr("bio", schema.Text()),
	))
	db := model.New(memstore.New(), reg)

	profile, _ := db.New("profile")
	if err := profile.Save(ctx); err != nil {
		t.Fatal(err)
	}
	account, _ := db.New("account")
	if err := account.Set("name", schema.String("Bob")); err != nil {
		t.Fatal(err)
	}
	if err := account.SetOne("profile", profile); err != nil {
		t.Fatal(err)
	}
	if err := account.Save(ctx); err != nil {
		t.Fatal(err)
	}

	if err := account.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := db.Get(ctx, "profile", profile.Key()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected cascaded profile delete, got %v", err)
	}
}

func TestDelete_CascadeMany(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.MustNew("person",
		schema.WithAttr("name", schema.Text(schema.Required())),
		schema.WithAttr("posts", schema.Many("post", "author", schema.Cascade())),
	))
	reg.MustRegister(schema.MustNew("post",
		schema.WithAttr("title", schema.Text(schema.Required())),
		schema.WithAttr("author", schema.One("person")),
	))
	db := model.New(memstore.New(), reg)

	bob, _ := db.New("person")
	if err := bob.Set("name", schema.String("Bob")); err != nil {
		t.Fatal(err)
	}
	if err := bob.Save(ctx); err != nil {
		t.Fatal(err)
	}

	var postKeys []string
	for _, title := range []string{"a", "b"} {
		post, _ := db.New("post")
		if err := post.Set("title", schema.String(title)); err != nil {
			t.Fatal(err)
		}
		if err := post.SetOne("author", bob); err != nil {
			t.Fatal(err)
		}
		if err := post.Save(ctx); err != nil {
			t.Fatal(err)
		}
		postKeys = append(postKeys, post.Key())
	}

	if err := bob.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, key := range postKeys {
		if _, err := db.Get(ctx, "post", key); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected post %s cascaded away, got %v", key, err)
		}
	}
}

func TestDelete_NoCascadeLeavesTargets(t *testing.T) {
	ctx := context.Background()
	db := model.New(memstore.New(), blogRegistry(t))

	bob := savedPerson(t, db, "Bob")
	post := savedPost(t, db, "Hello")
	if err := post.SetOne("author", bob); err != nil {
		t.Fatal(err)
	}
	if err := post.Save(ctx); err != nil {
		t.Fatal(err)
	}

	if err := post.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(ctx, "person", bob.Key()); err != nil {
		t.Errorf("expected author untouched without cascade, got %v", err)
	}
}
