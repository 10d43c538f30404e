package schemafile

import (
	"strings"
	"testing"

	"github.com/marlkit/marl/pkg/schema"
)

const blogSchema = `
models:
  - name: person
    attrs:
      - name: name
        kind: text
        required: true
        maxlength: 100
      - name: email
        kind: email
      - name: age
        kind: numeric
        min: 0
      - name: posts
        kind: many
        target: post
        via: author
        cascade: true
  - name: post
    collection: entries
    attrs:
      - name: title
        kind: text
        required: true
      - name: author
        kind: one
        target: person
      - name: tags
        kind: many_to_many
        target: tag
        inverse: posts
  - name: tag
    attrs:
      - name: label
        kind: text
        required: true
      - name: posts
        kind: many_to_many
        target: post
        inverse: tags
`

func TestParse_Blog(t *testing.T) {
	reg, err := Parse([]byte(blogSchema))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	person, err := reg.Lookup("person")
	if err != nil {
		t.Fatalf("Lookup person: %v", err)
	}
	if person.Collection() != "persons" {
		t.Errorf("person collection = %q, want persons", person.Collection())
	}
	attrs := person.Attrs()
	want := []string{"name", "email", "age", "posts"}
	if len(attrs) != len(want) {
		t.Fatalf("person attrs = %v, want %v", attrs, want)
	}
	for i := range want {
		if attrs[i] != want[i] {
			t.Errorf("attr[%d] = %q, want %q (declaration order must hold)", i, attrs[i], want[i])
		}
	}

	name, _ := person.Field("name")
	if !name.IsRequired() {
		t.Error("name should be required")
	}
	if _, errs := name.Validate(schema.String(strings.Repeat("x", 101))); len(errs) == 0 {
		t.Error("maxlength should have carried over from the file")
	}

	posts, _ := person.Field("posts")
	if posts.Kind() != schema.ManyKind || posts.Target() != "post" || posts.Inverse() != "author" {
		t.Errorf("posts field mis-built: kind=%s target=%s via=%s", posts.Kind(), posts.Target(), posts.Inverse())
	}
	if !posts.Cascades() {
		t.Error("cascade flag should have carried over")
	}

	post, err := reg.Lookup("post")
	if err != nil {
		t.Fatalf("Lookup post: %v", err)
	}
	if post.Collection() != "entries" {
		t.Errorf("post collection = %q, want entries (explicit override)", post.Collection())
	}
}

func TestParse_Extends(t *testing.T) {
	src := `
models:
  - name: document
    attrs:
      - name: title
        kind: text
        required: true
  - name: article
    extends: document
    attrs:
      - name: body
        kind: text
`
	reg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	article, err := reg.Lookup("article")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := article.Field("title"); !ok {
		t.Error("article should inherit title from document")
	}
	if _, ok := article.Field("body"); !ok {
		t.Error("article should declare body")
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty file", `models: []`},
		{"unknown kind", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: blob"},
		{"one without target", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: one"},
		{"many without via", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: many\n        target: a"},
		{"extends unknown", "models:\n  - name: a\n    extends: nope\n    attrs:\n      - name: f\n        kind: text"},
		{"dangling target", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: one\n        target: ghost"},
		{"bad pattern", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: text\n        pattern: '['"},
		{"required many", "models:\n  - name: a\n    attrs:\n      - name: f\n        kind: many\n        target: a\n        via: owner\n        required: true"},
		{"not yaml", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.src)); err == nil {
				t.Errorf("Parse accepted %s", tc.name)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
