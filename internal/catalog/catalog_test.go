package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"depcoord/internal/spec"
)

func writeCatalog(t *testing.T, yamlText string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	needs := c.NeedsFunc()
	s, _ := spec.Normalize("A")
	got, err := needs(context.Background(), s)
	if err != nil {
		t.Fatalf("needs: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no needs, got %v", got)
	}
}

func TestLoadStaticNeeds(t *testing.T) {
	path := writeCatalog(t, `
services:
  - id: B
  - id: C
    needs: [B, D]
  - id: D
    needs: [E]
  - id: E
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	needs := c.NeedsFunc()
	s, _ := spec.Normalize("C")
	got, err := needs(context.Background(), s)
	if err != nil {
		t.Fatalf("needs: %v", err)
	}
	if len(got) != 2 || got[0].ID != "B" || got[1].ID != "D" {
		t.Fatalf("unexpected needs for C: %+v", got)
	}
}

func TestLoadRejectsEmptyID(t *testing.T) {
	path := writeCatalog(t, `
services:
  - id: ""
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an entry with an empty id")
	}
}

func TestSpecOfBuildsRawSpecFromDefinition(t *testing.T) {
	path := writeCatalog(t, `
services:
  - id: C
    target: worker
    restart: permanent
    needs: [B]
  - id: B
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := c.SpecOf("C")
	if err != nil {
		t.Fatalf("SpecOf: %v", err)
	}
	if s.ID != "C" {
		t.Fatalf("expected ID C, got %q", s.ID)
	}
	if s.Start.Target != "worker" {
		t.Fatalf("expected target %q, got %q", "worker", s.Start.Target)
	}
	if s.Restart != spec.PolicyPermanent {
		t.Fatalf("expected PolicyPermanent, got %v", s.Restart)
	}
}

func TestSpecOfDefaultsRestartAndTarget(t *testing.T) {
	path := writeCatalog(t, `
services:
  - id: B
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := c.SpecOf("B")
	if err != nil {
		t.Fatalf("SpecOf: %v", err)
	}
	if s.Start.Target != "B" {
		t.Fatalf("expected target to default to id %q, got %q", "B", s.Start.Target)
	}
	if s.Restart != spec.PolicyTransient {
		t.Fatalf("expected default PolicyTransient, got %v", s.Restart)
	}
}

func TestSpecOfUnknownID(t *testing.T) {
	c := New()
	if _, err := c.SpecOf("missing"); err == nil {
		t.Fatal("expected an error for an unknown catalog id")
	}
}

type dynamicNeedsService struct {
	needs []interface{}
}

func (d *dynamicNeedsService) NeedsWithArgs(ctx context.Context, args []interface{}) ([]interface{}, error) {
	return d.needs, nil
}

func TestRegisterServiceDynamicNeeds(t *testing.T) {
	c := New()
	c.RegisterService("H", &dynamicNeedsService{needs: []interface{}{"E"}})

	needs := c.NeedsFunc()
	s, err := spec.NormalizeWithArg("H", []interface{}{"E"})
	if err != nil {
		t.Fatalf("NormalizeWithArg: %v", err)
	}
	got, err := needs(context.Background(), s)
	if err != nil {
		t.Fatalf("needs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "E" {
		t.Fatalf("unexpected dynamic needs: %+v", got)
	}
}
