package health

import (
	"context"
	"testing"
)

func TestPostgres_NilPoolFails(t *testing.T) {
	c := Postgres(nil)
	if c.Name != "postgres" {
		t.Errorf("name = %q, want postgres", c.Name)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("nil pool should fail the check")
	}
}

func TestLLM_ReflectsConfiguration(t *testing.T) {
	if err := LLM(true).Check(context.Background()); err != nil {
		t.Errorf("configured provider should pass, got: %v", err)
	}
	if err := LLM(false).Check(context.Background()); err == nil {
		t.Error("missing provider should fail the check")
	}
}
