package db

import (
	"strings"
	"testing"
)

func TestUpMigrations_SortedAndUpOnly(t *testing.T) {
	ups, err := upMigrations()
	if err != nil {
		t.Fatalf("upMigrations: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	for i, name := range ups {
		if !strings.HasSuffix(name, ".up.sql") {
			t.Fatalf("unexpected migration %q", name)
		}
		if i > 0 && ups[i-1] >= name {
			t.Fatalf("migrations not sorted: %v", ups)
		}
	}
}

func TestNilPool_IsSafe(t *testing.T) {
	var p *Pool
	p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("expected nil pool ping to be a no-op, got %v", err)
	}
	if p.Queries() != nil {
		t.Fatal("expected nil queries from nil pool")
	}
}
