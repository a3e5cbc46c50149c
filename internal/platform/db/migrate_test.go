package db

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/migrations"
)

func TestGooseLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	l := gooseLogger{logger: zerolog.New(&buf)}
	l.Printf("OK   %s (%s)", "00001_init.sql", "12ms")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected info level, got %s", out)
	}
	if !strings.Contains(out, "00001_init.sql") {
		t.Errorf("expected formatted message, got %s", out)
	}
}

func TestEmbeddedMigrations_Present(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			t.Errorf("unexpected file in migrations: %s", e.Name())
		}
		body, err := migrations.FS.ReadFile(e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if !bytes.Contains(body, []byte("-- +goose Up")) || !bytes.Contains(body, []byte("-- +goose Down")) {
			t.Errorf("%s is missing goose annotations", e.Name())
		}
	}
}
