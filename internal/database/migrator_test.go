package database

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	content := `
-- schema for widgets
CREATE TABLE widgets (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE INDEX idx_widgets_name ON widgets (name);
`
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d: %v", len(statements), statements)
	}
	if !strings.HasPrefix(statements[0], "CREATE TABLE") {
		t.Errorf("Expected first statement to be the CREATE TABLE, got: %s", statements[0])
	}
	if !strings.HasPrefix(statements[1], "CREATE INDEX") {
		t.Errorf("Expected second statement to be the CREATE INDEX, got: %s", statements[1])
	}
}

func TestSplitStatements_DollarQuotedBody(t *testing.T) {
	content := `
CREATE FUNCTION touch_updated_at() RETURNS trigger AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

CREATE TABLE gadgets (id SERIAL PRIMARY KEY);
`
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(statements))
	}

	// The semicolons inside the function body must not end the statement
	if !strings.Contains(statements[0], "RETURN NEW;") {
		t.Errorf("Expected function body kept intact, got: %s", statements[0])
	}
	if !strings.HasSuffix(strings.TrimSpace(statements[0]), "LANGUAGE plpgsql;") {
		t.Errorf("Expected first statement to end after the function, got: %s", statements[0])
	}
}

func TestSplitStatements_TrailingCommentIgnored(t *testing.T) {
	content := "CREATE TABLE t (id INT);\n-- done"
	statements := splitStatements(content)
	if len(statements) != 1 {
		t.Fatalf("Expected 1 statement, got %d: %v", len(statements), statements)
	}
}
