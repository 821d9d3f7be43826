package tools

import (
	"reflect"
	"testing"
)

func TestDefaultRegistryContents(t *testing.T) {
	r := DefaultRegistry(
		&WebToolsConfig{SearchProvider: "tavily", SearchAPIKey: "key"},
		&TerminalToolConfig{WorkDir: "/tmp"},
	)

	want := []string{"terminal", "web_fetch", "web_search"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	ws, ok := r.Get("web_search")
	if !ok {
		t.Fatal("web_search not registered")
	}
	if ws.(*WebSearchTool).Provider != "tavily" {
		t.Fatalf("search provider not propagated: %+v", ws)
	}

	term, _ := r.Get("terminal")
	if term.(*TerminalTool).WorkDir != "/tmp" {
		t.Fatal("terminal workdir not propagated")
	}
}

func TestRegistryFiltered(t *testing.T) {
	r := DefaultRegistry(nil, nil)
	f := r.Filtered([]string{"web_search", "no_such_tool"})

	if _, ok := f.Get("web_search"); !ok {
		t.Fatal("filtered registry missing web_search")
	}
	if _, ok := f.Get("terminal"); ok {
		t.Fatal("filtered registry should not contain terminal")
	}
	if len(f.All()) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(f.All()))
	}
}
