package tool

import (
	"bytes"
	"go/format"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce/memstore"
)

func TestInfosMatchGatewayHandlers(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(memstore.New()))
	infos := Infos()
	if len(infos) != len(g.handlers) {
		t.Fatalf("expected %d tool infos, got %d", len(g.handlers), len(infos))
	}

	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		if seen[info.Name] {
			t.Fatalf("duplicate tool %s", info.Name)
		}
		seen[info.Name] = true
		if _, ok := g.handlers[info.Name]; !ok {
			t.Fatalf("tool %s has no handler", info.Name)
		}
		if info.Desc == "" || info.ParamsOneOf == nil {
			t.Fatalf("tool %s is missing a description or parameters", info.Name)
		}
	}
	if infos[0].Name != ToolDraftOrder || infos[1].Name != ToolCreateOrder {
		t.Fatalf("order tools must come first: %s, %s", infos[0].Name, infos[1].Name)
	}
}

func TestOrderParamsRequiredOnlyForCreate(t *testing.T) {
	t.Parallel()

	for name, p := range orderParams(false) {
		if p.Required {
			t.Fatalf("draft param %s must be optional", name)
		}
	}
	for name, p := range orderParams(true) {
		if !p.Required {
			t.Fatalf("create param %s must be required", name)
		}
	}
}

func TestPackageSourcesAreFormatted(t *testing.T) {
	t.Parallel()

	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob sources: %v", err)
	}
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			t.Fatalf("format %s: %v", name, err)
		}
		if !bytes.Equal(src, formatted) {
			t.Fatalf("%s is not gofmt-formatted", name)
		}
	}
}
