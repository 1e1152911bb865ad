package page

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/woozymasta/geomap/assets"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		TemplateFile: {Data: []byte("<!doctype html><html><head><title>{{.Title}}</title><style>{{.CSS}}</style></head><body><div id=\"map\"></div><script>{{.JS}}</script></body></html>")},
		StyleFile:    {Data: []byte("body {\n  margin: 0;\n}\n")},
		ScriptFile:   {Data: []byte("const answer = 40 + 2;\nconsole.log(answer);\n")},
		FaviconFile:  {Data: []byte("<svg xmlns=\"http://www.w3.org/2000/svg\">  <circle r=\"1\"/>  </svg>")},
	}
}

func TestBuildMinified(t *testing.T) {
	p, err := Build(testAssets(), "Map", true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	index := string(p.Index)
	for _, want := range []string{"<title>Map</title>", "margin:0", "console.log"} {
		if !strings.Contains(index, want) {
			t.Errorf("index missing %q: %s", want, index)
		}
	}
	if strings.Contains(index, "\n  margin") {
		t.Error("css not minified")
	}
	if len(p.Favicon) == 0 || strings.Contains(string(p.Favicon), "  ") {
		t.Errorf("favicon = %q", p.Favicon)
	}
}

func TestBuildVerbatim(t *testing.T) {
	p, err := Build(testAssets(), "Map", false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(p.Index), "body {\n  margin: 0;\n}") {
		t.Errorf("css should be inlined verbatim: %s", p.Index)
	}
}

func TestBuildMissingAsset(t *testing.T) {
	fsys := testAssets()
	delete(fsys, ScriptFile)

	if _, err := Build(fsys, "Map", true); err == nil {
		t.Error("expected error for missing script")
	}
}

func TestBuildEmbeddedAssets(t *testing.T) {
	p, err := Build(assets.FS, "geomap", true)
	if err != nil {
		t.Fatalf("Build(embedded): %v", err)
	}
	if !strings.Contains(string(p.Index), "/api/views") {
		t.Error("embedded script not inlined")
	}
}
