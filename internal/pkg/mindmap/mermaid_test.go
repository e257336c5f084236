package mindmap

import (
	"strings"
	"testing"
)

func TestToFlowchart(t *testing.T) {
	nodes := Parse("* Root\n  - Child A\n    + Grandchild\n  - Child B")
	got := ToFlowchart(nodes)

	want := "graph TD;\n" +
		"  node0[\"Root\"];\n" +
		"  node1[\"Child A\"];\n" +
		"  node0 --> node1;\n" +
		"  node2[\"Grandchild\"];\n" +
		"  node1 --> node2;\n" +
		"  node3[\"Child B\"];\n" +
		"  node0 --> node3;\n"
	if got != want {
		t.Errorf("unexpected flowchart:\n%s\nwant:\n%s", got, want)
	}
}

func TestToFlowchartEmptyOutline(t *testing.T) {
	got := ToFlowchart(Parse(""))
	if got != "graph TD;\n" {
		t.Errorf("expected bare header, got %q", got)
	}
}

func TestTranslationIsDeterministic(t *testing.T) {
	outline := "* Root\n  - A\n  - B\n    + C"
	first := ToFlowchart(Parse(outline))
	for i := 0; i < 10; i++ {
		if got := ToFlowchart(Parse(outline)); got != first {
			t.Fatalf("translation not deterministic on run %d", i)
		}
	}
	firstNested := ToMindmap(Parse(outline))
	for i := 0; i < 10; i++ {
		if got := ToMindmap(Parse(outline)); got != firstNested {
			t.Fatalf("nested translation not deterministic on run %d", i)
		}
	}
}

func TestToMindmap(t *testing.T) {
	nodes := Parse("* Root\n  - Child A\n    + Grandchild\n  - Child B")
	got := ToMindmap(nodes)

	want := "mindmap\n" +
		"  root((Root))\n" +
		"    node1[Child A]\n" +
		"      node2[Grandchild]\n" +
		"    node3[Child B]\n"
	if got != want {
		t.Errorf("unexpected mindmap:\n%s\nwant:\n%s", got, want)
	}
}

func TestToMindmapSynthesizesRootForIndentedOutline(t *testing.T) {
	// first line already indented: no depth-0 node exists
	nodes := Parse("  - Child A\n  - Child B")
	got := ToMindmap(nodes)

	if !strings.HasPrefix(got, "mindmap\n  root((アイデア))\n") {
		t.Fatalf("expected synthetic root, got:\n%s", got)
	}
	if !strings.Contains(got, "    node0[Child A]\n") {
		t.Errorf("expected Child A nested one level deeper, got:\n%s", got)
	}
}

func TestToMindmapMultipleRootsNestUnderSyntheticRoot(t *testing.T) {
	nodes := Parse("* First\n* Second")
	got := ToMindmap(nodes)

	if !strings.Contains(got, "root((アイデア))") {
		t.Fatalf("expected synthetic root for multi-root outline, got:\n%s", got)
	}
	if !strings.Contains(got, "    node0[First]\n") || !strings.Contains(got, "    node1[Second]\n") {
		t.Errorf("expected both roots nested, got:\n%s", got)
	}
}

func TestToMindmapEmptyOutline(t *testing.T) {
	got := ToMindmap(nil)
	want := "mindmap\n  root((アイデア))\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
