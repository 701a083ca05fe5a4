package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/typstgest/internal/doctree"
)

func TestHTMLParser_Document(t *testing.T) {
	input := `<html><head><title>Notes</title><style>p{}</style></head>
<body>
<nav>skip me</nav>
<h1>Intro</h1>
<p>Mass <strong>energy</strong> is $E = mc^2$.</p>
<ul><li>one</li><li><p>two</p></li></ul>
<pre><code class="language-python">print(1)
</code></pre>
<table>
<thead><tr><th>a</th><th>b</th></tr></thead>
<tbody><tr><td>1</td><td>2</td></tr></tbody>
</table>
<hr>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata.Title != "Notes" {
		t.Errorf("expected title %q, got %q", "Notes", doc.Metadata.Title)
	}
	if len(doc.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d: %#v", len(doc.Blocks), doc.Blocks)
	}

	if h, ok := doc.Blocks[0].(*doctree.Heading); !ok || h.Level != 1 || blockText(h) != "Intro" {
		t.Errorf("expected heading, got %#v", doc.Blocks[0])
	}

	para := doc.Blocks[1].(*doctree.Paragraph)
	if got := blockText(para); got != "Mass energy is E = mc^2." {
		t.Errorf("unexpected paragraph %q", got)
	}
	var math int
	for _, in := range para.Inlines {
		if _, ok := in.(*doctree.MathInline); ok {
			math++
		}
	}
	if math != 1 {
		t.Errorf("expected 1 inline math, got %d", math)
	}

	list, ok := doc.Blocks[2].(*doctree.List)
	if !ok || len(list.Items) != 2 || blockText(list.Items[1][0]) != "two" {
		t.Errorf("expected 2-item list, got %#v", doc.Blocks[2])
	}

	code, ok := doc.Blocks[3].(*doctree.CodeBlock)
	if !ok || code.Lang != "python" || code.Code != "print(1)\n" {
		t.Errorf("expected python code block, got %#v", doc.Blocks[3])
	}

	tbl, ok := doc.Blocks[4].(*doctree.Table)
	if !ok || len(tbl.Header) != 2 || len(tbl.Rows) != 1 {
		t.Fatalf("expected table with header and 1 row, got %#v", doc.Blocks[4])
	}
	if got := doctree.PlainText(tbl.Rows[0][1]); got != "2" {
		t.Errorf("expected cell %q, got %q", "2", got)
	}

	if _, ok := doc.Blocks[5].(*doctree.HorizontalRule); !ok {
		t.Errorf("expected horizontal rule, got %#v", doc.Blocks[5])
	}
}

func TestHTMLParser_TitleFromFilename(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>hi</p>"), "index.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata.Title != "index" {
		t.Errorf("expected title %q, got %q", "index", doc.Metadata.Title)
	}
	if len(doc.Blocks) != 1 || blockText(doc.Blocks[0]) != "hi" {
		t.Errorf("unexpected blocks %#v", doc.Blocks)
	}
}

func TestHTMLParser_DisplayMathSplitsParagraph(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(`<p>Before \[x^2\] after</p>`), "m.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(doc.Blocks))
	}
	if _, ok := doc.Blocks[1].(*doctree.MathBlock); !ok {
		t.Errorf("expected math block, got %#v", doc.Blocks[1])
	}
}
