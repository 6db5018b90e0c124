package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
	"github.com/vanderheijden86/supplyviz/pkg/layout"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
)

// GraphSnapshotOptions controls graph snapshot export behaviour.
type GraphSnapshotOptions struct {
	Path     string            // Output path; format inferred from extension when Format empty
	Format   string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title    string            // Optional title rendered in the header block
	Preset   string            // "compact" (default) or "roomy"
	Elements elements.Elements // Graph to render
	Session  *interact.Session // Optional; hidden elements are skipped and highlights outlined
	Config   config.Config
	DataHash string // Provenance hash; computed from Elements when empty
}

// SaveGraphSnapshot renders a static picture of the supply graph (SVG or PNG)
// with a small header block.
func SaveGraphSnapshot(opts GraphSnapshotOptions) error {
	if len(opts.Elements.Nodes) == 0 {
		return fmt.Errorf("no elements to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("%w %q (want svg or png)", ErrUnsupportedFormat, format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	scene, err := buildScene(opts)
	if err != nil {
		return err
	}

	defer metrics.Timer(metrics.RenderImage)()
	switch format {
	case "png":
		return renderPNG(opts.Path, scene)
	default:
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		if err := renderSVGToWriter(file, scene); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
}

// RenderSVG writes an SVG snapshot to w.
func RenderSVG(w io.Writer, opts GraphSnapshotOptions) error {
	if len(opts.Elements.Nodes) == 0 {
		return fmt.Errorf("no elements to export")
	}
	scene, err := buildScene(opts)
	if err != nil {
		return err
	}
	defer metrics.Timer(metrics.RenderImage)()
	return renderSVGToWriter(w, scene)
}

// --- scene -----------------------------------------------------------------

const (
	snapshotPadding = 36.0
	snapshotHeader  = 120.0
	scaleCompact    = 0.2
	scaleRoomy      = 0.35
)

type sceneNode struct {
	ID          string
	Label       string
	Class       elements.Class
	X, Y, W, H  float64 // top-left corner and size in canvas pixels
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
}

type sceneEdge struct {
	X1, Y1, X2, Y2 float64
	Color          color.RGBA
	Width          float64
}

type scene struct {
	Nodes   []sceneNode
	Edges   []sceneEdge
	Width   int
	Height  int
	Scale   float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	DataHash  string
	NodeCount int
	EdgeCount int
	Hidden    int
	Panel     string
}

func buildScene(opts GraphSnapshotOptions) (scene, error) {
	cfg := opts.Config
	if cfg.Style.FontSize == 0 {
		cfg = config.DefaultConfig()
	}
	placed, err := layout.Compute(opts.Elements, layout.FromConfig(cfg))
	if err != nil {
		return scene{}, fmt.Errorf("layout: %w", err)
	}

	preset := opts.Preset
	if preset == "" {
		preset = cfg.Export.Preset
	}
	scale := scaleCompact
	if strings.EqualFold(preset, "roomy") {
		scale = scaleRoomy
	}

	hidden := func(string) bool { return false }
	highlighted := func(string) bool { return false }
	if opts.Session != nil {
		hidden = opts.Session.Hidden
		highlighted = opts.Session.Highlighted
	}

	ox := snapshotPadding - placed.Bounds.X1*scale
	oy := snapshotPadding + snapshotHeader - placed.Bounds.Y1*scale
	style := cfg.Style
	highlight := parseColor(style.HighlightColor, color.RGBA{0x90, 0xee, 0x90, 0xff})

	sc := scene{
		Width:  int(math.Ceil(placed.Bounds.Width()*scale + 2*snapshotPadding)),
		Height: int(math.Ceil(placed.Bounds.Height()*scale + 2*snapshotPadding + snapshotHeader)),
		Scale:  scale,
	}
	if sc.Width < 640 {
		sc.Width = 640
	}
	if sc.Height < 480 {
		sc.Height = 480
	}

	visible := make(map[string]bool, len(placed.Nodes))
	for _, n := range placed.Nodes {
		if hidden(n.Data.ID) {
			sc.Summary.Hidden++
			continue
		}
		visible[n.Data.ID] = true
		box := n.Box()
		sn := sceneNode{
			ID:          n.Data.ID,
			Label:       n.Data.Label,
			Class:       n.Data.Class,
			X:           ox + box.X1*scale,
			Y:           oy + box.Y1*scale,
			W:           n.Width * scale,
			H:           n.Height * scale,
			Fill:        classFill(n.Data, style),
			Stroke:      parseColor(style.BorderColor, colorStroke),
			StrokeWidth: 1.2,
		}
		if highlighted(n.Data.ID) {
			sn.Stroke = highlight
			sn.StrokeWidth = 4
		}
		sc.Nodes = append(sc.Nodes, sn)
	}

	edgeWidth := math.Max(1, style.EdgeWidth*scale)
	for _, e := range placed.Edges {
		if hidden(e.Data.ID) || !visible[e.Data.Source] || !visible[e.Data.Target] {
			if hidden(e.Data.ID) {
				sc.Summary.Hidden++
			}
			continue
		}
		se := sceneEdge{
			X1:    ox + e.From.X*scale,
			Y1:    oy + e.From.Y*scale,
			X2:    ox + e.To.X*scale,
			Y2:    oy + e.To.Y*scale,
			Color: colorEdge,
			Width: edgeWidth,
		}
		if highlighted(e.Data.ID) {
			se.Color = highlight
		}
		sc.Edges = append(sc.Edges, se)
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = cfg.Export.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Supply Tree"
	}
	hash := opts.DataHash
	if hash == "" {
		hash = opts.Elements.DataHash()
	}
	sc.Summary.Title = title
	sc.Summary.DataHash = hash
	sc.Summary.NodeCount = len(sc.Nodes)
	sc.Summary.EdgeCount = len(sc.Edges)
	if opts.Session != nil {
		if p, ok := opts.Session.Panel(); ok {
			sc.Summary.Panel = p.Title
		}
	}
	return sc, nil
}

// --- colours ---------------------------------------------------------------

var (
	colorAtom     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorMaker    = color.RGBA{0xf1, 0xfa, 0x8c, 0xff}
	colorSupplier = color.RGBA{0x8b, 0xe9, 0xfd, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// Only the names the default style and common configs use; anything else
// should be given as #rrggbb.
var namedColors = map[string]color.RGBA{
	"black":      {0x00, 0x00, 0x00, 0xff},
	"white":      {0xff, 0xff, 0xff, 0xff},
	"red":        {0xff, 0x00, 0x00, 0xff},
	"green":      {0x00, 0x80, 0x00, 0xff},
	"lightgreen": {0x90, 0xee, 0x90, 0xff},
	"blue":       {0x00, 0x00, 0xff, 0xff},
	"yellow":     {0xff, 0xff, 0x00, 0xff},
	"orange":     {0xff, 0xa5, 0x00, 0xff},
	"gray":       {0x80, 0x80, 0x80, 0xff},
	"grey":       {0x80, 0x80, 0x80, 0xff},
}

// parseColor understands CSS colour names from namedColors, #rgb and
// #rrggbb. Anything else yields fallback.
func parseColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	if !strings.HasPrefix(s, "#") {
		return fallback
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}

func classFill(n elements.NodeData, style config.StyleConfig) color.RGBA {
	switch {
	case n.Missing:
		return parseColor(style.MissingColor, namedColors["red"])
	case n.Root:
		return parseColor(style.RootColor, namedColors["green"])
	case n.Class == elements.ClassMaker:
		return colorMaker
	case n.Class == elements.ClassSupplier:
		return colorSupplier
	default:
		return colorAtom
	}
}

// --- rendering -------------------------------------------------------------

func renderPNG(path string, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(sc.Width)-32, snapshotHeader-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, sc)
	drawLegend(dc, sc)

	for _, e := range sc.Edges {
		dc.SetColor(e.Color)
		dc.SetLineWidth(e.Width)
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.Stroke()
		drawArrow(dc, e)
	}
	for _, n := range sc.Nodes {
		drawNode(dc, n)
	}
	return dc.SavePNG(path)
}

func renderSVGToWriter(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, sc.Width-32, int(snapshotHeader-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, sc)
	drawLegendSVG(canvas, sc)

	for _, e := range sc.Edges {
		canvas.Line(int(e.X1), int(e.Y1), int(e.X2), int(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:%.1f", css(e.Color), e.Width))
		xs, ys := arrowHead(e)
		canvas.Polygon(
			[]int{int(xs[0]), int(xs[1]), int(xs[2])},
			[]int{int(ys[0]), int(ys[1]), int(ys[2])},
			fmt.Sprintf("fill:%s", css(e.Color)),
		)
	}

	for _, n := range sc.Nodes {
		canvas.Group(fmt.Sprintf(`id="%s"`, svgAttr(n.ID)))
		canvas.Rect(int(n.X), int(n.Y), int(n.W), int(n.H),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(n.Fill), css(n.Stroke), n.StrokeWidth))
		canvas.Text(int(n.X+n.W/2), int(n.Y+n.H/2), truncate(n.Label, labelWidth(n)),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle", css(colorText)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

var svgAttrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func svgAttr(s string) string {
	return svgAttrEscaper.Replace(s)
}

// labelWidth is the number of 7px glyphs that fit in a node.
func labelWidth(n sceneNode) int {
	return int(n.W/7) - 1
}

// arrowHead returns a triangle pointing at the edge end.
func arrowHead(e sceneEdge) ([3]float64, [3]float64) {
	dx, dy := e.X2-e.X1, e.Y2-e.Y1
	l := math.Hypot(dx, dy)
	if l == 0 {
		return [3]float64{e.X2, e.X2, e.X2}, [3]float64{e.Y2, e.Y2, e.Y2}
	}
	ux, uy := dx/l, dy/l
	size := math.Max(8, e.Width*2)
	bx, by := e.X2-ux*size, e.Y2-uy*size
	px, py := -uy*size/2, ux*size/2
	return [3]float64{e.X2, bx + px, bx - px}, [3]float64{e.Y2, by + py, by - py}
}

func drawArrow(dc *gg.Context, e sceneEdge) {
	xs, ys := arrowHead(e)
	dc.SetColor(e.Color)
	dc.NewSubPath()
	dc.MoveTo(xs[0], ys[0])
	dc.LineTo(xs[1], ys[1])
	dc.LineTo(xs[2], ys[2])
	dc.ClosePath()
	dc.Fill()
}

func drawNode(dc *gg.Context, n sceneNode) {
	dc.SetColor(n.Fill)
	dc.DrawRectangle(n.X, n.Y, n.W, n.H)
	dc.Fill()
	dc.SetColor(n.Stroke)
	dc.SetLineWidth(n.StrokeWidth)
	dc.DrawRectangle(n.X, n.Y, n.W, n.H)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(truncate(n.Label, labelWidth(n)), n.X+n.W/2, n.Y+n.H/2, 0.5, 0.5)
}

func summaryLines(sc scene) []string {
	lines := []string{
		fmt.Sprintf("data_hash: %s", sc.Summary.DataHash),
		fmt.Sprintf("nodes: %d  edges: %d  hidden: %d", sc.Summary.NodeCount, sc.Summary.EdgeCount, sc.Summary.Hidden),
	}
	if sc.Summary.Panel != "" {
		lines = append(lines, fmt.Sprintf("selected: %s", sc.Summary.Panel))
	}
	return lines
}

func drawSummaryBlock(dc *gg.Context, sc scene) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(sc.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(sc) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

type legendEntry struct {
	c     color.RGBA
	label string
}

var legend = []legendEntry{
	{colorAtom, "Product"},
	{colorMaker, "Maker"},
	{colorSupplier, "Supplier"},
	{namedColors["red"], "Missing"},
}

func drawLegend(dc *gg.Context, sc scene) {
	boxW := 160.0
	boxH := 96.0
	x := float64(sc.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, le := range legend {
		ry := y + 36 + float64(i)*16
		dc.SetColor(le.c)
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(le.label, x+32, ry, 0, 0.5)
	}
}

func drawSummaryBlockSVG(canvas *svg.SVG, sc scene) {
	canvas.Text(32, 44, sc.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(sc) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, sc scene) {
	boxW := 160
	boxH := 96
	x := sc.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, le := range legend {
		ry := y + 36 + i*16
		canvas.Roundrect(x+12, ry-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(le.c), css(colorStroke)))
		canvas.Text(x+32, ry, le.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
