// Package chart рисует график вовлечённости зрителя: по вертикальной
// линии на историю, высота — балл вовлечённости, цвет — задержка между
// публикацией и просмотром. Непросмотренные истории рисуются серым.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/i18n"
	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/engagement"
)

const (
	dpi           = 150
	heightInch    = 10
	stickWidth    = 4 // пункты
	labelFontSize = 8 // кегль подписей, пункты
	maxWidthIn    = 25
	baseWidthIn   = 2
	perStoryIn    = 0.4
)

// Цвет-сигнал для непросмотренных историй. Он намеренно вне палитры
// задержек, чтобы отсутствие просмотра нельзя было спутать с медленным.
var sentinelColor = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}

var landmarkColor = color.RGBA{R: 0xff, A: 0xff}

// Палитра задержек: от зелёного (быстрый просмотр) к красному (медленный).
// Между опорными цветами интерполируем линейно.
var gradient = loadGradient()

func loadGradient() []color.Color {
	pal, err := brewer.GetPalette(brewer.TypeDiverging, "RdYlGn", 11)
	if err != nil {
		// Запасной вариант на случай отсутствия палитры в библиотеке.
		return []color.Color{
			color.RGBA{R: 0x1a, G: 0x96, B: 0x41, A: 0xff},
			color.RGBA{R: 0xff, G: 0xff, B: 0xbf, A: 0xff},
			color.RGBA{R: 0xd7, G: 0x31, B: 0x27, A: 0xff},
		}
	}
	colors := pal.Colors()
	// Палитра идёт от красного к зелёному, нам нужен зелёный в нуле.
	reversed := make([]color.Color, len(colors))
	for i, c := range colors {
		reversed[len(colors)-1-i] = c
	}
	return reversed
}

// Options — заголовок и отметки графика.
type Options struct {
	Profile   models.ViewerProfile
	Landmarks []models.Landmark
}

// Save отрисовывает график в PNG-файл.
func Save(path string, points []models.EngagementPoint, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("создание файла графика: %w", err)
	}
	defer f.Close()
	return Render(f, points, opts)
}

// Render отрисовывает график в PNG и пишет его в w.
func Render(w io.Writer, points []models.EngagementPoint, opts Options) error {
	if len(points) == 0 {
		return fmt.Errorf("нет историй для отрисовки")
	}
	p := build(points, opts)

	widthIn := math.Min(maxWidthIn, baseWidthIn+perStoryIn*float64(len(points)))
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, heightInch*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	png := vgimg.PngCanvas{Canvas: c}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("запись PNG: %w", err)
	}
	return nil
}

func build(points []models.EngagementPoint, opts Options) *plot.Plot {
	p := plot.New()
	p.Title.Text = title(opts.Profile)
	p.X.Label.Text = i18n.T("Telegram Story (creation time)")

	// Метки оси X — времена публикации, под углом как на исходном графике.
	xticks := make(plot.ConstantTicks, len(points))
	for i, pt := range points {
		xticks[i] = plot.Tick{
			Value: float64(i),
			Label: pt.Story.PublishedAt.Format("2006-01-02 15:04"),
		}
	}
	p.X.Tick.Marker = xticks
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	p.Y.Tick.Marker = plot.ConstantTicks{
		{Value: engagement.ScoreNotViewed, Label: i18n.T("not viewed")},
		{Value: engagement.ScoreSwipedPast, Label: i18n.T("swiped past")},
		{Value: engagement.ScorePartiallyWatched, Label: i18n.T("partially watched")},
		{Value: engagement.ScoreWatchedFully, Label: i18n.T("likely watched fully")},
	}
	p.Y.Min, p.Y.Max = -0.1, 1.2

	publishTimes := make([]time.Time, len(points))
	for i, pt := range points {
		publishTimes[i] = pt.Story.PublishedAt
	}
	var marks []landmarkMark
	for _, lm := range opts.Landmarks {
		marks = append(marks, landmarkMark{X: landmarkX(publishTimes, lm.At), Label: lm.Label})
	}

	minX, maxX := 0.0, float64(len(points)-1)
	for _, m := range marks {
		minX = math.Min(minX, math.Floor(m.X-1))
		maxX = math.Max(maxX, math.Ceil(m.X+1))
	}
	p.X.Min, p.X.Max = minX-0.5, maxX+0.5

	p.Add(&sticks{points: points, colors: latencyColors(points)})
	if len(marks) > 0 {
		p.Add(&landmarks{marks: marks})
	}
	return p
}

func title(profile models.ViewerProfile) string {
	var parts []string
	if name := strings.TrimSpace(profile.FullName); name != "" {
		parts = append(parts, name)
	}
	if profile.Username != "" {
		parts = append(parts, "@"+profile.Username)
	}
	parts = append(parts, fmt.Sprintf("%d", profile.ID))
	return strings.Join(parts, " | ")
}

// sticks — вертикальные линии вовлечённости с подписью задержки просмотра.
type sticks struct {
	points []models.EngagementPoint
	colors []color.Color
}

func (s *sticks) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	labelStyle := plt.Title.TextStyle
	labelStyle.Color = color.Black
	labelStyle.Font.Size = vg.Points(labelFontSize)
	labelStyle.Rotation = math.Pi / 6
	labelStyle.XAlign = draw.XLeft
	labelStyle.YAlign = draw.YBottom

	for i, pt := range s.points {
		x := trX(float64(i))
		sty := draw.LineStyle{Color: s.colors[i], Width: vg.Points(stickWidth)}
		c.StrokeLine2(sty, x, trY(0), x, trY(pt.Score))

		if pt.Viewed && pt.Score > 0 {
			y := math.Min(pt.Score+0.05, 1.15)
			c.FillText(labelStyle, vg.Point{X: x, Y: trY(y)}, FormatLatency(pt.Latency))
		}
	}
}

// landmarkMark — отметка оператора, пересчитанная в координату оси историй.
type landmarkMark struct {
	X     float64
	Label string
}

// landmarks — тонкие красные вертикали с подписями над графиком.
type landmarks struct {
	marks []landmarkMark
}

func (l *landmarks) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	labelStyle := plt.Title.TextStyle
	labelStyle.Color = landmarkColor
	labelStyle.Font.Size = vg.Points(labelFontSize)
	labelStyle.Rotation = 0
	labelStyle.XAlign = draw.XLeft
	labelStyle.YAlign = draw.YBottom

	for _, m := range l.marks {
		x := trX(m.X)
		sty := draw.LineStyle{Color: landmarkColor, Width: vg.Points(1)}
		c.StrokeLine2(sty, x, trY(plt.Y.Min), x, trY(plt.Y.Max))
		c.FillText(labelStyle, vg.Point{X: x, Y: trY(1.15)}, m.Label)
	}
}

// landmarkX пересчитывает момент времени в дробную координату между соседними
// по времени публикации историями. До первой истории — −0.5, после последней
// — n−0.5, внутри — линейная интерполяция в границах пары.
func landmarkX(publishTimes []time.Time, at time.Time) float64 {
	n := len(publishTimes)
	if n == 0 {
		return -0.5
	}
	if !at.After(publishTimes[0]) {
		return -0.5
	}
	if !at.Before(publishTimes[n-1]) {
		return float64(n) - 0.5
	}
	for i := 0; i+1 < n; i++ {
		start, end := publishTimes[i], publishTimes[i+1]
		if start.After(at) || end.Before(at) {
			continue
		}
		span := end.Sub(start).Seconds()
		if span == 0 {
			return float64(i) + 0.5
		}
		return float64(i) + at.Sub(start).Seconds()/span
	}
	return float64(n) - 0.5
}

// latencyColors сопоставляет каждой истории цвет по задержке просмотра,
// нормированной на размах задержек просмотренных историй.
func latencyColors(points []models.EngagementPoint) []color.Color {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	for _, pt := range points {
		if !pt.Viewed {
			continue
		}
		lat := pt.Latency.Seconds()
		minLat = math.Min(minLat, lat)
		maxLat = math.Max(maxLat, lat)
	}
	latRange := maxLat - minLat
	if latRange <= 0 || math.IsInf(minLat, 1) {
		latRange = 1
	}

	colors := make([]color.Color, len(points))
	for i, pt := range points {
		if !pt.Viewed {
			colors[i] = sentinelColor
			continue
		}
		colors[i] = latencyColor((pt.Latency.Seconds() - minLat) / latRange)
	}
	return colors
}

// latencyColor возвращает цвет палитры для нормированной задержки из [0, 1].
func latencyColor(norm float64) color.Color {
	if norm <= 0 {
		return gradient[0]
	}
	if norm >= 1 {
		return gradient[len(gradient)-1]
	}
	pos := norm * float64(len(gradient)-1)
	i := int(pos)
	frac := pos - float64(i)
	return lerpColor(gradient[i], gradient[i+1], frac)
}

func lerpColor(a, b color.Color, frac float64) color.Color {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	mix := func(x, y uint32) uint8 {
		return uint8((float64(x)*(1-frac) + float64(y)*frac) / 257)
	}
	return color.RGBA{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: mix(aa, ba)}
}

// FormatLatency — подпись задержки между публикацией и просмотром.
func FormatLatency(d time.Duration) string {
	sec := int(d.Seconds())
	switch {
	case sec < 60:
		return i18n.T("view {seconds}s after publ.", "seconds", sec)
	case sec < 3600:
		return i18n.T("view {mins}m {secs}s after publ.", "mins", sec/60, "secs", sec%60)
	default:
		return i18n.T("view {hours}h {mins}m after publ.", "hours", sec/3600, "mins", sec%3600/60)
	}
}
