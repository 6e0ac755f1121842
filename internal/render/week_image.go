package render

import (
	"bytes"
	"image/color"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 130
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
	maxLabelRunes    = 20
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 16.0
	slotTimeFontSize   = 15.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 90}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{225, 225, 225, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	sessionPendingColor   = color.RGBA{255, 214, 120, 230}
	sessionConfirmedColor = color.RGBA{133, 193, 85, 220}
	sessionCompletedColor = color.RGBA{140, 180, 230, 220}
	sessionDefaultColor   = color.RGBA{200, 200, 200, 200}
	slotTextColor         = color.RGBA{20, 24, 28, 230}
	slotShadowColor       = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

var (
	fontsOnce   sync.Once
	parsedFonts map[fontStyle]*opentype.Font
)

func parseFonts() {
	parsedFonts = make(map[fontStyle]*opentype.Font)
	for style, data := range map[fontStyle][]byte{fontRegular: goregular.TTF, fontBold: gobold.TTF} {
		if f, err := opentype.Parse(data); err == nil {
			parsedFonts[style] = f
		}
	}
}

// loadFont ставит шрифт нужного размера; при ошибке остаётся basicfont
func loadFont(dc *gg.Context, size float64, style fontStyle) {
	fontsOnce.Do(parseFonts)

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// WeekStart возвращает понедельник недели, в которую попадает t, в поясе loc
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	daysSinceMonday := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}
	return day.AddDate(0, 0, -daysSinceMonday)
}

// WeekImage рисует PNG недели с сессиями пользователя viewerID.
// На карточке сессии время, предмет и имя второй стороны.
func WeekImage(weekStart time.Time, sessions []*model.Session, viewerID int64, now time.Time, loc *time.Location) ([]byte, error) {
	start := WeekStart(weekStart, loc)
	week := weekBounds{start: start, end: start.AddDate(0, 0, 6)}
	today := normalizeToDay(now.In(loc))
	highlightToday := isTodayInWeek(today, week)

	byDay := groupSessionsByDay(sessions, loc)
	hours := calculateHourRange(sessions, loc)

	dc := createCanvas()
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	day := week.start
	for i := 0; i < totalDaysInWeek; i++ {
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)
		isToday := highlightToday && isSameDay(day, today)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, isToday)
		drawDayHeader(dc, day, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, s := range byDay[day.Format("2006-01-02")] {
			drawSession(dc, s, viewerID, loc, x, y, dayWidth, hours, cellHeight)
		}

		day = day.AddDate(0, 0, 1)
	}

	if highlightToday {
		drawCurrentTimeLine(dc, now.In(loc), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	return encodeImage(dc)
}

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isTodayInWeek(today time.Time, week weekBounds) bool {
	return !today.Before(week.start) && !today.After(week.end)
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func groupSessionsByDay(sessions []*model.Session, loc *time.Location) map[string][]*model.Session {
	byDay := make(map[string][]*model.Session)
	for _, s := range sessions {
		key := s.StartTime.In(loc).Format("2006-01-02")
		byDay[key] = append(byDay[key], s)
	}
	return byDay
}

// calculateHourRange определяет диапазон часов по сессиям недели
func calculateHourRange(sessions []*model.Session, loc *time.Location) hourRange {
	minHour := 24
	maxHour := 0

	for _, s := range sessions {
		start := s.StartTime.In(loc)
		end := s.EndTime.In(loc)

		startH := start.Hour()
		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		// сессия до полуночи
		if !isSameDay(start, end) {
			endH = 24
		}
		if startH < minHour {
			minHour = startH
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	if minHour == 24 {
		minHour = defaultMinHour
		maxHour = defaultMaxHour
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}

	return hourRange{
		start: startHour,
		end:   endHour,
		total: endHour - startHour,
	}
}

func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

func drawHeader(dc *gg.Context, week weekBounds) {
	title := week.start.Format("2 Jan") + " - " + week.end.Format("2 Jan 2006")

	loadFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for i := 0; i <= hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(formatHourLabel(hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawSession(dc *gg.Context, s *model.Session, viewerID int64, loc *time.Location,
	x, y float64, dayWidth int, hours hourRange, cellHeight float64) {

	start := s.StartTime.In(loc)
	end := s.EndTime.In(loc)

	startHour := float64(start.Hour()) + float64(start.Minute())/60.0
	endHour := float64(end.Hour()) + float64(end.Minute())/60.0
	if !isSameDay(start, end) {
		endHour = 24
	}

	slotY := y + (startHour-float64(hours.start))*cellHeight
	slotHeight := (endHour - startHour) * cellHeight
	if slotHeight < minSlotHeight {
		slotHeight = minSlotHeight
	}

	fill := sessionColor(s.Status)
	slotWidth := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, slotY+2+shadowOffset, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	loadFont(dc, slotTimeFontSize, fontBold)
	dc.SetColor(slotTextColor)
	txtX := x + dayPaddingX + 8
	txtY := slotY + 18
	dc.DrawStringAnchored(start.Format("15:04")+"-"+end.Format("15:04"), txtX, txtY, 0, 0)

	if slotHeight < 25 {
		return
	}

	loadFont(dc, slotTimeFontSize-2, fontRegular)
	dc.DrawStringAnchored(truncate(s.Subject), txtX, txtY+16, 0, 0)

	if slotHeight > 45 {
		if name := counterpartName(s, viewerID); name != "" {
			dc.DrawStringAnchored(truncate(name), txtX, txtY+32, 0, 0)
		}
	}
}

// counterpartName имя второй стороны сессии, если пользователи подгружены
func counterpartName(s *model.Session, viewerID int64) string {
	other := s.Tutor
	if s.TutorID == viewerID {
		other = s.Student
	}
	if other == nil {
		return ""
	}
	return other.FullName()
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxLabelRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLabelRunes-3]) + "..."
}

func sessionColor(status model.SessionStatus) color.RGBA {
	switch status {
	case model.SessionStatusPending:
		return sessionPendingColor
	case model.SessionStatusConfirmed:
		return sessionConfirmedColor
	case model.SessionStatusCompleted:
		return sessionCompletedColor
	default:
		return sessionDefaultColor
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60.0
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), lineY)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Pending", sessionPendingColor},
		{"Confirmed", sessionConfirmedColor},
		{"Completed", sessionCompletedColor},
	}

	const boxW, boxH = 20.0, 14.0
	liX := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 10)
	liY := float64(imageHeight) - 100.0 + 22

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		loadFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatHourLabel(h int) string {
	if h < 10 {
		return "0" + strconv.Itoa(h) + ":00"
	}
	return strconv.Itoa(h) + ":00"
}
