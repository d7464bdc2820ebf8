package widget

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Messages is the user-facing copy of the widget.
type Messages struct {
	Title              string
	CountFormat        string
	Empty              string
	Unavailable        string
	LoadFailed         string
	FormTitle          string
	RatingLabel        string
	AuthorLabel        string
	AuthorPlaceholder  string
	CommentLabel       string
	CommentPlaceholder string
	Submit             string
	Submitting         string
	Validation         string
	Success            string
	Error              string
}

// DefaultMessages returns the Japanese storefront copy.
func DefaultMessages() Messages {
	return Messages{
		Title:              "カスタマーレビュー",
		CountFormat:        "(%d件)",
		Empty:              "まだレビューがありません。最初のレビューを書いてみませんか？",
		Unavailable:        "レビューを表示できません",
		LoadFailed:         "レビューの読み込みに失敗しました",
		FormTitle:          "レビューを書く",
		RatingLabel:        "評価 *",
		AuthorLabel:        "お名前 *",
		AuthorPlaceholder:  "ニックネームでもOK",
		CommentLabel:       "コメント",
		CommentPlaceholder: "商品の感想をお聞かせください",
		Submit:             "レビューを投稿する",
		Submitting:         "送信中...",
		Validation:         "評価とお名前は必須です",
		Success:            "レビューを投稿しました。承認後に表示されます。",
		Error:              "エラーが発生しました。しばらくしてからお試しください。",
	}
}

// Stylesheet is the widget CSS, served inline and at /widget.css.
const Stylesheet = `.bcart-review-widget {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
  max-width: 100%;
  margin: 20px 0;
}
.bcart-review-header {
  display: flex;
  align-items: center;
  justify-content: space-between;
  margin-bottom: 16px;
  padding-bottom: 12px;
  border-bottom: 1px solid #e0e0e0;
}
.bcart-review-title { font-size: 18px; font-weight: bold; margin: 0; }
.bcart-review-summary { display: flex; align-items: center; gap: 8px; color: #666; }
.bcart-review-avg { font-size: 24px; font-weight: bold; color: #f5a623; }
.bcart-review-list { list-style: none; padding: 0; margin: 0; }
.bcart-review-item { padding: 16px 0; border-bottom: 1px solid #f0f0f0; }
.bcart-review-item:last-child { border-bottom: none; }
.bcart-review-meta { display: flex; align-items: center; gap: 12px; margin-bottom: 8px; }
.bcart-review-author { font-weight: 500; }
.bcart-review-date { color: #999; font-size: 12px; }
.bcart-review-stars { color: #f5a623; letter-spacing: 2px; }
.bcart-review-comment { color: #333; line-height: 1.6; margin: 0; }
.bcart-review-empty { text-align: center; padding: 40px; color: #999; }
.bcart-review-form { background: #f9f9f9; padding: 20px; border-radius: 8px; margin-top: 20px; }
.bcart-review-form-title { font-size: 16px; font-weight: bold; margin: 0 0 16px 0; }
.bcart-form-group { margin-bottom: 16px; }
.bcart-form-label { display: block; margin-bottom: 6px; font-weight: 500; font-size: 14px; }
.bcart-form-input {
  width: 100%;
  padding: 10px 12px;
  border: 1px solid #ddd;
  border-radius: 4px;
  font-size: 14px;
  box-sizing: border-box;
}
.bcart-form-input:focus { outline: none; border-color: #f5a623; }
.bcart-form-textarea { min-height: 100px; resize: vertical; }
.bcart-star-rating { display: flex; gap: 4px; flex-direction: row-reverse; justify-content: flex-end; }
.bcart-star-rating input { display: none; }
.bcart-star-rating label { cursor: pointer; font-size: 28px; color: #ddd; transition: color 0.2s; }
.bcart-star-rating label:hover,
.bcart-star-rating label:hover ~ label,
.bcart-star-rating input:checked ~ label { color: #f5a623; }
.bcart-form-submit {
  background: #f5a623;
  color: white;
  border: none;
  padding: 12px 24px;
  border-radius: 4px;
  font-size: 14px;
  font-weight: bold;
  cursor: pointer;
  transition: background 0.2s;
}
.bcart-form-submit:hover { background: #e09000; }
.bcart-form-submit:disabled { background: #ccc; cursor: not-allowed; }
.bcart-form-message { padding: 12px; border-radius: 4px; margin-top: 12px; text-align: center; }
.bcart-form-message.success { background: #e8f5e9; color: #2e7d32; }
.bcart-form-message.error { background: #ffebee; color: #c62828; }
`

const templates = `
{{define "widget"}}<style>{{.Stylesheet}}</style>
<div id="{{.ContainerID}}">{{template "body" .}}</div>{{end}}

{{define "body"}}{{if .Unavailable}}<div class="bcart-review-empty">{{.M.Unavailable}}</div>
{{- else if .LoadFailed}}<div class="bcart-review-empty">{{.M.LoadFailed}}</div>
{{- else}}<div class="bcart-review-widget">
<div class="bcart-review-header">
<h3 class="bcart-review-title">{{.M.Title}}</h3>
{{- if .Reviews}}
<div class="bcart-review-summary">
<span class="bcart-review-avg">{{.Average}}</span>
<span class="bcart-review-stars">{{.AverageStars}}</span>
<span>{{.Count}}</span>
</div>
{{- end}}
</div>
{{if .Reviews}}<ul class="bcart-review-list">
{{- range .Reviews}}
<li class="bcart-review-item">
<div class="bcart-review-meta">
<span class="bcart-review-stars">{{.Stars}}</span>
<span class="bcart-review-author">{{.Author}}</span>
<span class="bcart-review-date">{{.Date}}</span>
</div>
<p class="bcart-review-comment">{{.Comment}}</p>
</li>
{{- end}}
</ul>{{else}}<div class="bcart-review-empty">{{.M.Empty}}</div>{{end}}
{{template "form" .}}
</div>{{end}}{{end}}

{{define "form"}}<div class="bcart-review-form" id="{{.ContainerID}}-form">
<h4 class="bcart-review-form-title">{{.M.FormTitle}}</h4>
<form id="bcart-review-form" method="post" action="{{.Form.Action}}">
{{- range .Form.Hidden}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<div class="bcart-form-group">
<label class="bcart-form-label">{{.M.RatingLabel}}</label>
<div class="bcart-star-rating">
{{- range .Form.Ratings}}
<input type="radio" id="star{{.Value}}" name="rating" value="{{.Value}}"{{if .Checked}} checked{{end}}>
<label for="star{{.Value}}">★</label>
{{- end}}
</div>
</div>
<div class="bcart-form-group">
<label class="bcart-form-label" for="bcart-author">{{.M.AuthorLabel}}</label>
<input type="text" id="bcart-author" name="author" class="bcart-form-input" required maxlength="50" placeholder="{{.M.AuthorPlaceholder}}" value="{{.Form.Author}}">
</div>
<div class="bcart-form-group">
<label class="bcart-form-label" for="bcart-comment">{{.M.CommentLabel}}</label>
<textarea id="bcart-comment" name="comment" class="bcart-form-input bcart-form-textarea" maxlength="1000" placeholder="{{.M.CommentPlaceholder}}">{{.Form.Comment}}</textarea>
</div>
<button type="submit" class="bcart-form-submit" data-label="{{.M.Submit}}" data-busy-label="{{.M.Submitting}}"{{if .Form.Busy}} disabled>{{.M.Submitting}}{{else}}>{{.M.Submit}}{{end}}</button>
<div id="bcart-form-message"{{if .Form.MessageClass}} class="bcart-form-message {{.Form.MessageClass}}"{{end}}>{{.Form.Message}}</div>
</form>
</div>{{end}}
`

var widgetTemplates = template.Must(template.New("bcart-review").Parse(templates))

// FormTarget tells the rendered form where to post and which fields to carry
// back so the embedding context can be resolved again.
type FormTarget struct {
	Action string
	Hidden url.Values
}

// Renderer turns a controller View into HTML.
type Renderer struct {
	messages Messages
	location *time.Location
}

// NewRenderer creates a renderer. Review dates are shown in loc; nil means
// UTC.
func NewRenderer(messages Messages, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{messages: messages, location: loc}
}

// RenderWidget writes the stylesheet and the whole widget container.
func (r *Renderer) RenderWidget(w io.Writer, v View, target FormTarget) error {
	if err := widgetTemplates.ExecuteTemplate(w, "widget", r.data(v, target)); err != nil {
		return fmt.Errorf("render widget: %w", err)
	}
	return nil
}

// RenderForm writes only the review form with its result message.
func (r *Renderer) RenderForm(w io.Writer, v View, target FormTarget) error {
	if err := widgetTemplates.ExecuteTemplate(w, "form", r.data(v, target)); err != nil {
		return fmt.Errorf("render form: %w", err)
	}
	return nil
}

type renderData struct {
	M            Messages
	Stylesheet   template.CSS
	ContainerID  string
	Unavailable  bool
	LoadFailed   bool
	Average      string
	AverageStars string
	Count        string
	Reviews      []reviewItem
	Form         formData
}

type reviewItem struct {
	Stars   string
	Author  string
	Date    string
	Comment string
}

type formData struct {
	Action       string
	Hidden       []hiddenField
	Ratings      []ratingOption
	Author       string
	Comment      string
	Busy         bool
	Message      string
	MessageClass string
}

type hiddenField struct {
	Name  string
	Value string
}

type ratingOption struct {
	Value   int
	Checked bool
}

func (r *Renderer) data(v View, target FormTarget) renderData {
	d := renderData{
		M:           r.messages,
		Stylesheet:  template.CSS(Stylesheet),
		ContainerID: v.Settings.ContainerID,
		Unavailable: v.State == StateUnavailable,
		LoadFailed:  v.State == StateLoadFailed,
	}
	if d.ContainerID == "" {
		d.ContainerID = DefaultContainerID
	}

	if len(v.Reviews) > 0 {
		tenths := averageTenths(v.Reviews)
		d.Average = formatTenths(tenths)
		d.AverageStars = Stars((tenths + 5) / 10)
		d.Count = fmt.Sprintf(r.messages.CountFormat, len(v.Reviews))
		d.Reviews = make([]reviewItem, 0, len(v.Reviews))
		for _, rv := range v.Reviews {
			d.Reviews = append(d.Reviews, reviewItem{
				Stars:   Stars(rv.Rating),
				Author:  rv.AuthorName,
				Date:    FormatDate(rv.CreatedAt, r.location),
				Comment: rv.Comment,
			})
		}
	}

	d.Form = formData{
		Action:  target.Action,
		Hidden:  hiddenFields(target.Hidden),
		Author:  v.Form.Author,
		Comment: v.Form.Comment,
		Busy:    v.State == StateSubmitting,
	}
	for value := MaxStars; value >= 1; value-- {
		d.Form.Ratings = append(d.Form.Ratings, ratingOption{
			Value:   value,
			Checked: v.Form.Rating == strconv.Itoa(value),
		})
	}

	switch v.Notice {
	case NoticeValidation:
		d.Form.Message, d.Form.MessageClass = r.messages.Validation, "error"
	case NoticeSuccess:
		d.Form.Message, d.Form.MessageClass = r.messages.Success, "success"
	case NoticeError:
		d.Form.Message, d.Form.MessageClass = r.messages.Error, "error"
	}
	return d
}

func hiddenFields(values url.Values) []hiddenField {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]hiddenField, 0, len(names))
	for _, name := range names {
		fields = append(fields, hiddenField{Name: name, Value: values.Get(name)})
	}
	return fields
}

// MaxStars is the number of glyphs in a star row.
const MaxStars = 5

// Stars renders n filled stars padded with empty ones to MaxStars.
func Stars(n int) string {
	n = max(0, min(n, MaxStars))
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxStars-n)
}

// averageTenths returns the mean rating in tenths, rounded half up.
func averageTenths(reviews []Review) int {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	n := len(reviews)
	return (20*sum + n) / (2 * n)
}

func formatTenths(tenths int) string {
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

// AverageRating formats the mean rating with one decimal.
func AverageRating(reviews []Review) string {
	return formatTenths(averageTenths(reviews))
}

// FormatDate renders t as Y/M/D without zero padding in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}
