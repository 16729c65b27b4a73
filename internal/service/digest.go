package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"studynote/internal/model"
	"studynote/internal/repository"
	"studynote/internal/store"
)

// lastSentKey marks the last calendar day a digest went out.
const lastSentKey = "digest:last-sent"

// MailSender delivers a rendered digest. Satisfied by email.Sender.
type MailSender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// Digest builds and sends the daily schedule mail with the tasks due today.
type Digest struct {
	store  *store.TaskStore
	kv     *repository.KV
	sender MailSender
	to     string
	now    func() time.Time
}

func NewDigest(s *store.TaskStore, kv *repository.KV, sender MailSender, to string) *Digest {
	return &Digest{store: s, kv: kv, sender: sender, to: to, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (d *Digest) WithClock(now func() time.Time) *Digest {
	d.now = now
	return d
}

// TasksForToday returns today's tasks in list order.
func (d *Digest) TasksForToday(ctx context.Context) ([]model.Task, error) {
	tasks, err := d.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := d.now()
	today := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if model.SameDay(t.DueDate, now) {
			today = append(today, t)
		}
	}
	return SortForList(today), nil
}

// SendNow renders and sends today's digest unconditionally, then records
// the send day.
func (d *Digest) SendNow(ctx context.Context) error {
	if d.to == "" {
		return fmt.Errorf("digest: no recipient configured")
	}
	if d.sender == nil {
		return fmt.Errorf("digest: no mail sender configured")
	}

	tasks, err := d.TasksForToday(ctx)
	if err != nil {
		return err
	}

	now := d.now()
	htmlBody, err := renderDigestHTML(tasks, now)
	if err != nil {
		return fmt.Errorf("digest: render: %w", err)
	}

	subject := fmt.Sprintf("Today's schedule — %s", now.Format("Mon, 02 Jan 2006"))
	if err := d.sender.Send(ctx, d.to, subject, renderDigestText(tasks, now), htmlBody); err != nil {
		return err
	}

	if err := d.kv.Set(ctx, lastSentKey, []byte(now.Format("2006-01-02"))); err != nil {
		return fmt.Errorf("digest: record send day: %w", err)
	}
	return nil
}

// SendDaily sends today's digest at most once per calendar day. Repeated
// calls on the same day are no-ops.
func (d *Digest) SendDaily(ctx context.Context) error {
	last, err := d.kv.Get(ctx, lastSentKey)
	if err != nil {
		return err
	}
	if string(last) == d.now().Format("2006-01-02") {
		return nil
	}
	return d.SendNow(ctx)
}

var digestTemplate = template.Must(template.New("digest").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:20px">
<h1 style="text-align:center;border-bottom:2px solid #4caf50;padding-bottom:10px">Today's Schedule</h1>
<p style="text-align:center;color:#666">{{.Date}}</p>
{{if .Tasks}}{{range .Tasks}}<div style="border:1px solid #ddd;border-radius:8px;padding:15px;margin-bottom:15px">
<h3 style="margin:0 0 10px 0">{{.Title}}</h3>
<p style="margin:5px 0;color:#666"><strong>Due:</strong> {{.Due}}</p>
{{if .Description}}<p style="margin:5px 0">{{.Description}}</p>{{end}}
<p style="margin:5px 0;font-size:12px">priority: {{.Priority}} &middot; status: {{.Status}} &middot; {{.Category}}</p>
</div>{{end}}{{else}}<p style="text-align:center;font-size:18px">Nothing due today. Enjoy the free time!</p>{{end}}
<p style="text-align:center;color:#999;font-size:12px">Sent by StudyNote</p>
</div>`))

type digestItem struct {
	Title       string
	Description string
	Due         string
	Priority    model.Priority
	Status      model.Status
	Category    model.Category
}

func renderDigestHTML(tasks []model.Task, now time.Time) (string, error) {
	items := make([]digestItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, digestItem{
			Title:       t.Title,
			Description: t.Description,
			Due:         t.DueDate.Format("15:04"),
			Priority:    t.Priority,
			Status:      t.Status,
			Category:    t.Category,
		})
	}

	var buf bytes.Buffer
	err := digestTemplate.Execute(&buf, struct {
		Date  string
		Tasks []digestItem
	}{
		Date:  now.Format("Monday, 02 January 2006"),
		Tasks: items,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderDigestText(tasks []model.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's schedule — %s\n\n", now.Format("Monday, 02 January 2006"))
	if len(tasks) == 0 {
		b.WriteString("Nothing due today.\n")
		return b.String()
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s %s (%s, %s, %s)\n", t.DueDate.Format("15:04"), t.Title, t.Priority, t.Status, t.Category)
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s\n", t.Description)
		}
	}
	return b.String()
}
