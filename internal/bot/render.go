package bot

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studynote/internal/model"
	"studynote/internal/service"
)

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, state *listState) error {
	all, err := b.tasks.List(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	filtered := service.SortForList(service.ApplyFilter(all, state.filter))
	totalPages := service.TotalPages(len(filtered), service.ListPageSize)
	if state.page > totalPages && totalPages > 0 {
		state.page = totalPages
	}
	page := service.Paginate(filtered, state.page, service.ListPageSize)

	if len(filtered) == 0 {
		return b.sendText(chatID, "No tasks match. Add one with /newtask.")
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Tasks</b>")
	if desc := describeFilter(state.filter); desc != "" {
		builder.WriteString(" · " + desc)
	}
	fmt.Fprintf(&builder, "\n%d matching · page %d/%d\n\n", len(filtered), state.page, totalPages)

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range page {
		builder.WriteString(formatTask(task, now))
		buttons = append(buttons, taskButtons(task))
	}
	if row := pagerRow(state.page, totalPages); row != nil {
		buttons = append(buttons, row)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(msg)
	return err
}

func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	short := shortTitle(task.Title, 16)
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✅ "+short, cbStatusPrefix+task.ID+":"+string(model.StatusDone)),
	}
	if task.Status == model.StatusTodo {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️ Start", cbStatusPrefix+task.ID+":"+string(model.StatusInProgress)))
	}
	if task.Status == model.StatusOverdue {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("↩️ Reopen", cbStatusPrefix+task.ID+":"+string(model.StatusTodo)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID))
	return row
}

func pagerRow(page, totalPages int) []tgbotapi.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}
	var row []tgbotapi.InlineKeyboardButton
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", cbPagePrefix+strconv.Itoa(page-1)))
	}
	if page < totalPages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", cbPagePrefix+strconv.Itoa(page+1)))
	}
	return row
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", statusIcon(task.Status), escape(task.Title))
	if task.Description != "" {
		fmt.Fprintf(&b, "   📝 %s\n", escape(task.Description))
	}
	fmt.Fprintf(&b, "   ⏰ %s · %s\n", task.DueDate.Format("2006-01-02 15:04"), countdown(task, now))
	fmt.Fprintf(&b, "   🏷 %s · %s priority", task.Category, task.Priority)
	if task.IsSeed() {
		b.WriteString(" · 🔁 repeats")
	}
	b.WriteString("\n\n")
	return b.String()
}

func countdown(task model.Task, now time.Time) string {
	if task.Status == model.StatusDone {
		return "done"
	}
	remaining := task.DueDate.Sub(now)
	if remaining < 0 {
		return "<b>overdue</b>"
	}
	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	default:
		return fmt.Sprintf("%dm left", minutes)
	}
}

func statusIcon(status model.Status) string {
	switch status {
	case model.StatusDone:
		return "✅"
	case model.StatusInProgress:
		return "⏳"
	case model.StatusOverdue:
		return "⚠️"
	default:
		return "🟢"
	}
}

func renderCalendar(ref time.Time, tasks []model.Task) string {
	grouped := service.GroupByDay(tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>%s</b>\n\n", ref.Format("January 2006"))

	busy := 0
	for _, day := range service.MonthDays(ref) {
		dayTasks, ok := grouped[service.DayKey(day)]
		if !ok {
			continue
		}
		busy++
		summary := service.SummarizeDay(day, dayTasks)
		fmt.Fprintf(&b, "<b>%s</b>\n", day.Format("Mon 02"))
		for _, task := range summary.Visible {
			fmt.Fprintf(&b, "  %s %s · %s · %s\n", statusIcon(task.Status), escape(task.Title), task.DueDate.Format("15:04"), task.Priority)
		}
		if summary.More > 0 {
			fmt.Fprintf(&b, "  … +%d more\n", summary.More)
		}
	}

	if busy == 0 {
		b.WriteString("Nothing scheduled this month.")
	}
	return strings.TrimSpace(b.String())
}

func renderAnalytics(dist service.Distribution) string {
	var b strings.Builder
	b.WriteString("📊 <b>Analytics</b>\n")
	fmt.Fprintf(&b, "%d tasks in range\n\n", dist.Total)

	b.WriteString("<b>Status</b>\n")
	for _, s := range []model.Status{model.StatusTodo, model.StatusInProgress, model.StatusDone, model.StatusOverdue} {
		fmt.Fprintf(&b, "  %-12s %s %d\n", s, bar(dist.Status[s], dist.Total), dist.Status[s])
	}
	b.WriteString("<b>Priority</b>\n")
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		fmt.Fprintf(&b, "  %-12s %s %d\n", p, bar(dist.Priority[p], dist.Total), dist.Priority[p])
	}
	b.WriteString("<b>Category</b>\n")
	for _, c := range []model.Category{model.CategoryStudy, model.CategoryWork, model.CategoryPersonal} {
		fmt.Fprintf(&b, "  %-12s %s %d\n", c, bar(dist.Category[c], dist.Total), dist.Category[c])
	}
	return strings.TrimSpace(b.String())
}

func bar(count, total int) string {
	if total == 0 || count == 0 {
		return ""
	}
	width := count * 10 / total
	if width == 0 {
		width = 1
	}
	return strings.Repeat("▰", width)
}

// parseListArgs reads /tasks arguments: status:<s> and category:<c> tokens,
// page:<n>, everything else joins into the free-text filter.
func parseListArgs(args string) *listState {
	state := &listState{page: 1}
	var words []string
	for _, token := range strings.Fields(args) {
		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "status:"):
			state.filter.Status = model.Status(strings.TrimPrefix(lower, "status:"))
		case strings.HasPrefix(lower, "category:"):
			state.filter.Category = model.Category(strings.TrimPrefix(lower, "category:"))
		case strings.HasPrefix(lower, "cat:"):
			state.filter.Category = model.Category(strings.TrimPrefix(lower, "cat:"))
		case strings.HasPrefix(lower, "page:"):
			if n, err := strconv.Atoi(strings.TrimPrefix(lower, "page:")); err == nil && n > 0 {
				state.page = n
			}
		default:
			words = append(words, token)
		}
	}
	state.filter.Text = strings.Join(words, " ")
	return state
}

func describeFilter(f service.Filter) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status "+string(f.Status))
	}
	if f.Category != "" {
		parts = append(parts, "category "+string(f.Category))
	}
	if strings.TrimSpace(f.Text) != "" {
		parts = append(parts, fmt.Sprintf("“%s”", escape(f.Text)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelCalendar),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAnalytics),
			tgbotapi.NewKeyboardButton(menuLabelDigest),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("study"),
			tgbotapi.NewKeyboardButton("work"),
			tgbotapi.NewKeyboardButton("personal"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("high"),
			tgbotapi.NewKeyboardButton("medium"),
			tgbotapi.NewKeyboardButton("low"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func frequencyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("daily"),
			tgbotapi.NewKeyboardButton("weekly"),
			tgbotapi.NewKeyboardButton("monthly"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

func escape(s string) string {
	return html.EscapeString(s)
}
