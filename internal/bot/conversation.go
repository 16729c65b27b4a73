package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studynote/internal/model"
	"studynote/internal/service"
)

const dueDateLayout = "2006-01-02 15:04"

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{kind: convNewTask, stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Creating a new task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) startRepeatConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{kind: convRepeat, stage: stageRepeatDays})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		"🔁 Repeating tasks.\n<b>Step 1:</b> which days should I take tasks from? Send dates like <code>2026-09-03, 2026-09-10</code>.",
		cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}
	switch state.kind {
	case convNewTask:
		return b.handleNewTaskStage(ctx, msg, state)
	case convRepeat:
		return b.handleRepeatStage(ctx, msg, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return nil
	}
}

func (b *Bot) handleNewTaskStage(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageTitle:
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or Skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category.", categoryKeyboard())
	case stageCategory:
		category, ok := parseCategory(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick study, work or personal.", categoryKeyboard())
		}
		state.input.Category = category
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "⚡ How urgent is it?", priorityKeyboard())
	case stagePriority:
		priority, ok := parsePriority(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick high, medium or low.", priorityKeyboard())
		}
		state.input.Priority = priority
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID,
			fmt.Sprintf("⏰ When is it due? Use <code>%s</code>, for example <code>%s</code>.",
				dueDateLayout, time.Now().AddDate(0, 0, 1).Format("2006-01-02")+" 09:00"),
			cancelKeyboard())
	case stageDueDate:
		due, err := parseDueDate(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I could not read that date. Use <code>YYYY-MM-DD HH:MM</code> or just <code>YYYY-MM-DD</code>.", cancelKeyboard())
		}
		state.input.DueDate = due
		err = b.finishTaskCreation(ctx, msg.Chat.ID, state.input)
		b.clearConversation(msg.Chat.ID)
		return err
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Start again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.tasks.Create(ctx, input)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return b.sendText(chatID, fmt.Sprintf("🔴 %s. Nothing was saved.", escape(verr.Reason)))
		}
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%s due=%s", task.ID, task.DueDate.Format(dueDateLayout))

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(task.Title)))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", task.DueDate.Format(dueDateLayout)))
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", task.Priority))
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s", task.Category))

	if err := b.sendText(chatID, summary.String()); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, b.getListState(chatID))
}

func (b *Bot) handleRepeatStage(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageRepeatDays:
		days, err := parseDayList(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Send one or more dates like <code>2026-09-03, 2026-09-10</code>.", cancelKeyboard())
		}
		state.days = days
		state.stage = stageRepeatFrequency
		return b.sendWithReplyMarkup(msg.Chat.ID, "📆 How often should they repeat?", frequencyKeyboard())
	case stageRepeatFrequency:
		freq := model.Frequency(strings.ToLower(text))
		if !freq.Valid() {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick daily, weekly or monthly.", frequencyKeyboard())
		}
		state.rule.Frequency = freq
		state.stage = stageRepeatInterval
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔢 Every how many steps? (1 = every occurrence, 2 = every second one)", cancelKeyboard())
	case stageRepeatInterval:
		interval, err := strconv.Atoi(text)
		if err != nil || interval < 1 {
			return b.sendText(msg.Chat.ID, "The interval must be a positive number.")
		}
		state.rule.Interval = interval
		state.stage = stageRepeatEndDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏁 Until which date? Send <code>YYYY-MM-DD</code> or Skip for the default horizon.", skipKeyboard())
	case stageRepeatEndDate:
		if !isSkipInput(text) {
			end, err := time.ParseInLocation("2006-01-02", text, time.Local)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use <code>YYYY-MM-DD</code> or Skip.", skipKeyboard())
			}
			// Inclusive end of day.
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			state.rule.EndDate = &end
		}
		err := b.finishRepeat(ctx, msg.Chat.ID, state)
		b.clearConversation(msg.Chat.ID)
		return err
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Start again with /repeat.")
	}
}

func (b *Bot) finishRepeat(ctx context.Context, chatID int64, state *conversationState) error {
	created, err := b.expander.ExpandForDays(ctx, state.days, state.rule)
	if err != nil {
		var uerr *model.UnsupportedRecurrenceError
		if errors.As(err, &uerr) {
			return b.sendText(chatID, fmt.Sprintf("🔴 %s.", escape(uerr.Error())))
		}
		if len(created) > 0 {
			return b.sendText(chatID, fmt.Sprintf("⚠️ Created %d occurrences, but part of the batch failed: %s", len(created), escape(err.Error())))
		}
		return b.sendText(chatID, fmt.Sprintf("Could not create the series: %s", escape(err.Error())))
	}

	log.Printf("[info] recurrence expanded days=%d created=%d", len(state.days), len(created))
	if len(created) == 0 {
		return b.sendText(chatID, "No tasks on those days needed repeating.")
	}
	return b.sendText(chatID, fmt.Sprintf("🟢 Created %d repeated occurrences.", len(created)))
}

func parseDayList(text string) ([]time.Time, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	if len(parts) == 0 {
		return nil, fmt.Errorf("no dates")
	}
	seen := make(map[time.Time]struct{}, len(parts))
	days := make([]time.Time, 0, len(parts))
	for _, part := range parts {
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(part), time.Local)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func parseDueDate(text string) (time.Time, error) {
	if due, err := time.ParseInLocation(dueDateLayout, text, time.Local); err == nil {
		return due, nil
	}
	due, err := time.ParseInLocation("2006-01-02", text, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	// Bare dates default to end of the working day.
	return due.Add(17 * time.Hour), nil
}

func parseCategory(text string) (model.Category, bool) {
	c := model.Category(strings.ToLower(strings.TrimSpace(text)))
	return c, c.Valid()
}

func parsePriority(text string) (model.Priority, bool) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(text)))
	return p, p.Valid()
}
