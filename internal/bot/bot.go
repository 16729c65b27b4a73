package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studynote/internal/assistant"
	"studynote/internal/model"
	"studynote/internal/repository"
	"studynote/internal/service"
	"studynote/internal/store"
)

const ownerChatKey = "settings:owner-chat"

const (
	cbStatusPrefix  = "st:"
	cbDeletePrefix  = "rm:"
	cbPagePrefix    = "pg:"
	cbConfirmPrefix = "ok:"
	cbDeclinePrefix = "no:"
)

const (
	menuLabelTasks     = "📋 Tasks"
	menuLabelNewTask   = "➕ New task"
	menuLabelCalendar  = "📅 Calendar"
	menuLabelAnalytics = "📊 Analytics"
	menuLabelDigest    = "✉️ Digest"
	menuLabelHelp      = "ℹ️ Help"
	btnSkip            = "⏭ Skip"
	btnCancelDialog    = "⏪ Cancel"
)

type conversationKind int

const (
	convNone conversationKind = iota
	convNewTask
	convRepeat
)

type conversationStage int

const (
	stageTitle conversationStage = iota
	stageDescription
	stageCategory
	stagePriority
	stageDueDate
	stageRepeatDays
	stageRepeatFrequency
	stageRepeatInterval
	stageRepeatEndDate
)

type conversationState struct {
	kind  conversationKind
	stage conversationStage
	input service.TaskInput
	days  []time.Time
	rule  model.Recurrence
}

type listState struct {
	filter service.Filter
	page   int
}

// Bot is the planner's presentation layer. It also serves as the
// reconciler's notification sink and confirmation prompter, pushing both
// to the owner chat.
type Bot struct {
	api        *tgbotapi.BotAPI
	tasks      *service.TaskService
	expander   *service.Expander
	digest     *service.Digest
	chat       *assistant.Client
	kv         *repository.KV
	reconciler *service.Reconciler

	mu            sync.Mutex
	conversations map[int64]*conversationState
	lists         map[int64]*listState
	ownerChat     int64
}

func New(token string, tasks *service.TaskService, expander *service.Expander, digest *service.Digest, chat *assistant.Client, kv *repository.KV) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := &Bot{
		api:           api,
		tasks:         tasks,
		expander:      expander,
		digest:        digest,
		chat:          chat,
		kv:            kv,
		conversations: make(map[int64]*conversationState),
		lists:         make(map[int64]*listState),
	}
	b.loadOwnerChat()
	return b, nil
}

// BindReconciler wires the reconciler whose prompts this bot resolves.
func (b *Bot) BindReconciler(r *service.Reconciler) {
	b.reconciler = r
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Dialog cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if b.hasConversation(msg.Chat.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.handleFreeText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "repeat":
		return b.startRepeatConversation(msg)
	case "calendar":
		return b.handleCalendar(ctx, msg)
	case "analytics":
		return b.handleAnalytics(ctx, msg)
	case "digest":
		return b.handleDigest(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Dialog cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	b.rememberOwnerChat(ctx, msg.Chat.ID)

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I am StudyNote, your personal task planner.</b>\n\nCommands:\n"+
			"• /newtask — add a task step by step\n"+
			"• /tasks — list tasks, filter and page through them\n"+
			"• /calendar — this month's tasks by day\n"+
			"• /repeat — repeat a day's tasks on a schedule\n"+
			"• /analytics — status, priority and category charts\n"+
			"• /digest — email today's schedule now\n"+
			"• /help — more details\n"+
			"• /cancel — abort the current dialog",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Help</b>\n" +
		"• /tasks [filters] — e.g. <code>/tasks status:todo category:study exam</code>; free words search title and description, <code>page:2</code> pages\n" +
		"• /newtask — guided task creation\n" +
		"• /repeat — pick days, then a daily/weekly/monthly rule; the rule is applied to every task due on those days\n" +
		"• /calendar [YYYY-MM] — month overview, two tasks per day plus a remainder\n" +
		"• /analytics [YYYY-MM-DD YYYY-MM-DD] — distributions, optionally bounded by due date\n" +
		"• /digest — send today's schedule to the configured email\n" +
		"I also answer questions in plain text, and one hour before a deadline I ask whether the task is finished."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	state := parseListArgs(msg.CommandArguments())
	b.setListState(msg.Chat.ID, state)
	return b.sendTaskList(ctx, msg.Chat.ID, state)
}

func (b *Bot) handleCalendar(ctx context.Context, msg *tgbotapi.Message) error {
	ref := time.Now()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := time.ParseInLocation("2006-01", arg, time.Local)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /calendar YYYY-MM, for example <code>/calendar 2026-09</code>.")
		}
		ref = parsed
	}

	tasks, err := b.tasks.List(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	return b.sendText(msg.Chat.ID, renderCalendar(ref, tasks))
}

func (b *Bot) handleAnalytics(ctx context.Context, msg *tgbotapi.Message) error {
	var from, to *time.Time
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) >= 1 {
		parsed, err := time.ParseInLocation("2006-01-02", fields[0], time.Local)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /analytics [from] [to] with YYYY-MM-DD dates.")
		}
		from = &parsed
	}
	if len(fields) >= 2 {
		parsed, err := time.ParseInLocation("2006-01-02", fields[1], time.Local)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /analytics [from] [to] with YYYY-MM-DD dates.")
		}
		end := parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}

	tasks, err := b.tasks.List(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	return b.sendText(msg.Chat.ID, renderAnalytics(service.Distribute(tasks, from, to)))
}

func (b *Bot) handleDigest(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.digest.SendNow(ctx); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not send the digest: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "✉️ Today's schedule is on its way.")
}

func (b *Bot) handleFreeText(ctx context.Context, msg *tgbotapi.Message) error {
	if route, ok := assistant.DetectRoute(msg.Text); ok {
		switch route {
		case assistant.RouteTasks:
			state := &listState{page: 1}
			b.setListState(msg.Chat.ID, state)
			return b.sendTaskList(ctx, msg.Chat.ID, state)
		case assistant.RouteCalendar:
			return b.handleCalendar(ctx, &tgbotapi.Message{Chat: msg.Chat, From: msg.From})
		case assistant.RouteAnalytics:
			return b.handleAnalytics(ctx, &tgbotapi.Message{Chat: msg.Chat, From: msg.From})
		case assistant.RouteDigest:
			return b.handleDigest(ctx, msg)
		}
	}

	reply, err := b.chat.Reply(ctx, msg.Text)
	if err != nil {
		log.Printf("assistant reply: %v", err)
		return b.sendText(msg.Chat.ID, "The assistant is unavailable right now. Try /help.")
	}
	return b.sendText(msg.Chat.ID, escape(reply))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelTasks):
		state := &listState{page: 1}
		b.setListState(msg.Chat.ID, state)
		return true, b.sendTaskList(ctx, msg.Chat.ID, state)
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg)
	case strings.ToLower(menuLabelCalendar):
		return true, b.handleCalendar(ctx, &tgbotapi.Message{Chat: msg.Chat, From: msg.From})
	case strings.ToLower(menuLabelAnalytics):
		return true, b.handleAnalytics(ctx, &tgbotapi.Message{Chat: msg.Chat, From: msg.From})
	case strings.ToLower(menuLabelDigest):
		return true, b.handleDigest(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbStatusPrefix):
		parts := strings.SplitN(strings.TrimPrefix(data, cbStatusPrefix), ":", 2)
		if len(parts) != 2 {
			return nil
		}
		return b.changeStatus(ctx, chatID, parts[0], model.Status(parts[1]))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.deleteTask(ctx, chatID, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbPagePrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
		if err != nil || page < 1 {
			return nil
		}
		state := b.getListState(chatID)
		state.page = page
		return b.sendTaskList(ctx, chatID, state)
	case strings.HasPrefix(data, cbConfirmPrefix):
		return b.resolvePrompt(ctx, chatID, strings.TrimPrefix(data, cbConfirmPrefix), true)
	case strings.HasPrefix(data, cbDeclinePrefix):
		return b.resolvePrompt(ctx, chatID, strings.TrimPrefix(data, cbDeclinePrefix), false)
	default:
		return nil
	}
}

func (b *Bot) changeStatus(ctx context.Context, chatID int64, taskID string, status model.Status) error {
	task, err := b.tasks.ChangeStatus(ctx, taskID, status)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return b.sendText(chatID, "Task not found, it may have been deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] status changed id=%s status=%s", task.ID, task.Status)
	if err := b.sendText(chatID, fmt.Sprintf("Task «%s» is now <b>%s</b>.", escape(task.Title), task.Status)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, b.getListState(chatID))
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return b.sendText(chatID, "Task not found, it may have been deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if err := b.tasks.Delete(ctx, taskID); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not delete the task: %s", escape(err.Error())))
	}
	log.Printf("[info] task deleted id=%s", taskID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, b.getListState(chatID))
}

func (b *Bot) resolvePrompt(ctx context.Context, chatID int64, taskID string, confirmed bool) error {
	if b.reconciler == nil {
		return nil
	}
	task, err := b.reconciler.Resolve(ctx, taskID, confirmed)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return b.sendText(chatID, "That task no longer exists.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if confirmed {
		return b.sendText(chatID, fmt.Sprintf("✅ Task «%s» marked done. Well ahead of the deadline!", escape(task.Title)))
	}
	return b.sendText(chatID, fmt.Sprintf("⏳ Task «%s» stays %s. Good luck!", escape(task.Title), task.Status))
}

// Notify implements service.Notifier by messaging the owner chat.
func (b *Bot) Notify(ctx context.Context, message string, severity service.Severity) {
	chatID := b.owner()
	if chatID == 0 {
		log.Printf("[warn] no owner chat yet, dropping notification: %s", message)
		return
	}
	var icon string
	switch severity {
	case service.SeverityError:
		icon = "🔴"
	case service.SeverityWarning:
		icon = "🟡"
	default:
		icon = "🟢"
	}
	if err := b.sendText(chatID, fmt.Sprintf("%s %s", icon, escape(message))); err != nil {
		log.Printf("notify: %v", err)
	}
}

// RequestConfirmation implements service.ConfirmationPrompter with inline
// Done / Still working buttons resolved through the reconciler.
func (b *Bot) RequestConfirmation(ctx context.Context, prompt service.ConfirmationPrompt) {
	chatID := b.owner()
	if chatID == 0 {
		log.Printf("[warn] no owner chat yet, dropping prompt for task %s", prompt.TaskID)
		return
	}
	msg := tgbotapi.NewMessage(chatID, escape(prompt.Message))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", cbConfirmPrefix+prompt.TaskID),
			tgbotapi.NewInlineKeyboardButtonData("⏳ Still working", cbDeclinePrefix+prompt.TaskID),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send prompt: %v", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) owner() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ownerChat
}

func (b *Bot) loadOwnerChat() {
	raw, err := b.kv.Get(context.Background(), ownerChatKey)
	if err != nil || len(raw) == 0 {
		return
	}
	if id, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		b.ownerChat = id
	}
}

func (b *Bot) rememberOwnerChat(ctx context.Context, chatID int64) {
	b.mu.Lock()
	b.ownerChat = chatID
	b.mu.Unlock()
	if err := b.kv.Set(ctx, ownerChatKey, []byte(strconv.FormatInt(chatID, 10))); err != nil {
		log.Printf("[warn] save owner chat: %v", err)
	}
}

func (b *Bot) setListState(chatID int64, state *listState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[chatID] = state
}

func (b *Bot) getListState(chatID int64) *listState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state, ok := b.lists[chatID]; ok {
		return state
	}
	state := &listState{page: 1}
	b.lists[chatID] = state
	return state
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
