package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-tracker/internal/logger"
	"habit-tracker/internal/model"
	"habit-tracker/internal/repository"
	"habit-tracker/internal/service"
)

type conversationStage int

const (
	stageTitle conversationStage = iota + 1
	stageWeekDays
)

const cbTogglePrefix = "toggle:"

const (
	btnCancelDialog   = "⏪ Отменить ввод"
	btnEveryDay       = "Каждый день"
	btnWorkdays       = "Будни"
	btnWeekend        = "Выходные"
	menuLabelNewHabit = "➕ Новая привычка"
	menuLabelToday    = "✅ Сегодня"
	menuLabelSummary  = "📊 История"
	menuLabelHelp     = "ℹ️ Помощь"
)

// summaryLimit keeps /summary under Telegram's message size limit.
const summaryLimit = 31

type conversationState struct {
	stage conversationStage
	input service.HabitInput
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	habitSvc      *service.HabitService
	summarySvc    *service.SummaryService
	reminderSvc   *service.ReminderService
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, habitSvc *service.HabitService, summarySvc *service.SummaryService, reminderSvc *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		habitSvc:      habitSvc,
		summarySvc:    summarySvc,
		reminderSvc:   reminderSvc,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logger.Error("handle callback", "err", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logger.Error("handle message", "err", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Создание привычки отменено.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		logger.Info("command", "from", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newhabit, чтобы добавить привычку, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newhabit":
		return b.startNewHabitConversation(ctx, msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "day":
		return b.handleDay(ctx, msg)
	case "toggle":
		return b.handleToggle(ctx, msg)
	case "summary":
		return b.handleSummary(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Создание привычки отменено.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf("👋 Привет, %s!\n<b>Я трекер привычек: напомню, что запланировано на сегодня, и сохраню историю.</b>\n\n%s",
		escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "Команды:\n" +
	"• /newhabit — добавить привычку и выбрать дни недели\n" +
	"• /today — привычки на сегодня, отметка по кнопке\n" +
	"• /day &lt;ГГГГ-ММ-ДД&gt; — привычки за любой день\n" +
	"• /toggle &lt;id&gt; — отметить или снять отметку на сегодня\n" +
	"• /summary — история выполнения по дням\n" +
	"• /cancel — отменить текущий ввод"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Подсказки</b>\n"+commandList+
		"\n\nОтмечать можно только сегодняшний день, прошлые дни доступны только для просмотра.")
}

func (b *Bot) startNewHabitConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	logger.Debug("start new habit conversation", "user", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Новая привычка.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым. Как назовём привычку?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageWeekDays
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"📆 <b>Шаг 2:</b> в какие дни недели? Например <code>пн, ср, пт</code> или <code>1,3,5</code> (0 — воскресенье).",
			weekDaysKeyboard())
	case stageWeekDays:
		days, err := parseWeekDays(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Не получилось разобрать дни: %s", escape(err.Error())), weekDaysKeyboard())
		}
		state.input.WeekDays = days
		err = b.finishHabitCreation(ctx, msg.Chat.ID, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newhabit.")
	}
}

func (b *Bot) finishHabitCreation(ctx context.Context, chatID int64, input service.HabitInput) error {
	habit, err := b.habitSvc.CreateHabit(ctx, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить привычку: %s", escape(err.Error())))
	}

	logger.Info("habit created", "id", habit.ID, "weekdays", habit.Days())

	var summary strings.Builder
	summary.WriteString("✅ <b>Привычка сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(habit.Title))))
	summary.WriteString(fmt.Sprintf("• <b>Дни:</b> %s\n", service.FormatWeekDays(habit.Days())))
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>", habit.ID))

	if err := b.sendText(chatID, summary.String()); err != nil {
		return err
	}
	return b.sendDay(ctx, chatID, b.habitSvc.Today())
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.sendDay(ctx, msg.Chat.ID, b.habitSvc.Today())
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи дату: /day 2024-03-06")
	}
	date, err := service.ParseDay(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2024-03-06</code>.")
	}
	return b.sendDay(ctx, msg.Chat.ID, date)
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID привычки: /toggle &lt;id&gt;. ID есть в /today.")
	}

	completed, err := b.habitSvc.ToggleHabit(ctx, args)
	if err != nil {
		return b.sendText(msg.Chat.ID, toggleErrorText(err))
	}

	logger.Info("habit toggled", "habit", args, "completed", completed, "user", msg.From.ID)
	if completed {
		return b.sendText(msg.Chat.ID, "✅ Отмечено на сегодня.")
	}
	return b.sendText(msg.Chat.ID, "↩️ Отметка снята.")
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	summary, err := b.summarySvc.Summary(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось собрать историю: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderSummary(summary, summaryLimit))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if !strings.HasPrefix(cb.Data, cbTogglePrefix) {
		b.ackCallback(cb.ID, "")
		return nil
	}

	habitID := strings.TrimPrefix(cb.Data, cbTogglePrefix)
	logger.Info("callback toggle", "user", cb.From.ID, "habit", habitID)

	completed, err := b.habitSvc.ToggleHabit(ctx, habitID)
	if err != nil {
		b.ackCallback(cb.ID, toggleErrorText(err))
		return err
	}
	if completed {
		b.ackCallback(cb.ID, "✅ Выполнено")
	} else {
		b.ackCallback(cb.ID, "↩️ Отметка снята")
	}

	view, err := b.habitSvc.QueryDay(ctx, b.habitSvc.Today())
	if err != nil {
		return err
	}
	text, markup := renderDay(view, true)
	edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, markup)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(edit)
	return err
}

// SendMorningReminders sends today's pending habits to every known user.
func (b *Bot) SendMorningReminders(ctx context.Context) error {
	text, err := b.reminderSvc.MorningReminder(ctx)
	if err != nil {
		return err
	}
	return b.broadcast(ctx, text)
}

// SendEveningReports sends today's progress to every known user.
func (b *Bot) SendEveningReports(ctx context.Context) error {
	text, err := b.reminderSvc.EveningReport(ctx)
	if err != nil {
		return err
	}
	return b.broadcast(ctx, text)
}

func (b *Bot) broadcast(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			logger.Warn("send notification", "chat", user.TelegramID, "err", err)
		}
	}
	return nil
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, date time.Time) error {
	view, err := b.habitSvc.QueryDay(ctx, date)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить привычки: %s", escape(err.Error())))
	}

	isToday := view.Date.Equal(b.habitSvc.Today())
	text, markup := renderDay(view, isToday)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(markup.InlineKeyboard) > 0 {
		msg.ReplyMarkup = markup
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewHabit):
		return true, b.startNewHabitConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelSummary):
		return true, b.handleSummary(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) ackCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Warn("callback ack", "err", err)
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

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func toggleErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "Некорректный ID привычки."
	case errors.Is(err, service.ErrNotFound):
		return "Привычка не найдена."
	default:
		return fmt.Sprintf("Ошибка: %s", escape(err.Error()))
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelNewHabit),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelSummary),
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

func weekDaysKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEveryDay),
			tgbotapi.NewKeyboardButton(btnWorkdays),
			tgbotapi.NewKeyboardButton(btnWeekend),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}
