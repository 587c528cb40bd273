package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensebot/internal/auth"
	"expensebot/internal/core"
	"expensebot/internal/ledger"
	"expensebot/internal/log"
	"expensebot/internal/parse"
	"expensebot/internal/report"
	"expensebot/internal/sheets"
	"expensebot/internal/telemetry"
)

const (
	usageText = "Hi! I'm your Expense Manager Bot.\n\n" +
		"Commands:\n" +
		"/expense <amount> <description> [category]\n" +
		"/income <amount> <description>\n" +
		"/report [MM-YYYY] [plain|rich] - Monthly summary from the ledger\n" +
		"/pivot [MM-YYYY] - Monthly summary from the pivot table"

	notRegisteredText = "🚫 You are not registered to use this bot."
	notAuthorizedText = "🚫 You are not authorized to use this bot."
	authFailedText    = "Sorry, I couldn't check your access right now. Please try again later."

	fetchingText      = "Fetching report... please wait."
	reportFailedText  = "Sorry, I couldn't generate the report right now. Please try again later."
	expenseFormatText = "Invalid format. Use: /expense <amount> <description> [category]"
	incomeFormatText  = "Invalid format. Use: /income <amount> <description>"
)

// Authenticator decides whether a chat user may use the bot.
type Authenticator interface {
	Authenticate(ctx context.Context, userID int64) (auth.Decision, error)
}

// Deps wires a Router. Auth and Pivot may be nil: without Auth every user
// is authorized, without Pivot /pivot answers with the report apology.
type Deps struct {
	Messenger Messenger
	Auth      Authenticator
	Builder   *ledger.Builder
	Lookup    parse.CategoryLookup
	Sink      sheets.RecordAppender
	Ledger    sheets.LedgerReader
	Pivot     sheets.PivotReader
	Formatter report.Formatter
	Style     report.Style
	Metrics   *telemetry.Metrics
	Logger    *log.Logger
}

// Router dispatches chat commands.
type Router struct {
	d      Deps
	logger *log.Logger
	audit  *log.StructuredLogger
}

func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBot)
	return &Router{d: d, logger: logger, audit: log.NewStructuredLogger(logger)}
}

// Handle processes one update. Plain text is ignored. The returned error
// is a delivery failure towards the chat; command failures are answered
// in the chat instead.
func (r *Router) Handle(ctx context.Context, u Update) error {
	text := strings.TrimSpace(u.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	fields := strings.Fields(text)
	cmd := commandName(fields[0])
	args := fields[1:]

	logger := r.logger.With(log.NewFields().WithUpdate(u.ChatID, u.UserID, cmd).ToSlice()...)
	ctx = log.NewContext(ctx, logger)
	r.d.Metrics.CommandHandled(ctx, cmd)

	if ok, err := r.authorize(ctx, u); !ok {
		return err
	}

	switch cmd {
	case "expense":
		return r.record(ctx, u, parse.Expense)
	case "income":
		return r.record(ctx, u, parse.Income)
	case "report":
		return r.report(ctx, u.ChatID, args)
	case "pivot":
		return r.pivot(ctx, u.ChatID, args)
	default:
		return r.reply(ctx, u.ChatID, usageText)
	}
}

// commandName lowercases "/Report@my_bot" to "report".
func commandName(token string) string {
	name := strings.TrimPrefix(token, "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func (r *Router) authorize(ctx context.Context, u Update) (bool, error) {
	if r.d.Auth == nil {
		return true, nil
	}
	decision, err := r.d.Auth.Authenticate(ctx, u.UserID)
	if err != nil {
		log.FromContext(ctx).Error("Authorization lookup failed", log.FieldError, err)
		return false, r.reply(ctx, u.ChatID, authFailedText)
	}
	switch decision {
	case auth.Authorized:
		return true, nil
	case auth.NotRegistered:
		log.FromContext(ctx).Warn("Rejected unregistered user", log.FieldUserID, u.UserID)
		return false, r.reply(ctx, u.ChatID, notRegisteredText)
	default:
		log.FromContext(ctx).Warn("Rejected unauthorized user", log.FieldUserID, u.UserID)
		return false, r.reply(ctx, u.ChatID, notAuthorizedText)
	}
}

func (r *Router) record(ctx context.Context, u Update, mode parse.Mode) error {
	formatHelp := expenseFormatText
	if mode == parse.Income {
		formatHelp = incomeFormatText
	}

	res, ok := parse.Command(u.Text, mode, r.d.Lookup)
	if !ok {
		return r.reply(ctx, u.ChatID, formatHelp)
	}
	rec, err := r.d.Builder.FromCommand(res, mode)
	if err != nil {
		log.FromContext(ctx).Warn("Rejected record", log.FieldError, err)
		return r.reply(ctx, u.ChatID, formatHelp)
	}

	ref, err := r.d.Sink.Append(ctx, rec)
	if err != nil {
		log.FromContext(ctx).Error("Failed to append record",
			log.NewFields().WithRecord(rec).WithError(err).WithOperation(log.OpAppend).ToSlice()...)
		return r.reply(ctx, u.ChatID, fmt.Sprintf("Failed to record %s. Please try again.", mode))
	}

	r.d.Metrics.RecordAccepted(ctx, mode.String())
	r.audit.LogRecordAccepted(ctx, u.UserID, rec, ref)

	msg := fmt.Sprintf("✅ Recorded %s: %s for %s (%s)",
		mode, r.d.Formatter.Money(rec.Amount), rec.Description, rec.Category)
	return r.reply(ctx, u.ChatID, msg)
}

// reportArgs splits "/report" arguments into a period token and an
// optional style override. Unrecognized extra tokens are ignored.
func (r *Router) reportArgs(args []string) (core.Period, report.Style) {
	style := r.d.Style
	periodArg := ""
	for _, a := range args {
		if s, ok := report.ParseStyle(a); ok {
			style = s
			continue
		}
		if periodArg == "" {
			periodArg = a
		}
	}
	return core.ParsePeriod(periodArg, r.d.Builder.Now()), style
}

func (r *Router) report(ctx context.Context, chatID int64, args []string) error {
	period, style := r.reportArgs(args)
	return r.serveReport(ctx, chatID, core.SourceLedger, func() (string, Markup, error) {
		records, err := r.d.Ledger.ReadLedger(ctx)
		if err != nil {
			return "", MarkupNone, fmt.Errorf("read ledger: %w", err)
		}
		res, ok := report.Aggregate(records, period)
		if !ok {
			return report.NoRecordsMessage(period.Label()), MarkupNone, nil
		}
		return r.d.Formatter.Format(res, style), markupFor(style), nil
	})
}

func (r *Router) pivot(ctx context.Context, chatID int64, args []string) error {
	period, style := r.reportArgs(args)
	return r.serveReport(ctx, chatID, core.SourcePivot, func() (string, Markup, error) {
		if r.d.Pivot == nil {
			return "", MarkupNone, errors.New("pivot source not configured")
		}
		rows, err := r.d.Pivot.ReadPivot(ctx)
		if err != nil {
			return "", MarkupNone, fmt.Errorf("read pivot: %w", err)
		}
		res, ok := report.AggregatePivot(rows, report.TargetFor(period))
		if !ok {
			return report.NoPivotDataMessage, MarkupNone, nil
		}
		return r.d.Formatter.Format(res, style), markupFor(style), nil
	})
}

// serveReport posts a placeholder, builds the report, removes the
// placeholder and posts the result or an apology.
func (r *Router) serveReport(ctx context.Context, chatID int64, source core.Source, build func() (string, Markup, error)) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentReport)

	placeholderID, err := r.d.Messenger.Send(ctx, OutgoingMessage{ChatID: chatID, Text: fetchingText})
	if err != nil {
		logger.Warn("Failed to send report placeholder", log.FieldError, err)
	}

	text, markup, buildErr := build()
	outcome := "ok"
	switch {
	case buildErr != nil:
		outcome = "error"
		logger.Error("Report generation failed", log.FieldSource, string(source), log.FieldError, buildErr)
		text, markup = reportFailedText, MarkupNone
	case markup == MarkupNone:
		outcome = "empty"
	}
	r.d.Metrics.ReportServed(ctx, string(source), outcome)

	if placeholderID != 0 {
		if err := r.d.Messenger.Delete(ctx, chatID, placeholderID); err != nil {
			logger.Warn("Failed to delete report placeholder", log.FieldError, err)
		}
	}
	if _, err := r.d.Messenger.Send(ctx, OutgoingMessage{ChatID: chatID, Text: text, Markup: markup}); err != nil {
		return fmt.Errorf("send %s report: %w", source, err)
	}
	return nil
}

func markupFor(s report.Style) Markup {
	if s == report.RichMasked {
		return MarkupMarkdownV2
	}
	return MarkupMarkdown
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) error {
	if _, err := r.d.Messenger.Send(ctx, OutgoingMessage{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
